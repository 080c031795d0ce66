package invoker

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Oracle is the external completion service. Implementations make one
// network call per invocation; all resilience lives here.
type Oracle interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Response is a schema-constrained oracle response. Validate rejects
// structurally decodable but semantically invalid payloads.
type Response interface {
	Validate() error
}

// Policy is the retry policy applied to every oracle call.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Timeout     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Timeout:     90 * time.Second,
	}
}

// backoff returns the delay before the given retry (attempt >= 2):
// exponential doubling from BaseDelay, capped at MaxDelay, with jitter
// spread uniformly over a quarter of the delay (+/-12.5%).
func (p Policy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay * time.Duration(math.Pow(2, float64(attempt-2)))
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	jitter := time.Duration(float64(delay) * 0.25)
	delay = delay - jitter/2 + time.Duration(rand.Int63n(int64(jitter)+1))
	return delay
}

// sleep is stubbed out in tests.
var sleep = time.Sleep

// Invoker wraps every oracle call with timeout, classified retries and
// schema-validated parsing.
type Invoker struct {
	oracle   Oracle
	policy   Policy
	injector *FaultInjector
	logger   *zap.Logger
}

func New(oracle Oracle, policy Policy, injector *FaultInjector, logger *zap.Logger) *Invoker {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = time.Second
	}
	if policy.MaxDelay < policy.BaseDelay {
		policy.MaxDelay = policy.BaseDelay
	}
	if policy.Timeout <= 0 {
		policy.Timeout = 90 * time.Second
	}
	return &Invoker{oracle: oracle, policy: policy, injector: injector, logger: logger}
}

// Invoke sends the prompt and decodes the response into out. Transient
// failures and unparseable responses are retried up to the attempt
// budget. A response still failing validation on the final attempt is a
// permanent error carrying the raw response.
func (inv *Invoker) Invoke(ctx context.Context, prompt string, out Response) error {
	_, err := inv.run(ctx, prompt, func(raw string) error {
		return decode(raw, out)
	})
	return err
}

// InvokeText sends the prompt and returns the raw textual response.
// Used for stages without a structured shape, such as the summary.
func (inv *Invoker) InvokeText(ctx context.Context, prompt string) (string, error) {
	return inv.run(ctx, prompt, func(raw string) error {
		if strings.TrimSpace(raw) == "" {
			return fmt.Errorf("empty response")
		}
		return nil
	})
}

func (inv *Invoker) run(ctx context.Context, prompt string, parse func(string) error) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", Permanent(fmt.Errorf("prompt must not be empty"))
	}

	var (
		lastErr     error
		lastRaw     string
		parseFailed bool
	)

	for attempt := 1; attempt <= inv.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := inv.policy.backoff(attempt)
			inv.logger.Warn("retrying oracle call",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", inv.policy.MaxAttempts),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			sleep(delay)
			if ctx.Err() != nil {
				return "", &Error{Kind: KindTransient, Attempts: attempt - 1, Err: ctx.Err()}
			}
		}

		raw, err := inv.call(ctx, prompt)
		if err != nil {
			if classify(err) == KindPermanent {
				return "", &Error{Kind: KindPermanent, Attempts: attempt, Err: err}
			}
			lastErr = err
			parseFailed = false
			continue
		}

		if err := parse(raw); err != nil {
			lastErr = err
			lastRaw = raw
			parseFailed = true
			continue
		}

		return raw, nil
	}

	attempts := inv.policy.MaxAttempts
	if parseFailed {
		return "", &Error{
			Kind:     KindPermanent,
			Attempts: attempts,
			Raw:      lastRaw,
			Err:      fmt.Errorf("response failed schema validation: %w", lastErr),
		}
	}
	return "", &Error{
		Kind:     KindTransient,
		Attempts: attempts,
		Err:      fmt.Errorf("retry budget exhausted: %w", lastErr),
	}
}

func (inv *Invoker) call(ctx context.Context, prompt string) (string, error) {
	if err := inv.injector.Trip(); err != nil {
		return "", err
	}
	attemptCtx, cancel := context.WithTimeout(ctx, inv.policy.Timeout)
	defer cancel()
	return inv.oracle.GenerateContent(attemptCtx, prompt)
}

// decode strips code fences, checks the payload is well-formed JSON and
// unmarshals it into out before validating.
func decode(raw string, out Response) error {
	cleaned := ExtractJSON(raw)
	if !gjson.Valid(cleaned) {
		return fmt.Errorf("response is not valid JSON")
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return out.Validate()
}

// ExtractJSON removes markdown code fences that models wrap around
// JSON payloads.
func ExtractJSON(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		if idx := strings.LastIndex(cleaned, "```"); idx != -1 {
			cleaned = cleaned[:idx]
		}
	}
	return strings.TrimSpace(cleaned)
}
