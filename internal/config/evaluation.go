package config

import (
	"sync"
	"time"
)

// EvaluationConfig tunes the invoker retry policy and the pipeline.
// EVAL_FAULT_RATE enables synthetic transient failures for resilience
// testing; it defaults to zero and must stay zero outside of tests.
type EvaluationConfig struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	RequestTimeout time.Duration
	FaultRate      float64
	RetrievalTopK  int
	UploadDir      string
}

var (
	evalConfig *EvaluationConfig
	evalOnce   sync.Once
)

func LoadEvaluationConfig() *EvaluationConfig {
	evalOnce.Do(func() {
		evalConfig = &EvaluationConfig{
			MaxAttempts:    envInt("EVAL_MAX_ATTEMPTS", 3),
			BaseDelay:      envDuration("EVAL_BASE_DELAY", time.Second),
			MaxDelay:       envDuration("EVAL_MAX_DELAY", 30*time.Second),
			RequestTimeout: envDuration("EVAL_REQUEST_TIMEOUT", 90*time.Second),
			FaultRate:      envFloat("EVAL_FAULT_RATE", 0),
			RetrievalTopK:  envInt("EVAL_RETRIEVAL_TOP_K", 2),
			UploadDir:      envOr("EVAL_UPLOAD_DIR", "./uploads"),
		}
	})
	return evalConfig
}
