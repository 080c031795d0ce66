package config

import (
	"os"
	"sync"
)

// Oracle providers selectable via ORACLE_PROVIDER.
const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
)

type OracleConfig struct {
	Provider         string
	GeminiAPIKey     string
	GeminiModel      string
	EmbeddingModel   string
	OpenRouterAPIKey string
	OpenRouterModel  string
}

var (
	oracleConfig *OracleConfig
	oracleOnce   sync.Once
)

func LoadOracleConfig() *OracleConfig {
	oracleOnce.Do(func() {
		oracleConfig = &OracleConfig{
			Provider:         envOr("ORACLE_PROVIDER", ProviderGemini),
			GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
			GeminiModel:      envOr("GEMINI_MODEL", "gemini-2.5-flash"),
			EmbeddingModel:   envOr("GEMINI_EMBEDDING_MODEL", "gemini-embedding-001"),
			OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
			OpenRouterModel:  envOr("OPENROUTER_MODEL", "openai/gpt-4o-mini"),
		}
	})
	return oracleConfig
}
