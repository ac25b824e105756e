package config

const (
	defaultDataDir         = "~/.local/share/sentimark"
	defaultLogDir          = "~/.local/share/sentimark/logs"
	defaultBackend         = "gemini"
	defaultGeminiBaseURL   = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel     = "gemini-2.5-flash-lite"
	defaultOpenAIBaseURL   = "https://api.openai.com/v1"
	defaultOpenAIModel     = "gpt-4o-mini"
	defaultAnthropicModel  = "claude-3-5-haiku-latest"
	defaultTimeoutSeconds  = 30
	defaultMaxOutputTokens = 256

	defaultMode            = "strict"
	defaultSingleTemp      = 0.9
	defaultDatasetTemp     = 0.2
	defaultRequestInterval = 4.5

	defaultHistoryListLimit     = 20
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Provider: Provider{
			Backend: defaultBackend,
			Gemini: GeminiProvider{
				BaseURL:         defaultGeminiBaseURL,
				Model:           defaultGeminiModel,
				TimeoutSeconds:  defaultTimeoutSeconds,
				MaxOutputTokens: defaultMaxOutputTokens,
			},
			OpenAI: OpenAIProvider{
				BaseURL:         defaultOpenAIBaseURL,
				Model:           defaultOpenAIModel,
				TimeoutSeconds:  defaultTimeoutSeconds,
				MaxOutputTokens: defaultMaxOutputTokens,
			},
			Anthropic: AnthropicProvider{
				Model:           defaultAnthropicModel,
				TimeoutSeconds:  defaultTimeoutSeconds,
				MaxOutputTokens: defaultMaxOutputTokens,
			},
		},
		Classification: Classification{
			Mode:               defaultMode,
			SingleTemperature:  defaultSingleTemp,
			DatasetTemperature: defaultDatasetTemp,
		},
		Pacing: Pacing{
			RequestIntervalSeconds: defaultRequestInterval,
		},
		Cache: Cache{
			Enabled: true,
			Persist: true,
		},
		History: History{
			Enabled:   true,
			ListLimit: defaultHistoryListLimit,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
