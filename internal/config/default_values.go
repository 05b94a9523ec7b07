package config

const (
	DefaultMaxSteps            = 15
	DefaultCommandQueueSize    = 32
	DefaultContextWindowTokens = 28000
	DefaultToolTimeoutSeconds  = 30
	DefaultStreamBatchChars    = 100

	DefaultProviderMode  = "cloud"
	DefaultLocalEndpoint = "http://127.0.0.1:8080/v1"
	DefaultLocalModel    = "local-gguf"
)
