package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type ProviderConfig struct {
	// APIKeys is the rotation pool for the cloud cascade. One key is
	// enough; more keys spread rate limits.
	APIKeys []string `json:"api_keys"`
	BaseURL string   `json:"base_url"`
	// Mode selects the backend at startup: "cloud" or "local".
	Mode string `json:"mode"`
}

type LocalConfig struct {
	Endpoint string `json:"endpoint"`
	Model    string `json:"model"`
}

type EmbeddingConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
}

type RuntimeConfig struct {
	WorkspaceRoot       string `json:"workspace_root"`
	MaxSteps            int    `json:"max_steps"`
	CommandQueueSize    int    `json:"command_queue_size"`
	ContextWindowTokens int    `json:"context_window_tokens"`
	ToolTimeoutSeconds  int    `json:"tool_timeout_seconds"`
	StreamBatchChars    int    `json:"stream_batch_chars"`
}

type StorageConfig struct {
	HistoryPath string `json:"history_path"`
}

type LogConfig struct {
	Level string `json:"level"`
	JSON  bool   `json:"json"`
}

type Config struct {
	Provider  ProviderConfig  `json:"provider"`
	Local     LocalConfig     `json:"local"`
	Embedding EmbeddingConfig `json:"embedding"`
	Runtime   RuntimeConfig   `json:"runtime"`
	Storage   StorageConfig   `json:"storage"`
	Log       LogConfig       `json:"log"`
}

type fileLogConfig struct {
	Level *string `json:"level"`
	JSON  *bool   `json:"json"`
}

type fileConfig struct {
	Provider  *ProviderConfig  `json:"provider"`
	Local     *LocalConfig     `json:"local"`
	Embedding *EmbeddingConfig `json:"embedding"`
	Runtime   *RuntimeConfig   `json:"runtime"`
	Storage   *StorageConfig   `json:"storage"`
	Log       *fileLogConfig   `json:"log"`
}

func Default() Config {
	return Config{
		Provider: ProviderConfig{
			BaseURL: "https://generativelanguage.googleapis.com/v1beta",
			Mode:    DefaultProviderMode,
		},
		Local: LocalConfig{
			Endpoint: DefaultLocalEndpoint,
			Model:    DefaultLocalModel,
		},
		Embedding: EmbeddingConfig{
			Model: "text-embedding-3-small",
		},
		Runtime: RuntimeConfig{
			MaxSteps:            DefaultMaxSteps,
			CommandQueueSize:    DefaultCommandQueueSize,
			ContextWindowTokens: DefaultContextWindowTokens,
			ToolTimeoutSeconds:  DefaultToolTimeoutSeconds,
			StreamBatchChars:    DefaultStreamBatchChars,
		},
		Storage: StorageConfig{
			HistoryPath: "~/.zox/history.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load 加载配置：默认值 <- 全局配置 <- 项目配置 <- 环境变量，后者覆盖前者
// Load layers configuration: defaults <- global file <- project file <- env,
// with later sources overriding earlier ones.
func Load(path string) (Config, error) {
	cfg := Default()

	for _, globalPath := range globalConfigPaths() {
		if err := mergeFromFile(&cfg, globalPath); err != nil {
			return Config{}, err
		}
	}

	resolvedPath := strings.TrimSpace(path)
	if envPath := strings.TrimSpace(os.Getenv("ZOX_CONFIG_PATH")); envPath != "" {
		resolvedPath = envPath
	}
	if resolvedPath == "" {
		resolvedPath = findProjectConfigPath()
	}
	if err := mergeFromFile(&cfg, resolvedPath); err != nil {
		return Config{}, err
	}

	if err := normalize(&cfg); err != nil {
		return Config{}, err
	}
	return applyEnv(cfg)
}

func globalConfigPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{filepath.Join(home, ".zox", "config.json")}
}

func findProjectConfigPath() string {
	candidates := []string{
		"zox.config.json",
		".zox/config.json",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

func mergeFromFile(cfg *Config, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	resolved, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("expand config path %q: %w", path, err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %q: %w", resolved, err)
	}

	cleaned := stripJSONComments(data)
	var fileCfg fileConfig
	if err := json.Unmarshal(cleaned, &fileCfg); err != nil {
		return fmt.Errorf("parse config %q: %w", resolved, err)
	}
	applyFileConfig(cfg, fileCfg)
	return nil
}

func applyFileConfig(cfg *Config, fc fileConfig) {
	if fc.Provider != nil {
		cfg.Provider = mergeProvider(cfg.Provider, *fc.Provider)
	}
	if fc.Local != nil {
		cfg.Local = mergeLocal(cfg.Local, *fc.Local)
	}
	if fc.Embedding != nil {
		cfg.Embedding = mergeEmbedding(cfg.Embedding, *fc.Embedding)
	}
	if fc.Runtime != nil {
		cfg.Runtime = mergeRuntime(cfg.Runtime, *fc.Runtime)
	}
	if fc.Storage != nil {
		if strings.TrimSpace(fc.Storage.HistoryPath) != "" {
			cfg.Storage.HistoryPath = fc.Storage.HistoryPath
		}
	}
	if fc.Log != nil {
		if fc.Log.Level != nil {
			cfg.Log.Level = *fc.Log.Level
		}
		if fc.Log.JSON != nil {
			cfg.Log.JSON = *fc.Log.JSON
		}
	}
}

func mergeProvider(base ProviderConfig, override ProviderConfig) ProviderConfig {
	if len(override.APIKeys) > 0 {
		base.APIKeys = append([]string(nil), override.APIKeys...)
	}
	if strings.TrimSpace(override.BaseURL) != "" {
		base.BaseURL = override.BaseURL
	}
	if strings.TrimSpace(override.Mode) != "" {
		base.Mode = override.Mode
	}
	return base
}

func mergeLocal(base LocalConfig, override LocalConfig) LocalConfig {
	if strings.TrimSpace(override.Endpoint) != "" {
		base.Endpoint = override.Endpoint
	}
	if strings.TrimSpace(override.Model) != "" {
		base.Model = override.Model
	}
	return base
}

func mergeEmbedding(base EmbeddingConfig, override EmbeddingConfig) EmbeddingConfig {
	if strings.TrimSpace(override.APIKey) != "" {
		base.APIKey = override.APIKey
	}
	if strings.TrimSpace(override.BaseURL) != "" {
		base.BaseURL = override.BaseURL
	}
	if strings.TrimSpace(override.Model) != "" {
		base.Model = override.Model
	}
	return base
}

func mergeRuntime(base RuntimeConfig, override RuntimeConfig) RuntimeConfig {
	if strings.TrimSpace(override.WorkspaceRoot) != "" {
		base.WorkspaceRoot = override.WorkspaceRoot
	}
	if override.MaxSteps > 0 {
		base.MaxSteps = override.MaxSteps
	}
	if override.CommandQueueSize > 0 {
		base.CommandQueueSize = override.CommandQueueSize
	}
	if override.ContextWindowTokens > 0 {
		base.ContextWindowTokens = override.ContextWindowTokens
	}
	if override.ToolTimeoutSeconds > 0 {
		base.ToolTimeoutSeconds = override.ToolTimeoutSeconds
	}
	if override.StreamBatchChars > 0 {
		base.StreamBatchChars = override.StreamBatchChars
	}
	return base
}

func normalize(cfg *Config) error {
	def := Default()

	if strings.TrimSpace(cfg.Provider.BaseURL) == "" {
		cfg.Provider.BaseURL = def.Provider.BaseURL
	}
	cfg.Provider.Mode = strings.ToLower(strings.TrimSpace(cfg.Provider.Mode))
	if cfg.Provider.Mode != "cloud" && cfg.Provider.Mode != "local" {
		cfg.Provider.Mode = DefaultProviderMode
	}
	cfg.Provider.APIKeys = normalizeKeyList(cfg.Provider.APIKeys)

	if strings.TrimSpace(cfg.Local.Endpoint) == "" {
		cfg.Local.Endpoint = def.Local.Endpoint
	}
	if strings.TrimSpace(cfg.Local.Model) == "" {
		cfg.Local.Model = def.Local.Model
	}
	if strings.TrimSpace(cfg.Embedding.Model) == "" {
		cfg.Embedding.Model = def.Embedding.Model
	}

	if cfg.Runtime.MaxSteps <= 0 {
		cfg.Runtime.MaxSteps = def.Runtime.MaxSteps
	}
	if cfg.Runtime.CommandQueueSize <= 0 {
		cfg.Runtime.CommandQueueSize = def.Runtime.CommandQueueSize
	}
	if cfg.Runtime.ContextWindowTokens <= 0 {
		cfg.Runtime.ContextWindowTokens = def.Runtime.ContextWindowTokens
	}
	if cfg.Runtime.ToolTimeoutSeconds <= 0 {
		cfg.Runtime.ToolTimeoutSeconds = def.Runtime.ToolTimeoutSeconds
	}
	if cfg.Runtime.StreamBatchChars <= 0 {
		cfg.Runtime.StreamBatchChars = def.Runtime.StreamBatchChars
	}
	cfg.Runtime.WorkspaceRoot = strings.TrimSpace(cfg.Runtime.WorkspaceRoot)

	historyPath, err := expandPath(cfg.Storage.HistoryPath)
	if err != nil {
		return err
	}
	if historyPath == "" {
		historyPath, err = expandPath(def.Storage.HistoryPath)
		if err != nil {
			return err
		}
	}
	cfg.Storage.HistoryPath = historyPath

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		cfg.Log.Level = def.Log.Level
	}

	return nil
}

func applyEnv(cfg Config) (Config, error) {
	if v := strings.TrimSpace(os.Getenv("ZOX_API_KEYS")); v != "" {
		cfg.Provider.APIKeys = normalizeKeyList(strings.Split(v, ","))
	} else if v := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); v != "" {
		cfg.Provider.APIKeys = []string{v}
	}
	if v := strings.TrimSpace(os.Getenv("ZOX_BASE_URL")); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("ZOX_MODE")); v != "" {
		cfg.Provider.Mode = v
	}
	if v := strings.TrimSpace(os.Getenv("ZOX_LOCAL_ENDPOINT")); v != "" {
		cfg.Local.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("ZOX_WORKSPACE_ROOT")); v != "" {
		cfg.Runtime.WorkspaceRoot = v
	}
	if v := strings.TrimSpace(os.Getenv("ZOX_MAX_STEPS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("invalid ZOX_MAX_STEPS: %q", v)
		}
		cfg.Runtime.MaxSteps = n
	}
	if v := strings.TrimSpace(os.Getenv("ZOX_HISTORY_PATH")); v != "" {
		cfg.Storage.HistoryPath = v
	}
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" && cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = v
	}

	return cfg, normalize(&cfg)
}

func normalizeKeyList(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := map[string]struct{}{}
	for _, k := range keys {
		trimmed := strings.TrimSpace(k)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		if path == "~" {
			path = home
		} else {
			path = filepath.Join(home, strings.TrimPrefix(path, "~/"))
		}
	}
	return filepath.Abs(path)
}

func stripJSONComments(data []byte) []byte {
	const (
		stateNormal = iota
		stateString
		stateLineComment
		stateBlockComment
	)

	state := stateNormal
	escaped := false
	out := bytes.Buffer{}

	for i := 0; i < len(data); i++ {
		c := data[i]
		next := byte(0)
		if i+1 < len(data) {
			next = data[i+1]
		}

		switch state {
		case stateNormal:
			if c == '"' {
				state = stateString
				out.WriteByte(c)
				continue
			}
			if c == '/' && next == '/' {
				state = stateLineComment
				i++
				continue
			}
			if c == '/' && next == '*' {
				state = stateBlockComment
				i++
				continue
			}
			out.WriteByte(c)
		case stateString:
			out.WriteByte(c)
			if escaped {
				escaped = false
				continue
			}
			if c == '\\' {
				escaped = true
				continue
			}
			if c == '"' {
				state = stateNormal
			}
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
				out.WriteByte(c)
			}
		case stateBlockComment:
			if c == '*' && next == '/' {
				state = stateNormal
				i++
			}
		}
	}

	return out.Bytes()
}
