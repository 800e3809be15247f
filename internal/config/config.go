package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const dirName = ".csvinsight"

// Global configuration structure.
type Global struct {
	APIKey      string  `mapstructure:"api_key" yaml:"api_key"`
	Provider    string  `mapstructure:"provider" yaml:"provider"`
	Model       string  `mapstructure:"model" yaml:"model"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	// Output budgets per routing mode; code answers are kept short.
	CodeMaxTokens int `mapstructure:"code_max_tokens" yaml:"code_max_tokens"`
	TextMaxTokens int `mapstructure:"text_max_tokens" yaml:"text_max_tokens"`

	// Completion request bound; completions are never retried
	HTTPTimeoutSec int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`

	// Local runtimes (Ollama)
	OllamaHost string `mapstructure:"ollama_host" yaml:"ollama_host"`

	// Code execution
	PythonBin      string `mapstructure:"python_bin" yaml:"python_bin"`
	ExecTimeoutSec int    `mapstructure:"exec_timeout_sec" yaml:"exec_timeout_sec"`
	WorkDir        string `mapstructure:"work_dir" yaml:"work_dir"`

	// Conversation memory
	MemoryBackend string `mapstructure:"memory_backend" yaml:"memory_backend"`
	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db"`
	MemoryTTLSec  int    `mapstructure:"memory_ttl_sec" yaml:"memory_ttl_sec"`

	// HTTP server
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
}

// HTTPTimeout returns the completion request bound.
func (c *Global) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// ExecTimeout returns the generated-code execution bound.
func (c *Global) ExecTimeout() time.Duration {
	return time.Duration(c.ExecTimeoutSec) * time.Second
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.csvinsight/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, dirName)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("CSVINSIGHT")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("provider", "openai")
	v.SetDefault("model", "gpt-4o-mini")
	v.SetDefault("temperature", 0.1)
	v.SetDefault("code_max_tokens", 600)
	v.SetDefault("text_max_tokens", 1000)
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	// Execution defaults
	v.SetDefault("python_bin", "python3")
	v.SetDefault("exec_timeout_sec", 60)
	// Memory defaults
	v.SetDefault("memory_backend", "memory")
	v.SetDefault("redis_addr", "127.0.0.1:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("memory_ttl_sec", 86400)
	v.SetDefault("listen_addr", ":8080")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		dir := filepath.Join(home, dirName)
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// OPENAI_API_KEY is honored when no dedicated key is configured
	if c.APIKey == "" {
		c.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	// Resolve work_dir default: <tmp>/csvinsight
	if c.WorkDir == "" {
		c.WorkDir = filepath.Join(os.TempDir(), "csvinsight")
	}
	return &c, nil
}
