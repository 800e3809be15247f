package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/csvinsight-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/csvinsight-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set csvinsight configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "api_key: %s\n", mask(cfg.APIKey))
		fmt.Fprintf(out, "provider: %s\n", cfg.Provider)
		fmt.Fprintf(out, "model: %s\n", cfg.Model)
		fmt.Fprintf(out, "temperature: %.3f\n", cfg.Temperature)
		fmt.Fprintf(out, "code_max_tokens: %d\n", cfg.CodeMaxTokens)
		fmt.Fprintf(out, "text_max_tokens: %d\n", cfg.TextMaxTokens)
		fmt.Fprintf(out, "http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		if cfg.Provider == ai.ProviderOllama || cfg.Provider == ai.ProviderLocal {
			fmt.Fprintf(out, "ollama_host: %s\n", cfg.OllamaHost)
		}
		fmt.Fprintf(out, "python_bin: %s\n", cfg.PythonBin)
		fmt.Fprintf(out, "exec_timeout_sec: %d\n", cfg.ExecTimeoutSec)
		fmt.Fprintf(out, "work_dir: %s\n", cfg.WorkDir)
		fmt.Fprintf(out, "memory_backend: %s\n", cfg.MemoryBackend)
		if cfg.MemoryBackend == "redis" {
			fmt.Fprintf(out, "redis_addr: %s\n", cfg.RedisAddr)
			fmt.Fprintf(out, "redis_password: %s\n", mask(cfg.RedisPassword))
			fmt.Fprintf(out, "redis_db: %d\n", cfg.RedisDB)
			fmt.Fprintf(out, "memory_ttl_sec: %d\n", cfg.MemoryTTLSec)
		}
		fmt.Fprintf(out, "listen_addr: %s\n", cfg.ListenAddr)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		if err := setConfigValue(c, args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	positiveInt := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return 0, fmt.Errorf("invalid positive int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "api_key":
		c.APIKey = val
	case "provider":
		switch strings.ToLower(val) {
		case ai.ProviderOpenAI:
			c.Provider = ai.ProviderOpenAI
		case ai.ProviderOpenRouter:
			c.Provider = ai.ProviderOpenRouter
		case ai.ProviderOllama, ai.ProviderLocal:
			c.Provider = ai.ProviderOllama
		default:
			return fmt.Errorf("invalid provider: %s (use openai, openrouter or ollama)", val)
		}
	case "model":
		c.Model = val
	case "temperature":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil || f < 0 || f > 2 {
			return fmt.Errorf("invalid float for temperature: %v (0..2)", val)
		}
		c.Temperature = f
	case "code_max_tokens":
		c.CodeMaxTokens, err = positiveInt()
	case "text_max_tokens":
		c.TextMaxTokens, err = positiveInt()
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = positiveInt()
	case "ollama_host":
		c.OllamaHost = val
	case "python_bin":
		c.PythonBin = val
	case "exec_timeout_sec":
		c.ExecTimeoutSec, err = positiveInt()
	case "work_dir":
		c.WorkDir = val
	case "memory_backend":
		switch val {
		case "memory", "redis":
			c.MemoryBackend = val
		default:
			return fmt.Errorf("invalid memory_backend: %s (use memory or redis)", val)
		}
	case "redis_addr":
		c.RedisAddr = val
	case "redis_password":
		c.RedisPassword = val
	case "redis_db":
		i, perr := strconv.Atoi(val)
		if perr != nil || i < 0 {
			return fmt.Errorf("invalid int for redis_db: %v", val)
		}
		c.RedisDB = i
	case "memory_ttl_sec":
		c.MemoryTTLSec, err = positiveInt()
	case "listen_addr":
		c.ListenAddr = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
