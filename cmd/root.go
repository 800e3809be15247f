package cmd

import (
	"fmt"
	"os"

	cfgpkg "github.com/KaramelBytes/csvinsight-cli/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	debug   bool
	// Timeout flags (override config if set)
	flagHTTPTimeoutSec int
	flagExecTimeoutSec int

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "csvinsight",
	Short: "csvinsight: ask questions about a CSV file in plain language",
	Long: `csvinsight answers natural-language questions about a tabular dataset. Questions that ask
for charts or statistics are turned into a Python analysis program, validated, repaired from a
template library when needed, and executed against the data; other questions get a prose answer.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.csvinsight/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "completion request timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagExecTimeoutSec, "exec-timeout", 0, "generated code execution timeout in seconds (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("exec-timeout") && flagExecTimeoutSec > 0 {
		cfg.ExecTimeoutSec = flagExecTimeoutSec
	}
}

// currentConfig returns the loaded config, loading it on demand for callers
// that run before cobra initializers (tests) or after a failed load.
func currentConfig() (*cfgpkg.Global, error) {
	if cfg != nil {
		return cfg, nil
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}
