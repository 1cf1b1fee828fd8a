// Package cli implements the formbot command line. One binary carries three
// roles behind cobra subcommands: serve (HTTP API and session engine), crawl
// (periodic source ingestion) and work (event-driven form understanding).
// All roles share the viper-backed configuration in the config package.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/formvn/formbot/common"
	"github.com/formvn/formbot/config"
	"github.com/formvn/formbot/llm"
	"github.com/formvn/formbot/version"
)

// cfgFile is the --config flag value; empty means the standard search paths.
var cfgFile string

// RootCmd is the formbot entry command.
var RootCmd = &cobra.Command{
	Use:   "formbot",
	Short: "Vietnamese administrative form ingestion and guided filling",
	Long: `formbot ingests Vietnamese administrative form documents, derives
their fillable-field structure, and drives conversational filling sessions
that render a printable PDF with the answers overlaid on the original form.

Roles:
  serve   HTTP API: forms catalog, filling sessions, PDF rendering
  crawl   periodic ingestion of configured document sources
  work    event consumers running the form-understanding pipeline

All roles read the same configuration file (default ./config.yaml) and the
FORMBOT_* environment variables.`,
	Version: version.Version,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default searches ., ./configs, ~/.formbot, /etc/formbot)")

	RootCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(crawlCmd)
	RootCmd.AddCommand(workCmd)
}

// Execute runs the root command.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies the logging settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	common.ConfigureLogger(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

// capabilityFor builds the LLM chain for the configured provider. Without an
// API key the chain runs on the deterministic fallback alone.
func capabilityFor(cfg *config.Config) llm.Capability {
	if cfg.LLM.APIKey == "" {
		common.Logger.Info("no llm api key configured, using rule-based fallback")
		return llm.NewChain(nil)
	}
	common.Logger.WithFields(logrus.Fields{
		"model":   cfg.LLM.Model,
		"api_key": common.MaskSecret(cfg.LLM.APIKey),
	}).Info("llm capability enabled")
	return llm.NewChain(llm.NewAnthropicClient(cfg.LLM))
}

// warnMissingTools logs a warning for each external binary that is not on
// PATH, so a misconfigured host fails loudly at startup instead of on the
// first document.
func warnMissingTools(names ...string) {
	for _, name := range names {
		if !common.LookTool(name) {
			common.Logger.WithField("tool", name).Warn("external tool not found on PATH")
		}
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
