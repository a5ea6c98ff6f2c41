package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/competition-radar/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration with secrets redacted",
	Args:  cobra.NoArgs,
	RunE:  runShowConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

const redacted = "<redacted>"

func runShowConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(redact(*cfg))
}

// redact masks credentials in a copy of cfg.
func redact(cfg config.Config) config.Config {
	mask := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}
	mask(&cfg.Database.URL)
	mask(&cfg.Storage.AccessKey)
	mask(&cfg.Storage.SecretKey)
	mask(&cfg.Providers.Gemini.APIKey)
	mask(&cfg.Providers.OpenAI.APIKey)
	mask(&cfg.Delivery.Gateway.APIKey)
	mask(&cfg.Delivery.Telegram.BotToken)

	srcs := make([]config.SourceConfig, len(cfg.Sources))
	copy(srcs, cfg.Sources)
	for i := range srcs {
		mask(&srcs[i].Token)
	}
	cfg.Sources = srcs
	return cfg
}
