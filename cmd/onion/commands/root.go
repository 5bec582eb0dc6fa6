package commands

import (
	"log/slog"

	"github.com/HannahMarsh/onion-circuit/config"
	"github.com/HannahMarsh/onion-circuit/internal/api/api_functions"
	"github.com/HannahMarsh/onion-circuit/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
)

var (
	configPath string
	logLevel   string
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "onion",
		Short:        "Three-hop onion routing overlay",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger.SetUpLogrusAndSlog(logLevel)

			if _, err := maxprocs.Set(); err != nil {
				slog.Error("failed set max procs", "err", err)
				return err
			}
			if err := config.InitGlobal(configPath); err != nil {
				slog.Error("failed get config", "err", err)
				return err
			}
			if limit := config.GlobalConfig.Transport.MaxMessageBytes; limit > 0 {
				api_functions.MaxMessageBytes = limit
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yml (default config/config.yml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")

	root.AddCommand(registryCmd(), relayCmd(), userCmd(), sendCmd(), demoCmd(), prometheusConfigCmd())
	return root
}
