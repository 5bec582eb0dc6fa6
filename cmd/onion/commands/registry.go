package commands

import (
	"log/slog"
	"net/http"

	"github.com/HannahMarsh/onion-circuit/config"
	"github.com/HannahMarsh/onion-circuit/internal/model/registry"
	"github.com/HannahMarsh/onion-circuit/internal/repositories"
	"github.com/spf13/cobra"
)

func registryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "registry",
		Short: "Run the node registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GlobalConfig
			repo, err := repositories.OpenRelayRepository(cfg.Registry)
			if err != nil {
				return err
			}
			reg := registry.NewRegistry(repo)
			defer func() {
				if err := reg.Close(); err != nil {
					slog.Error("failed to close registry", "err", err)
				}
			}()

			slog.Info("⚡ init registry", "backend", cfg.Registry.Backend)
			mux := http.NewServeMux()
			reg.Routes(mux)
			return serve("registry", cfg.Registry.Port, mux)
		},
	}
}
