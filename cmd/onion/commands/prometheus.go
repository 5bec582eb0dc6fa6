package commands

import (
	"github.com/HannahMarsh/onion-circuit/config"
	"github.com/spf13/cobra"
)

func prometheusConfigCmd() *cobra.Command {
	var out string
	var relays, users []int
	cmd := &cobra.Command{
		Use:   "prometheus-config",
		Short: "Write a Prometheus scrape config for the registry, relays and users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.GlobalConfig.WritePrometheusConfig(out, relays, users)
		},
	}
	cmd.Flags().StringVar(&out, "out", "prometheus.yml", "output path")
	cmd.Flags().IntSliceVar(&relays, "relays", []int{1, 2, 3, 4}, "relay identities to scrape")
	cmd.Flags().IntSliceVar(&users, "users", nil, "user identities to scrape")
	return cmd
}
