package commands

import (
	"net/http"

	"github.com/HannahMarsh/onion-circuit/config"
	"github.com/HannahMarsh/onion-circuit/internal/model/registry"
	"github.com/HannahMarsh/onion-circuit/internal/model/relay"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

func relayCmd() *cobra.Command {
	var id int
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run an onion relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GlobalConfig
			scheme, err := openScheme()
			if err != nil {
				return err
			}
			tr, amqpTransport, err := openTransport()
			if err != nil {
				return err
			}
			if amqpTransport != nil {
				defer amqpTransport.Close()
			}

			port := cfg.RelayAddress(id)
			n, err := relay.NewRelay(cmd.Context(), id, port, scheme, tr, registry.NewClient(cfg.Registry.Address), cfg.Transport.Timeout)
			if err != nil {
				return err
			}
			defer n.Wait()
			consume(amqpTransport, port, n.Receive)

			mux := http.NewServeMux()
			n.Routes(mux, rate.NewLimiter(rate.Limit(cfg.RateLimit.PerSecond), cfg.RateLimit.Burst))
			return serve(n.String(), port, mux)
		},
	}
	cmd.Flags().IntVar(&id, "id", 0, "relay identity (required)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
