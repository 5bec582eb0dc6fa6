package commands

import (
	"fmt"
	"net/http"

	"github.com/HannahMarsh/onion-circuit/config"
	"github.com/HannahMarsh/onion-circuit/internal/model/registry"
	"github.com/HannahMarsh/onion-circuit/internal/model/user"
	"github.com/HannahMarsh/onion-circuit/internal/onion"
	"github.com/spf13/cobra"
)

func userCmd() *cobra.Command {
	var id int
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Run a user endpoint",
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

			builder := &onion.Builder{
				Scheme:     scheme,
				Selector:   user.NewSelector(cfg),
				Addressing: onion.Addressing{BaseRelayPort: cfg.BaseOnionRouterPort, BaseUserPort: cfg.BaseUserPort},
			}
			port := cfg.UserAddress(id)
			u := user.NewUser(id, port, builder, registry.NewClient(cfg.Registry.Address), tr)
			consume(amqpTransport, port, u.ReceiveMessage)

			mux := http.NewServeMux()
			u.Routes(mux)
			return serve(fmt.Sprintf("user %d", id), port, mux)
		},
	}
	cmd.Flags().IntVar(&id, "id", 0, "user identity (required)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
