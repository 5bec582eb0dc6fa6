package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/HannahMarsh/onion-circuit/config"
	"github.com/HannahMarsh/onion-circuit/internal/model/registry"
	"github.com/HannahMarsh/onion-circuit/internal/model/relay"
	"github.com/HannahMarsh/onion-circuit/internal/model/user"
	"github.com/HannahMarsh/onion-circuit/internal/onion"
	"github.com/HannahMarsh/onion-circuit/internal/repositories"
	"github.com/HannahMarsh/onion-circuit/internal/transport"
	"github.com/HannahMarsh/onion-circuit/pkg/utils"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// demo runs a whole network in one process over the in-memory transport.
func demoCmd() *cobra.Command {
	var numRelays, from, to int
	cmd := &cobra.Command{
		Use:   "demo [message]",
		Short: "Route one message through an in-process network",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GlobalConfig
			message := "hi"
			if len(args) == 1 {
				message = args[0]
			}
			scheme, err := openScheme()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			reg := registry.NewRegistry(repositories.NewMemoryRelayRepository())
			defer reg.Close()
			tr := transport.NewMemoryTransport()

			relays := make([]*relay.Relay, 0, numRelays)
			for id := 1; id <= numRelays; id++ {
				n, err := relay.NewRelay(ctx, id, cfg.RelayAddress(id), scheme, tr, reg, cfg.Transport.Timeout)
				if err != nil {
					return err
				}
				tr.Listen(cfg.RelayAddress(id), n.Receive)
				relays = append(relays, n)
			}

			addressing := onion.Addressing{BaseRelayPort: cfg.BaseOnionRouterPort, BaseUserPort: cfg.BaseUserPort}
			newUser := func(id int) *user.User {
				b := &onion.Builder{Scheme: scheme, Selector: user.NewSelector(cfg), Addressing: addressing}
				u := user.NewUser(id, cfg.UserAddress(id), b, reg, tr)
				tr.Listen(cfg.UserAddress(id), u.ReceiveMessage)
				return u
			}
			sender, receiver := newUser(from), newUser(to)

			circuit, err := sender.SendMessage(ctx, message, to)
			if err != nil {
				return err
			}
			received, err := waitForMessage(ctx, receiver, cfg.Transport.Timeout)
			if err != nil {
				return err
			}
			for _, n := range relays {
				n.Wait()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "circuit: %v\n", circuit)
			for _, id := range circuit {
				n := utils.Find(relays, func(r *relay.Relay) bool { return r.ID == id })
				if n == nil {
					continue
				}
				if dest := (*n).Diagnostics().LastMessageDestination; dest != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "relay %d -> %s\n", id, config.AddressToName(*dest))
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %d received: %q\n", to, received)
			return nil
		},
	}
	cmd.Flags().IntVar(&numRelays, "relays", 4, "number of relays")
	cmd.Flags().IntVar(&from, "from", 1, "sending user identity")
	cmd.Flags().IntVar(&to, "to", 7, "destination user identity")
	return cmd
}

func waitForMessage(ctx context.Context, u *user.User, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if last := u.Diagnostics().LastReceivedMessage; last != nil {
			return *last, nil
		}
		select {
		case <-ctx.Done():
			return "", errors.Wrapf(ctx.Err(), "user %d received nothing", u.ID)
		case <-ticker.C:
		}
	}
}
