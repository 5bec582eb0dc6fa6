package commands

import (
	"fmt"
	"net/http"

	"github.com/HannahMarsh/onion-circuit/config"
	"github.com/HannahMarsh/onion-circuit/internal/api/api_functions"
	"github.com/HannahMarsh/onion-circuit/internal/api/structs"
	"github.com/spf13/cobra"
)

// send --from <user> --to <user> <message>: ask a running user endpoint to send a message.
func sendCmd() *cobra.Command {
	var from, to int
	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Ask a running user to send a message through the network",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.GlobalConfig
			url := cfg.URL(cfg.UserAddress(from)) + "/sendMessage"
			client := &http.Client{Timeout: cfg.Transport.Timeout}
			req := structs.SendMessageApi{Message: args[0], DestinationUserID: to}
			if err := api_functions.PostJSON(cmd.Context(), client, url, req, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "sent")
			return nil
		},
	}
	cmd.Flags().IntVar(&from, "from", 0, "sending user identity (required)")
	cmd.Flags().IntVar(&to, "to", 0, "destination user identity (required)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
