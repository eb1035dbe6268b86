package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/payment-reconciler/internal/config"
	"github.com/example/payment-reconciler/internal/webhook"
)

func signCmd() *cobra.Command {
	var (
		secret    string
		timestamp string
	)
	cmd := &cobra.Command{
		Use:   "sign [file|-]",
		Short: "Print signature headers for a webhook body",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				path, _ := cmd.Flags().GetString("config")
				cfg, err := config.Load(path)
				if err != nil {
					return err
				}
				secret = cfg.Webhook.Secret
			}
			if secret == "" {
				return fmt.Errorf("no webhook secret: pass --secret or set WEBHOOK_SECRET")
			}

			raw, err := readPayload(cmd, args)
			if err != nil {
				return err
			}
			if timestamp == "" {
				timestamp = strconv.FormatInt(time.Now().Unix(), 10)
			}

			sig := webhook.NewVerifier(secret, 0).Sign(timestamp, raw)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n%s: %s\n",
				webhook.HeaderTimestamp, timestamp, webhook.HeaderSignature, sig)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "signing secret (defaults to the configured WEBHOOK_SECRET)")
	cmd.Flags().StringVar(&timestamp, "timestamp", "", "timestamp header value (defaults to now)")
	return cmd
}
