package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/example/payment-reconciler/internal/app"
	"github.com/example/payment-reconciler/internal/domain/payment"
	"github.com/example/payment-reconciler/internal/gateway"
	"github.com/example/payment-reconciler/internal/infrastructure/store"
	"github.com/example/payment-reconciler/internal/verification"
)

type verifyOutput struct {
	Source      verification.Source   `json:"source"`
	Record      payment.PaymentRecord `json:"record"`
	RateLimited bool                  `json:"rate_limited,omitempty"`
	RetryAfter  int                   `json:"retry_after_seconds,omitempty"`
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <order_id>",
		Short: "Resolve an order's payment status the way the storefront does",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := cfg.Log.NewLogger(os.Stderr)

			blobs, closeBlobs, err := app.NewBlobStore(cmd.Context(), cfg.Blob, logger)
			if err != nil {
				return err
			}
			defer closeBlobs()

			fb := verification.NewFallback(
				store.NewPaymentRecordStore(blobs),
				gateway.NewClient(cfg.GatewayClientConfig(), logger),
				logger,
			)
			res := fb.Verify(cmd.Context(), args[0])

			out := verifyOutput{Source: res.Source, Record: res.Record, RateLimited: res.RateLimited}
			if res.RateLimited {
				out.RetryAfter = gateway.RetryAfterSeconds(res.RetryAfter)
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}
