package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/example/payment-reconciler/internal/domain/payment"
	"github.com/example/payment-reconciler/internal/webhook"
)

type normalizeOutput struct {
	Event    payment.PaymentEvent   `json:"event"`
	Decision payment.Decision       `json:"decision"`
	Persist  bool                   `json:"persist"`
	Record   *payment.PaymentRecord `json:"record,omitempty"`
	Warning  string                 `json:"warning,omitempty"`
}

func normalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize [file|-]",
		Short: "Normalize a webhook payload and show the reconciliation decision",
		Long: `Reads a raw gateway webhook body, normalizes it and prints the canonical
event, the decision the engine would take and the record it would store.
Nothing is written.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readPayload(cmd, args)
			if err != nil {
				return err
			}

			ev, err := webhook.NormalizeBytes(raw)
			out := normalizeOutput{Event: ev}
			switch {
			case errors.Is(err, webhook.ErrMalformedWebhook):
				out.Warning = "no order id found; the webhook would be acknowledged and ignored"
				return printJSON(cmd.OutOrStdout(), out)
			case err != nil:
				return err
			}

			out.Decision = payment.Decide(ev)
			out.Persist = payment.ShouldPersist(ev)
			if out.Persist {
				rec := payment.RecordFor(ev)
				out.Record = &rec
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}
