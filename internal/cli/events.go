package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/payment-reconciler/internal/domain/payment"
	"github.com/example/payment-reconciler/internal/infrastructure/kafka"
)

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Work with payment outcome events",
	}
	cmd.AddCommand(eventsTailCmd())
	return cmd
}

func eventsTailCmd() *cobra.Command {
	var groupID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Stream payment outcome events from Kafka until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if len(cfg.Kafka.Brokers) == 0 {
				return errors.New("no kafka brokers configured: set KAFKA_BROKERS")
			}
			logger := cfg.Log.NewLogger(os.Stderr)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, groupID, logger)
			defer consumer.Close()

			err = consumer.Consume(ctx, printEvent(cmd.OutOrStdout()))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&groupID, "group", "", "consumer group id (empty reads partition 0 without committing)")
	return cmd
}

func printEvent(w io.Writer) kafka.MessageHandler {
	return func(_ context.Context, key, value []byte) error {
		var ev payment.OutcomeEvent
		if err := json.Unmarshal(value, &ev); err != nil {
			return fmt.Errorf("failed to decode event for key %s: %w", key, err)
		}
		_, err := fmt.Fprintf(w, "%s\t%s\torder=%s\tpayment=%s\tamount=%.2f %s\n",
			ev.OccurredAt.Format(time.RFC3339), ev.EventType,
			ev.OrderID, ev.PaymentID, ev.Amount, ev.Currency)
		return err
	}
}
