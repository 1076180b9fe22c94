package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"kioskterm/internal/session"
	"kioskterm/internal/store"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep trust state reconciled until interrupted",
	Long: `Runs a background revalidation and then follows the backend's device
status stream, reconnecting on connection loss. Exits when the pairing is
revoked or on interrupt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		m := GetManager()
		m.StartRevalidation(ctx)

		for {
			err := m.Watch(ctx)
			if ctx.Err() != nil {
				fmt.Println("Stopped.")
				return nil
			}

			snap := m.Snapshot()
			if snap.PairState == store.PairStateRevoked {
				return fmt.Errorf("pairing revoked by the backend")
			}
			if errors.Is(err, session.ErrNotPaired) {
				return fmt.Errorf("this terminal is not paired yet, run 'kioskterm pair' first")
			}
			if err != nil {
				// Connectivity loss: trust is preserved, retry the stream.
				log.Debug().Err(err).Msg("Status stream interrupted, reconnecting")
			}

			select {
			case <-ctx.Done():
				fmt.Println("Stopped.")
				return nil
			case <-time.After(5 * time.Second):
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
