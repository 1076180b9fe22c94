package cmd

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"kioskterm/internal/session"
	"kioskterm/internal/store"
	"kioskterm/pkg/api"
)

var loginPIN string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in as an operator with a PIN",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		m := GetManager()

		// Reconcile trust before prompting; an explicitly revoked terminal
		// must not offer PIN entry.
		m.Revalidate(ctx)

		pin := loginPIN
		if pin == "" {
			fmt.Print("PIN: ")
			pinBytes, err := term.ReadPassword(int(syscall.Stdin))
			if err != nil {
				return fmt.Errorf("failed to read PIN: %w", err)
			}
			pin = string(pinBytes)
			fmt.Println()
		}

		if err := m.LoginWithPIN(ctx, pin); err != nil {
			switch {
			case errors.Is(err, session.ErrNotPaired):
				return fmt.Errorf("this terminal is not paired yet, run 'kioskterm pair' first")
			case errors.Is(err, session.ErrDeviceRevoked):
				return fmt.Errorf("this terminal's pairing was revoked, run 'kioskterm pair' to pair again")
			case api.IsTransport(err):
				return fmt.Errorf("backend unreachable, try again: %w", err)
			}
			return err
		}

		if !m.RefreshShift(ctx) {
			fmt.Println("Logged in. No shift is open yet; open one before taking orders.")
			return nil
		}

		snap := m.Snapshot()
		fmt.Printf("Logged in as %s (%s), shift %d.\n", snap.Operator.Name, snap.Operator.Role, *snap.ShiftID)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the operator session",
	RunE: func(cmd *cobra.Command, args []string) error {
		GetManager().Logout(context.Background())
		fmt.Println("Logged out. The terminal stays paired.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pairing and session status",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap := GetManager().Snapshot()

		switch snap.PairState {
		case store.PairStateNone:
			fmt.Println("Not paired. Run 'kioskterm pair' to pair this terminal.")
			return nil
		case store.PairStateRevoked:
			fmt.Println("Pairing revoked by the backend. Run 'kioskterm pair' to pair again.")
			return nil
		}

		fmt.Printf("Paired as: %s (restaurant %d, %s)\n", snap.DeviceLabel, snap.RestaurantID, snap.DeviceType)
		if snap.StationID != nil {
			fmt.Printf("Station: %d\n", *snap.StationID)
		}

		if snap.Operator == nil {
			fmt.Println("No operator logged in.")
			return nil
		}

		fmt.Printf("Operator: %s (%s)\n", snap.Operator.Name, snap.Operator.Role)
		if snap.IsSessionValid {
			fmt.Printf("Session valid for %v\n", time.Until(snap.JWTExpiry).Round(time.Second))
		} else {
			fmt.Println("Session expired. Run 'kioskterm login' to re-authenticate.")
		}

		if snap.ShiftID != nil {
			fmt.Printf("Shift: %d\n", *snap.ShiftID)
		} else {
			fmt.Println("No shift bound.")
		}
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginPIN, "pin", "", "operator PIN (for non-interactive use)")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusCmd)
}
