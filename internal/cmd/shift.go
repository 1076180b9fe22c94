package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var shiftCmd = &cobra.Command{
	Use:   "shift",
	Short: "Shift binding commands",
}

var shiftRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-sync the bound shift with the backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		m := GetManager()

		if m.RefreshShift(context.Background()) {
			fmt.Printf("Bound to shift %d.\n", *m.Snapshot().ShiftID)
			return nil
		}

		fmt.Println("No shift is open for this restaurant.")
		return nil
	},
}

func init() {
	shiftCmd.AddCommand(shiftRefreshCmd)
	rootCmd.AddCommand(shiftCmd)
}
