package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"kioskterm/internal/session"
	"kioskterm/pkg/api"
)

var (
	pairDeviceType string
	pairDeviceName string
	pairStationID  int64
)

var pairCmd = &cobra.Command{
	Use:   "pair [code]",
	Short: "Pair this terminal with the restaurant backend",
	Long: `Exchange a pairing code for a device token. The code is issued by a
restaurant administrator and authorizes exactly one pairing.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		m := GetManager()

		var code string
		if len(args) > 0 {
			code = args[0]
		} else {
			fmt.Print("Pairing code: ")
			fmt.Scanln(&code)
		}

		deviceType := session.DeviceType(pairDeviceType)

		requireStation, err := m.PairStart(ctx, code, deviceType)
		if err != nil {
			if errors.Is(err, session.ErrStationMismatch) {
				return fmt.Errorf("this code is misconfigured for a %s device, ask the administrator to issue a new one", deviceType)
			}
			return fmt.Errorf("pairing failed: %w", err)
		}

		req := session.PairRequest{
			Code:       code,
			DeviceType: deviceType,
			DeviceName: pairDeviceName,
		}
		if requireStation {
			if !cmd.Flags().Changed("station") {
				return fmt.Errorf("a %s must be bound to a station, re-run with --station", deviceType)
			}
			req.StationID = &pairStationID
		}

		if err := m.PairConfirm(ctx, req); err != nil {
			if api.IsDeviceInUse(err) {
				return fmt.Errorf("this device is already paired elsewhere; unpair it there or use a different device")
			}
			return fmt.Errorf("pairing failed: %w", err)
		}

		snap := m.Snapshot()
		fmt.Printf("Paired as %q (restaurant %d). Run 'kioskterm login' to start a session.\n",
			snap.DeviceLabel, snap.RestaurantID)
		return nil
	},
}

var unpairCmd = &cobra.Command{
	Use:   "unpair",
	Short: "Drop this terminal's pairing",
	RunE: func(cmd *cobra.Command, args []string) error {
		GetManager().Unpair(context.Background())
		fmt.Println("Device unpaired.")
		return nil
	},
}

func init() {
	pairCmd.Flags().StringVar(&pairDeviceType, "type", string(session.DeviceCashRegister),
		"device type: cash_register, commander or monitor")
	pairCmd.Flags().StringVar(&pairDeviceName, "name", "", "human label for this terminal")
	pairCmd.Flags().Int64Var(&pairStationID, "station", 0, "station to bind (station-bound device types)")
	pairCmd.MarkFlagRequired("name")

	rootCmd.AddCommand(pairCmd)
	rootCmd.AddCommand(unpairCmd)
}
