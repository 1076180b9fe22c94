package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"kioskterm/internal/session"
	"kioskterm/internal/store"
	"kioskterm/pkg/api"
	"kioskterm/pkg/config"
)

var (
	cfgFile string
	cfg     *config.Config
	manager *session.Manager
)

var rootCmd = &cobra.Command{
	Use:   "kioskterm",
	Short: "Kiosk terminal for the restaurant POS platform",
	Long: `Manages this terminal's pairing with the POS backend and the operator
session on it: pair with a code, log in with a PIN, check status, and
watch for remote revocation.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg.Log.ConfigureZerolog()

		st, err := store.NewFileStore(cfg.State.Dir)
		if err != nil {
			return fmt.Errorf("failed to open state store: %w", err)
		}

		manager, err = session.New(st, api.New(cfg.Server.Endpoint, cfg.Server.Timeout))
		if err != nil {
			return err
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.kioskterm/config.yaml)")
	rootCmd.PersistentFlags().String("server", "", "POS backend endpoint")

	viper.BindPFlag("server.endpoint", rootCmd.PersistentFlags().Lookup("server"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// GetManager returns the session manager built during pre-run.
func GetManager() *session.Manager {
	return manager
}
