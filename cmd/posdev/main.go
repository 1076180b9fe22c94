package main

import (
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kioskterm/internal/posdev"
	"kioskterm/internal/session"
)

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

func main() {
	var addr, secret string
	var seed bool
	flag.StringVar(&addr, "addr", ":8980", "listen address")
	flag.StringVar(&secret, "secret", "posdev-secret", "JWT signing secret")
	flag.BoolVar(&seed, "seed", false, "seed a demo restaurant with a pairing code, operator and open shift")
	flag.Parse()

	server := posdev.NewServer(secret)

	if seed {
		const restaurantID = 1

		code, err := server.Codes().Mint(restaurantID, string(session.DeviceCommander), false, time.Hour)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to mint pairing code")
		}
		if _, err := server.Operators().Add(restaurantID, "Demo Operator", "cashier", "123456"); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed operator")
		}
		shiftID := server.Shifts().Open(restaurantID)

		log.Info().
			Str("pairing_code", code.Code).
			Str("operator_pin", "123456").
			Int64("shift_id", shiftID).
			Msg("Seeded demo restaurant")
	}

	log.Info().Str("addr", addr).Msg("POS dev backend listening")
	if err := http.ListenAndServe(addr, server.Router()); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}
