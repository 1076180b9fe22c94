package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const stateFileName = "state.yaml"

// FileStore persists the credential record to a yaml file in the terminal's
// state directory. Writes are synchronous so that a process restart right
// after a transition does not lose it.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore rooted at dir, creating dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &FileStore{path: filepath.Join(dir, stateFileName)}, nil
}

// Load reads the persisted record. A missing state file is not an error: it
// yields a zero record with pair state "none", which is exactly the state of
// a terminal that has never been paired.
func (s *FileStore) Load() (Record, error) {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return Record{PairState: PairStateNone}, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return Record{PairState: PairStateNone}, nil
		}
		return Record{}, fmt.Errorf("failed to read state file: %w", err)
	}

	var rec Record
	if err := v.Unmarshal(&rec); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal state file: %w", err)
	}
	if rec.PairState == "" {
		rec.PairState = PairStateNone
	}
	return rec, nil
}

// Save writes the record back to the state file.
func (s *FileStore) Save(rec Record) error {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("yaml")

	v.Set("device_token", rec.DeviceToken)
	v.Set("device_label", rec.DeviceLabel)
	v.Set("fingerprint", rec.Fingerprint)
	v.Set("restaurant_id", rec.RestaurantID)
	v.Set("device_type", rec.DeviceType)
	v.Set("pair_state", string(rec.PairState))
	v.Set("jwt", rec.JWT)
	v.Set("jwt_expiry", rec.JWTExpiry)

	if rec.StationID != nil {
		v.Set("station_id", *rec.StationID)
	}
	if rec.ShiftID != nil {
		v.Set("shift_id", *rec.ShiftID)
	}
	if rec.Operator != nil {
		v.Set("operator.id", rec.Operator.ID)
		v.Set("operator.name", rec.Operator.Name)
		v.Set("operator.role", rec.Operator.Role)
	}

	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	log.Debug().
		Str("path", s.path).
		Str("pair_state", string(rec.PairState)).
		Msg("Saved terminal state")

	return nil
}
