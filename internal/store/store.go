package store

// PairState is the terminal's last known pairing state.
type PairState string

const (
	PairStateNone    PairState = "none"
	PairStatePaired  PairState = "paired"
	PairStateRevoked PairState = "revoked"
)

// Operator is the profile of the operator currently logged in on this terminal.
type Operator struct {
	ID   int64  `mapstructure:"id" json:"id"`
	Name string `mapstructure:"name" json:"name"`
	Role string `mapstructure:"role" json:"role"`
}

// Record is the single persisted credential record for one terminal.
// Device trust fields (token, label, fingerprint, restaurant/station/type) and
// operator session fields (JWT, expiry, operator, shift) have independent
// lifetimes: logout clears the session fields only, unpair clears everything.
type Record struct {
	DeviceToken  string    `mapstructure:"device_token"`
	DeviceLabel  string    `mapstructure:"device_label"`
	Fingerprint  string    `mapstructure:"fingerprint"`
	RestaurantID int64     `mapstructure:"restaurant_id"`
	StationID    *int64    `mapstructure:"station_id"`
	DeviceType   string    `mapstructure:"device_type"`
	PairState    PairState `mapstructure:"pair_state"`

	JWT       string    `mapstructure:"jwt"`
	JWTExpiry int64     `mapstructure:"jwt_expiry"` // unix milliseconds
	Operator  *Operator `mapstructure:"operator"`
	ShiftID   *int64    `mapstructure:"shift_id"`
}

// Store persists the credential record. All reads and writes of session state
// go through the session manager; nothing else should touch the store.
type Store interface {
	Load() (Record, error)
	Save(Record) error
}
