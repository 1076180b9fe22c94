package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"kioskterm/internal/store"
	"kioskterm/pkg/api"
)

const pinLength = 6

// Manager is the single owner of the terminal's trust and session state. All
// mutation goes through its action methods; everything else reads snapshots.
// It performs no I/O at construction beyond one synchronous store read, so
// the first render of a front end already reflects best-known state.
type Manager struct {
	mu     sync.Mutex
	rec    store.Record
	store  store.Store
	client *api.Client
	now    func() time.Time
}

// New hydrates a manager from the store.
func New(st store.Store, client *api.Client) (*Manager, error) {
	rec, err := st.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to hydrate terminal state: %w", err)
	}
	return &Manager{
		rec:    rec,
		store:  st,
		client: client,
		now:    time.Now,
	}, nil
}

// Snapshot returns the current derived read model. Validity is recomputed on
// every call; it is a pure function of stored expiry and the clock.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// PairRequest carries the operator's input for a pairing confirmation.
type PairRequest struct {
	Code       string
	DeviceType DeviceType
	DeviceName string
	StationID  *int64
}

// PairStart validates a pairing code with the server. The returned flag tells
// the front end whether to show the station picker before confirming.
func (m *Manager) PairStart(ctx context.Context, code string, deviceType DeviceType) (bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return false, ErrEmptyCode
	}
	if !deviceType.Known() {
		return false, ErrUnknownDeviceType
	}

	resp, err := m.client.PairStart(ctx, code, deviceType.String())
	if err != nil {
		return false, err
	}

	if resp.RequireStation && !deviceType.RequiresStation() {
		return false, ErrStationMismatch
	}
	return resp.RequireStation, nil
}

// PairConfirm finalizes pairing. On success the device token and context are
// persisted before anything else happens, so a restart immediately after
// pairing does not lose trust.
func (m *Manager) PairConfirm(ctx context.Context, req PairRequest) error {
	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" {
		return ErrEmptyCode
	}
	if !req.DeviceType.Known() {
		return ErrUnknownDeviceType
	}
	if req.DeviceType.RequiresStation() && req.StationID == nil {
		return ErrStationRequired
	}

	resp, err := m.client.PairConfirm(ctx, api.PairConfirmRequest{
		Code:        req.Code,
		DeviceType:  req.DeviceType.String(),
		DeviceName:  req.DeviceName,
		StationID:   req.StationID,
		Fingerprint: m.Fingerprint(),
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.rec.DeviceToken = resp.DeviceToken
	m.rec.DeviceLabel = resp.DeviceLabel
	m.rec.RestaurantID = resp.RestaurantID
	m.rec.StationID = resp.StationID
	m.rec.DeviceType = resp.DeviceType
	m.rec.PairState = store.PairStatePaired
	m.clearOperatorLocked()
	m.persistLocked()

	log.Info().
		Str("device_label", m.rec.DeviceLabel).
		Int64("restaurant_id", m.rec.RestaurantID).
		Str("device_type", m.rec.DeviceType).
		Msg("Device paired")

	return nil
}

// LoginWithPIN authenticates an operator on this paired terminal. The device
// record in the response is authoritative and overwrites cached context; an
// open shift in the response is bound immediately.
func (m *Manager) LoginWithPIN(ctx context.Context, pin string) error {
	if !validPIN(pin) {
		return ErrInvalidPIN
	}

	m.mu.Lock()
	switch {
	case m.rec.PairState == store.PairStateRevoked:
		m.mu.Unlock()
		return ErrDeviceRevoked
	case m.rec.DeviceToken == "" || m.rec.PairState != store.PairStatePaired:
		m.mu.Unlock()
		return ErrNotPaired
	}
	deviceToken := m.rec.DeviceToken
	m.mu.Unlock()

	resp, err := m.client.Login(ctx, deviceToken, pin)
	if err != nil {
		if api.IsRevoked(err) {
			// Login doubles as a trust check: a revoked response downgrades
			// exactly like a background revalidation.
			m.applyTrust(TrustRevoked)
			return ErrDeviceRevoked
		}
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// A revocation may have landed while the login was in flight. Revoked is
	// terminal until re-pair, so the stale login result is discarded.
	if m.rec.PairState != store.PairStatePaired || m.rec.DeviceToken == "" {
		return ErrDeviceRevoked
	}

	m.rec.JWT = resp.JWT
	m.rec.JWTExpiry = NormalizeExpiry(resp.JWTExpiry)
	m.rec.Operator = &store.Operator{ID: resp.User.ID, Name: resp.User.Name, Role: resp.User.Role}
	m.rec.RestaurantID = resp.Device.RestaurantID
	m.rec.StationID = resp.Device.StationID
	m.rec.DeviceType = resp.Device.DeviceType
	if resp.Shift != nil {
		id := resp.Shift.ID
		m.rec.ShiftID = &id
	} else {
		m.rec.ShiftID = nil
	}
	m.persistLocked()

	log.Info().
		Str("operator", resp.User.Name).
		Str("role", resp.User.Role).
		Msg("Operator logged in")

	return nil
}

// Logout ends the operator session. Device trust is untouched: logging out
// must never require re-pairing. The server call is best effort.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	deviceToken := m.rec.DeviceToken
	m.mu.Unlock()

	if deviceToken != "" {
		if err := m.client.Logout(ctx, deviceToken); err != nil {
			log.Debug().Err(err).Msg("Logout call failed, clearing local session anyway")
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearOperatorLocked()
	m.persistLocked()

	log.Info().Msg("Operator logged out")
}

// Unpair drops this terminal's trust entirely. The server call is best
// effort; local state clears regardless. The fingerprint survives so the
// physical device keeps a stable identity across re-pairs.
func (m *Manager) Unpair(ctx context.Context) {
	m.mu.Lock()
	deviceToken := m.rec.DeviceToken
	fingerprint := m.rec.Fingerprint
	m.mu.Unlock()

	if deviceToken != "" {
		if err := m.client.Unpair(ctx, deviceToken); err != nil {
			log.Debug().Err(err).Msg("Unpair call failed, clearing local state anyway")
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = store.Record{PairState: store.PairStateNone, Fingerprint: fingerprint}
	m.persistLocked()

	log.Info().Msg("Device unpaired")
}

// Fingerprint returns the stable client-generated device identifier, minting
// and persisting one on first use.
func (m *Manager) Fingerprint() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rec.Fingerprint == "" {
		m.rec.Fingerprint = uuid.NewString()
		m.persistLocked()
	}
	return m.rec.Fingerprint
}

func validPIN(pin string) bool {
	if len(pin) != pinLength {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
