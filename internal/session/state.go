package session

import (
	"time"

	"github.com/rs/zerolog/log"

	"kioskterm/internal/store"
)

// TrustOutcome is the closed set of results a pairing-status check can
// produce. Offline never downgrades trust; only an explicit revoked signal
// does.
type TrustOutcome string

const (
	TrustPaired  TrustOutcome = "paired"
	TrustRevoked TrustOutcome = "revoked"
	TrustOffline TrustOutcome = "offline"
)

// Snapshot is the read model the rest of the application consumes. It is a
// value: fields are computed at read time and do not update afterwards.
type Snapshot struct {
	PairState      store.PairState
	HasPair        bool
	IsSessionValid bool
	DeviceLabel    string
	RestaurantID   int64
	StationID      *int64
	DeviceType     DeviceType
	ShiftID        *int64
	Operator       *store.Operator
	JWT            string
	JWTExpiry      time.Time
}

// CanOperate reports whether order/cash operations are allowed: paired,
// valid operator session, and a bound shift. Any other combination routes
// back to pairing or PIN entry.
func (s Snapshot) CanOperate() bool {
	return s.HasPair && s.IsSessionValid && s.ShiftID != nil
}

// snapshotLocked builds the derived read model from the current record.
// Callers hold m.mu.
func (m *Manager) snapshotLocked() Snapshot {
	rec := m.rec
	snap := Snapshot{
		PairState:      rec.PairState,
		HasPair:        rec.DeviceToken != "" && rec.PairState == store.PairStatePaired,
		IsSessionValid: rec.JWT != "" && expiryValid(rec.JWTExpiry, m.now()),
		DeviceLabel:    rec.DeviceLabel,
		RestaurantID:   rec.RestaurantID,
		DeviceType:     DeviceType(rec.DeviceType),
		JWT:            rec.JWT,
	}
	if rec.JWTExpiry > 0 {
		snap.JWTExpiry = time.UnixMilli(rec.JWTExpiry)
	}
	if rec.StationID != nil {
		v := *rec.StationID
		snap.StationID = &v
	}
	if rec.ShiftID != nil {
		v := *rec.ShiftID
		snap.ShiftID = &v
	}
	if rec.Operator != nil {
		op := *rec.Operator
		snap.Operator = &op
	}
	return snap
}

// applyTrust is the single reducer entry point for pairing-status signals,
// whether they come from the background revalidator, the realtime watcher or
// a revoked login response. Revocation is sticky: once revoked, nothing but
// an explicit re-pair brings the terminal back, regardless of the arrival
// order of in-flight results.
func (m *Manager) applyTrust(outcome TrustOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch outcome {
	case TrustPaired:
		// Reaffirm only; a terminal already revoked locally stays revoked
		// until re-paired.
		if m.rec.PairState == store.PairStateRevoked {
			return
		}
		if m.rec.DeviceToken != "" && m.rec.PairState != store.PairStatePaired {
			m.rec.PairState = store.PairStatePaired
			m.persistLocked()
		}

	case TrustRevoked:
		if m.rec.PairState == store.PairStateRevoked && m.rec.DeviceToken == "" {
			return
		}
		log.Warn().
			Str("device_label", m.rec.DeviceLabel).
			Msg("Device revoked by server, clearing trust")

		m.rec.DeviceToken = ""
		m.rec.PairState = store.PairStateRevoked
		m.clearOperatorLocked()
		m.persistLocked()

	case TrustOffline:
		// Fail open: connectivity loss never degrades cached trust.
	}
}

// clearOperatorLocked drops the operator session fields, leaving device trust
// untouched. Callers hold m.mu.
func (m *Manager) clearOperatorLocked() {
	m.rec.JWT = ""
	m.rec.JWTExpiry = 0
	m.rec.Operator = nil
	m.rec.ShiftID = nil
}

// persistLocked writes the record through to the store. Callers hold m.mu.
func (m *Manager) persistLocked() {
	if err := m.store.Save(m.rec); err != nil {
		log.Error().Err(err).Msg("Failed to persist terminal state")
	}
}
