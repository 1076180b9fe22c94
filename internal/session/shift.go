package session

import (
	"context"

	"github.com/rs/zerolog/log"
)

// RefreshShift queries the server for the restaurant's current open shift and
// binds it to the session. Returns false when no shift is open or the lookup
// failed; either way any stale shift id is cleared first. "No usable shift"
// is a normal state (the natural next step is prompting to open one), never
// an error.
func (m *Manager) RefreshShift(ctx context.Context) bool {
	m.mu.Lock()
	deviceToken := m.rec.DeviceToken
	restaurantID := m.rec.RestaurantID
	m.mu.Unlock()

	if deviceToken == "" {
		return false
	}

	shift, err := m.client.CurrentShift(ctx, deviceToken, restaurantID)
	if err != nil || shift == nil {
		if err != nil {
			log.Debug().Err(err).Msg("Shift lookup failed")
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.rec.ShiftID != nil {
			m.rec.ShiftID = nil
			m.persistLocked()
		}
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	id := shift.ID
	m.rec.ShiftID = &id
	m.persistLocked()

	log.Debug().Int64("shift_id", id).Msg("Shift bound to session")
	return true
}
