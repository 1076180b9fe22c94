package session

import (
	"context"

	"github.com/rs/zerolog/log"

	"kioskterm/internal/store"
	"kioskterm/pkg/api"
)

// Revalidate reconciles local pairing state with the server's authoritative
// record. It is the only path allowed to downgrade paired -> revoked from a
// background signal. The policy is asymmetric on purpose: a kiosk that loses
// network keeps working on cached trust, a kiosk that is explicitly revoked
// stops the moment the server says so.
func (m *Manager) Revalidate(ctx context.Context) TrustOutcome {
	m.mu.Lock()
	deviceToken := m.rec.DeviceToken
	m.mu.Unlock()

	if deviceToken == "" {
		// Nothing to reconcile on an unpaired terminal.
		return TrustOffline
	}

	status, err := m.client.PairingStatus(ctx, deviceToken)
	outcome := trustOutcomeFrom(status, err)
	m.applyTrust(outcome)
	return outcome
}

// trustOutcomeFrom collapses the check result into the closed outcome set.
// Transport failures and unexpected server answers are both indeterminate.
func trustOutcomeFrom(status string, err error) TrustOutcome {
	if err != nil {
		if api.IsRevoked(err) {
			return TrustRevoked
		}
		return TrustOffline
	}
	switch status {
	case string(store.PairStatePaired):
		return TrustPaired
	case string(store.PairStateRevoked):
		return TrustRevoked
	}
	return TrustOffline
}

// StartRevalidation runs one background revalidation without blocking the
// caller. Front ends call this once after boot; it races user-initiated
// logins, and the reducer guarantees a revoked result wins regardless of
// arrival order.
func (m *Manager) StartRevalidation(ctx context.Context) {
	go func() {
		outcome := m.Revalidate(ctx)
		log.Debug().Str("outcome", string(outcome)).Msg("Background trust revalidation finished")
	}()
}
