package posdev

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"
)

const defaultCodeTTL = 5 * time.Minute

// PairingCode is a short-lived, human-enterable code authorizing exactly one
// pairing confirmation.
type PairingCode struct {
	Code           string
	RestaurantID   int64
	DeviceType     string
	RequireStation bool
	ExpiresAt      time.Time
	UsedAt         *time.Time
}

// CodeStore mints and consumes pairing codes.
type CodeStore struct {
	mu    sync.Mutex
	codes map[string]*PairingCode
}

func NewCodeStore() *CodeStore {
	return &CodeStore{codes: make(map[string]*PairingCode)}
}

// Mint creates a six-digit code scoped to a restaurant and device type.
func (s *CodeStore) Mint(restaurantID int64, deviceType string, requireStation bool, ttl time.Duration) (*PairingCode, error) {
	if ttl <= 0 {
		ttl = defaultCodeTTL
	}

	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return nil, fmt.Errorf("failed to generate pairing code: %w", err)
	}

	code := &PairingCode{
		Code:           fmt.Sprintf("%06d", n.Int64()),
		RestaurantID:   restaurantID,
		DeviceType:     deviceType,
		RequireStation: requireStation,
		ExpiresAt:      time.Now().Add(ttl),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code.Code] = code
	return code, nil
}

// Lookup returns the code if it is still live: known, unexpired, unused.
func (s *CodeStore) Lookup(code string) *PairingCode {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.codes[code]
	if !exists || c.UsedAt != nil || time.Now().After(c.ExpiresAt) {
		return nil
	}
	cp := *c
	return &cp
}

// Consume marks a code used. Returns the code, or nil if it was not live —
// a second confirmation with an already-consumed code fails here.
func (s *CodeStore) Consume(code string) *PairingCode {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.codes[code]
	if !exists || c.UsedAt != nil || time.Now().After(c.ExpiresAt) {
		return nil
	}
	now := time.Now()
	c.UsedAt = &now
	cp := *c
	return &cp
}
