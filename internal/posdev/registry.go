package posdev

import (
	"sync"
	"time"
)

// Device is one paired terminal as the backend sees it.
type Device struct {
	Token        string
	Fingerprint  string
	Label        string
	RestaurantID int64
	StationID    *int64
	DeviceType   string
	Revoked      bool
	RevokedAt    *time.Time
	CreatedAt    time.Time
	LastSeen     time.Time
}

// Registry is the in-memory table of paired devices.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*Device
}

func NewRegistry() *Registry {
	return &Registry{devices: make(map[string]*Device)}
}

// Register adds a device keyed by its token.
func (r *Registry) Register(d *Device) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d.CreatedAt = time.Now()
	d.LastSeen = d.CreatedAt
	r.devices[d.Token] = d
}

// GetByToken returns a copy of the device for a token, or nil.
func (r *Registry) GetByToken(token string) *Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, exists := r.devices[token]
	if !exists {
		return nil
	}
	cp := *d
	return &cp
}

// FindByFingerprint returns a copy of the active device with this
// fingerprint, or nil. Revoked devices do not count: their identity is free
// to pair again.
func (r *Registry) FindByFingerprint(fingerprint string) *Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if fingerprint == "" {
		return nil
	}
	for _, d := range r.devices {
		if d.Fingerprint == fingerprint && !d.Revoked {
			cp := *d
			return &cp
		}
	}
	return nil
}

// Revoke marks a device revoked. Returns false for unknown tokens.
func (r *Registry) Revoke(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, exists := r.devices[token]
	if !exists {
		return false
	}
	now := time.Now()
	d.Revoked = true
	d.RevokedAt = &now
	return true
}

// Remove deletes a device entirely (explicit unpair).
func (r *Registry) Remove(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.devices, token)
}

// TouchLastSeen records device activity.
func (r *Registry) TouchLastSeen(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d, exists := r.devices[token]; exists {
		d.LastSeen = time.Now()
	}
}

// Count returns the number of registered devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}
