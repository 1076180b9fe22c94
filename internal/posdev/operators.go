package posdev

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Operator is a staff member who can log in with a PIN on a paired terminal.
type Operator struct {
	ID           int64
	Name         string
	Role         string
	RestaurantID int64
	pinHash      []byte
}

// Directory holds operators per restaurant. PINs are stored bcrypt-hashed.
type Directory struct {
	mu        sync.RWMutex
	nextID    int64
	operators []*Operator
}

func NewDirectory() *Directory {
	return &Directory{nextID: 1}
}

// Add registers an operator with the given PIN.
func (d *Directory) Add(restaurantID int64, name, role, pin string) (*Operator, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash PIN: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	op := &Operator{
		ID:           d.nextID,
		Name:         name,
		Role:         role,
		RestaurantID: restaurantID,
		pinHash:      hash,
	}
	d.nextID++
	d.operators = append(d.operators, op)

	cp := *op
	return &cp, nil
}

// Authenticate finds the operator in a restaurant whose PIN matches. PIN-only
// login means the PIN itself identifies the operator within the restaurant.
func (d *Directory) Authenticate(restaurantID int64, pin string) *Operator {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, op := range d.operators {
		if op.RestaurantID != restaurantID {
			continue
		}
		if bcrypt.CompareHashAndPassword(op.pinHash, []byte(pin)) == nil {
			cp := *op
			return &cp
		}
	}
	return nil
}
