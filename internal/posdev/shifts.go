package posdev

import "sync"

// Shifts tracks the single open shift per restaurant.
type Shifts struct {
	mu     sync.Mutex
	nextID int64
	open   map[int64]int64 // restaurant id -> shift id
}

func NewShifts() *Shifts {
	return &Shifts{nextID: 1, open: make(map[int64]int64)}
}

// Open starts a shift for a restaurant, or returns the one already open.
func (s *Shifts) Open(restaurantID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, exists := s.open[restaurantID]; exists {
		return id
	}
	id := s.nextID
	s.nextID++
	s.open[restaurantID] = id
	return id
}

// Close ends the open shift for a restaurant, if any.
func (s *Shifts) Close(restaurantID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.open, restaurantID)
}

// Current returns the open shift for a restaurant.
func (s *Shifts) Current(restaurantID int64) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, exists := s.open[restaurantID]
	return id, exists
}
