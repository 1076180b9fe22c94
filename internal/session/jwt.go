package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GraceWindow is subtracted from the JWT's real expiry when deciding whether
// the session is still usable, so an operation never starts with a token that
// could expire mid-flight.
const GraceWindow = 15 * time.Second

// Expiry values below this are unix seconds; at or above, unix milliseconds.
// 1e12 ms is Sep 2001, 1e12 s is ~33658 AD, so the ranges cannot collide.
const expiryMillisFloor = int64(1e12)

// NormalizeExpiry converts a server-supplied expiry, in seconds or
// milliseconds, to unix milliseconds.
func NormalizeExpiry(v int64) int64 {
	if v <= 0 {
		return 0
	}
	if v < expiryMillisFloor {
		return v * 1000
	}
	return v
}

// expiryValid is the grace-window check: the session is valid iff more than
// GraceWindow remains before the stored expiry. The boundary is exclusive.
func expiryValid(expiryMillis int64, now time.Time) bool {
	if expiryMillis <= 0 {
		return false
	}
	return expiryMillis-now.UnixMilli() > GraceWindow.Milliseconds()
}

// OperatorClaims are the JWT claims the terminal cares about. The signature is
// not validated here: the terminal only extracts metadata, the backend is the
// one enforcing token validity on every request.
type OperatorClaims struct {
	OperatorID   int64  `json:"operator_id"`
	Role         string `json:"role"`
	RestaurantID int64  `json:"restaurant_id"`
	StationID    *int64 `json:"station_id"`
	DeviceType   string `json:"device_type"`
	jwt.RegisteredClaims
}

// ExtractClaims decodes a JWT's payload without verifying its signature.
func ExtractClaims(token string) (*OperatorClaims, error) {
	var claims OperatorClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("failed to parse JWT claims: %w", err)
	}
	return &claims, nil
}
