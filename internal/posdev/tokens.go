package posdev

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultTokenTTL = 8 * time.Hour

// Issuer mints operator JWTs bound to a paired device.
type Issuer struct {
	secretKey string
	ttl       time.Duration
}

func NewIssuer(secretKey string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Issuer{secretKey: secretKey, ttl: ttl}
}

// Issue signs an HS256 token for an operator on a device. Returns the token
// and its expiry in unix milliseconds.
func (i *Issuer) Issue(op *Operator, device *Device) (string, int64, error) {
	if i.secretKey == "" {
		return "", 0, fmt.Errorf("JWT secret key is empty")
	}

	now := time.Now().UTC()
	expiresAt := now.Add(i.ttl)

	claims := jwt.MapClaims{
		"operator_id":   op.ID,
		"role":          op.Role,
		"restaurant_id": device.RestaurantID,
		"device_type":   device.DeviceType,
		"jti":           uuid.New().String(),
		"iat":           now.Unix(),
		"exp":           expiresAt.Unix(),
	}
	if device.StationID != nil {
		claims["station_id"] = *device.StationID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(i.secretKey))
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expiresAt.UnixMilli(), nil
}
