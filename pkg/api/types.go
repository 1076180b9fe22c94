package api

// PairStartResponse declares up front whether this pairing code requires the
// terminal to pick a station before confirming.
type PairStartResponse struct {
	RequireStation bool `json:"requireStation"`
}

// PairConfirmRequest finalizes a pairing code into a device token.
type PairConfirmRequest struct {
	Code        string `json:"code"`
	DeviceType  string `json:"deviceType"`
	DeviceName  string `json:"deviceName"`
	StationID   *int64 `json:"stationId,omitempty"`
	DeviceID    string `json:"deviceId,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// PairConfirmResponse carries the server-issued device token plus the
// authoritative device context the terminal persists.
type PairConfirmResponse struct {
	DeviceToken  string `json:"deviceToken"`
	DeviceLabel  string `json:"deviceLabel"`
	RestaurantID int64  `json:"restaurantId"`
	StationID    *int64 `json:"stationId"`
	DeviceType   string `json:"deviceType"`
}

// User is the operator profile returned by a successful PIN login.
type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// DeviceContext is the server's authoritative record of this device. The
// terminal always overwrites its cached context with these values on login.
type DeviceContext struct {
	RestaurantID int64  `json:"restaurantId"`
	StationID    *int64 `json:"stationId"`
	DeviceType   string `json:"deviceType"`
}

// Shift identifies the current operational shift.
type Shift struct {
	ID int64 `json:"id"`
}

// LoginResponse is the result of a PIN login on a paired device. JWTExpiry may
// come back in seconds or milliseconds depending on the backend version; the
// session layer normalizes it.
type LoginResponse struct {
	JWT       string        `json:"jwt"`
	JWTExpiry int64         `json:"jwtExpiry"`
	User      User          `json:"user"`
	Device    DeviceContext `json:"device"`
	Shift     *Shift        `json:"shift,omitempty"`
}

// PairingStatusResponse is the server's authoritative pairing state.
type PairingStatusResponse struct {
	Status string `json:"status"` // "paired" | "revoked"
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
