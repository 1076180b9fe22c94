package posdev

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"kioskterm/internal/session"
	"kioskterm/pkg/api"
)

// Server is a self-contained POS backend implementing the wire contract the
// terminal core consumes: pairing, PIN login, pairing-status, shifts, and a
// websocket status stream. Everything lives in memory; it exists for local
// development and integration tests, not production.
type Server struct {
	devices   *Registry
	codes     *CodeStore
	operators *Directory
	shifts    *Shifts
	issuer    *Issuer
	hub       *Hub
	upgrader  websocket.Upgrader
}

func NewServer(secretKey string) *Server {
	return &Server{
		devices:   NewRegistry(),
		codes:     NewCodeStore(),
		operators: NewDirectory(),
		shifts:    NewShifts(),
		issuer:    NewIssuer(secretKey, 0),
		hub:       NewHub(),
	}
}

// Devices exposes the registry for seeding and assertions.
func (s *Server) Devices() *Registry { return s.devices }

// Codes exposes the pairing-code store for seeding.
func (s *Server) Codes() *CodeStore { return s.codes }

// Operators exposes the operator directory for seeding.
func (s *Server) Operators() *Directory { return s.operators }

// Shifts exposes the shift table for seeding.
func (s *Server) Shifts() *Shifts { return s.shifts }

// RevokeDevice revokes a device and pushes the event to any terminal
// subscribed to the status stream.
func (s *Server) RevokeDevice(token string) bool {
	if !s.devices.Revoke(token) {
		return false
	}
	s.hub.NotifyStatus(token, "revoked")
	return true
}

// Router builds the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/pair/start", s.handlePairStart).Methods("POST")
	r.HandleFunc("/api/pair/confirm", s.handlePairConfirm).Methods("POST")

	r.HandleFunc("/admin/pairing-codes", s.handleMintCode).Methods("POST")
	r.HandleFunc("/admin/operators", s.handleAddOperator).Methods("POST")
	r.HandleFunc("/admin/shifts/open", s.handleOpenShift).Methods("POST")
	r.HandleFunc("/admin/shifts/close", s.handleCloseShift).Methods("POST")
	r.HandleFunc("/admin/devices/revoke", s.handleRevokeDevice).Methods("POST")

	// Everything below authenticates with a device token. Registered last:
	// the prefix matches all remaining paths.
	device := r.PathPrefix("/").Subrouter()
	device.Use(s.deviceAuth)
	device.HandleFunc("/api/login", s.handleLogin).Methods("POST")
	device.HandleFunc("/api/logout", s.handleLogout).Methods("POST")
	device.HandleFunc("/api/pairing-status", s.handlePairingStatus).Methods("GET")
	device.HandleFunc("/api/unpair", s.handleUnpair).Methods("POST")
	device.HandleFunc("/api/shift/current", s.handleCurrentShift).Methods("GET")
	device.HandleFunc("/ws/device", s.handleDeviceWS).Methods("GET")

	return r
}

type contextKey string

const deviceContextKey contextKey = "device"

// deviceAuth resolves the bearer device token. Revoked devices still resolve:
// individual handlers decide whether revoked is acceptable, since the
// pairing-status endpoint must be able to answer "revoked".
func (s *Server) deviceAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			writeError(w, http.StatusUnauthorized, "", "missing device token")
			return
		}

		device := s.devices.GetByToken(token)
		if device == nil {
			writeError(w, http.StatusUnauthorized, "", "unknown device token")
			return
		}
		s.devices.TouchLastSeen(token)

		ctx := context.WithValue(r.Context(), deviceContextKey, device)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func deviceFrom(r *http.Request) *Device {
	d, _ := r.Context().Value(deviceContextKey).(*Device)
	return d
}

func (s *Server) handlePairStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code       string `json:"code"`
		DeviceType string `json:"deviceType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", "invalid request body")
		return
	}

	code := s.codes.Lookup(strings.TrimSpace(req.Code))
	if code == nil || (code.DeviceType != "" && code.DeviceType != req.DeviceType) {
		writeError(w, http.StatusUnprocessableEntity, api.CodeInvalidCode, "pairing code is invalid or expired")
		return
	}

	writeJSON(w, http.StatusOK, api.PairStartResponse{RequireStation: code.RequireStation})
}

func (s *Server) handlePairConfirm(w http.ResponseWriter, r *http.Request) {
	var req api.PairConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", "invalid request body")
		return
	}

	// Identity conflict is checked before the code is consumed, so the same
	// code stays usable after the operator picks another device identity.
	if existing := s.devices.FindByFingerprint(req.Fingerprint); existing != nil {
		writeError(w, http.StatusConflict, api.CodeDeviceInUse, "device is already paired as "+existing.Label)
		return
	}

	code := s.codes.Consume(strings.TrimSpace(req.Code))
	if code == nil || (code.DeviceType != "" && code.DeviceType != req.DeviceType) {
		writeError(w, http.StatusUnprocessableEntity, api.CodeInvalidCode, "pairing code is invalid or expired")
		return
	}

	if session.DeviceType(req.DeviceType).RequiresStation() && req.StationID == nil {
		writeError(w, http.StatusUnprocessableEntity, "", "station is required for this device type")
		return
	}

	device := &Device{
		Token:        uuid.NewString(),
		Fingerprint:  req.Fingerprint,
		Label:        req.DeviceName,
		RestaurantID: code.RestaurantID,
		StationID:    req.StationID,
		DeviceType:   req.DeviceType,
	}
	s.devices.Register(device)

	log.Info().
		Str("label", device.Label).
		Int64("restaurant_id", device.RestaurantID).
		Str("device_type", device.DeviceType).
		Msg("Device paired")

	writeJSON(w, http.StatusOK, api.PairConfirmResponse{
		DeviceToken:  device.Token,
		DeviceLabel:  device.Label,
		RestaurantID: device.RestaurantID,
		StationID:    device.StationID,
		DeviceType:   device.DeviceType,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	device := deviceFrom(r)
	if device.Revoked {
		writeError(w, http.StatusUnauthorized, api.CodeDeviceRevoked, "device pairing has been revoked")
		return
	}

	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", "invalid request body")
		return
	}

	op := s.operators.Authenticate(device.RestaurantID, req.PIN)
	if op == nil {
		writeError(w, http.StatusUnauthorized, api.CodeInvalidPIN, "PIN not recognized")
		return
	}

	token, expiry, err := s.issuer.Issue(op, device)
	if err != nil {
		log.Error().Err(err).Msg("Failed to issue operator token")
		writeError(w, http.StatusInternalServerError, "", "failed to issue token")
		return
	}

	resp := api.LoginResponse{
		JWT:       token,
		JWTExpiry: expiry,
		User:      api.User{ID: op.ID, Name: op.Name, Role: op.Role},
		Device: api.DeviceContext{
			RestaurantID: device.RestaurantID,
			StationID:    device.StationID,
			DeviceType:   device.DeviceType,
		},
	}
	if shiftID, open := s.shifts.Current(device.RestaurantID); open {
		resp.Shift = &api.Shift{ID: shiftID}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePairingStatus(w http.ResponseWriter, r *http.Request) {
	device := deviceFrom(r)
	status := "paired"
	if device.Revoked {
		status = "revoked"
	}
	writeJSON(w, http.StatusOK, api.PairingStatusResponse{Status: status})
}

func (s *Server) handleUnpair(w http.ResponseWriter, r *http.Request) {
	device := deviceFrom(r)
	s.devices.Remove(device.Token)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCurrentShift(w http.ResponseWriter, r *http.Request) {
	restaurantID, err := strconv.ParseInt(r.URL.Query().Get("restaurantId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "", "invalid restaurantId")
		return
	}

	shiftID, open := s.shifts.Current(restaurantID)
	if !open {
		writeError(w, http.StatusNotFound, "", "no open shift")
		return
	}
	writeJSON(w, http.StatusOK, api.Shift{ID: shiftID})
}

func (s *Server) handleDeviceWS(w http.ResponseWriter, r *http.Request) {
	device := deviceFrom(r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("Websocket upgrade failed")
		return
	}

	s.hub.Add(device.Token, conn)
	defer s.hub.Remove(device.Token, conn)
	defer conn.Close()

	// A terminal subscribing after revocation learns immediately.
	if device.Revoked {
		_ = conn.WriteJSON(map[string]string{"status": "revoked"})
		return
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) handleMintCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RestaurantID int64  `json:"restaurantId"`
		DeviceType   string `json:"deviceType"`
		TTLSeconds   int64  `json:"ttlSeconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", "invalid request body")
		return
	}

	requireStation := session.DeviceType(req.DeviceType).RequiresStation()
	code, err := s.codes.Mint(req.RestaurantID, req.DeviceType, requireStation, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", "failed to mint code")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"code":           code.Code,
		"requireStation": code.RequireStation,
		"expiresAt":      code.ExpiresAt,
	})
}

func (s *Server) handleAddOperator(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RestaurantID int64  `json:"restaurantId"`
		Name         string `json:"name"`
		Role         string `json:"role"`
		PIN          string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", "invalid request body")
		return
	}

	op, err := s.operators.Add(req.RestaurantID, req.Name, req.Role, req.PIN)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", "failed to add operator")
		return
	}
	writeJSON(w, http.StatusOK, api.User{ID: op.ID, Name: op.Name, Role: op.Role})
}

func (s *Server) handleOpenShift(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RestaurantID int64 `json:"restaurantId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, api.Shift{ID: s.shifts.Open(req.RestaurantID)})
}

func (s *Server) handleCloseShift(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RestaurantID int64 `json:"restaurantId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", "invalid request body")
		return
	}
	s.shifts.Close(req.RestaurantID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRevokeDevice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceToken string `json:"deviceToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", "invalid request body")
		return
	}

	if !s.RevokeDevice(req.DeviceToken) {
		writeError(w, http.StatusNotFound, "", "unknown device token")
		return
	}

	log.Info().Msg("Device revoked")
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}
