package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultTimeout = 10 * time.Second

// Client talks to the POS backend endpoints the terminal core depends on:
// pairing, operator login, pairing-status revalidation and shift lookup.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the given backend base URL. A zero timeout uses
// the default.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// PairStart validates a pairing code with the server and learns whether a
// station selection is mandatory for this device type.
func (c *Client) PairStart(ctx context.Context, code, deviceType string) (*PairStartResponse, error) {
	body := map[string]string{"code": code, "deviceType": deviceType}

	var resp PairStartResponse
	if err := c.do(ctx, http.MethodPost, "/api/pair/start", "", body, &resp, "pair start"); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PairConfirm consumes the pairing code and returns the device token.
func (c *Client) PairConfirm(ctx context.Context, req PairConfirmRequest) (*PairConfirmResponse, error) {
	var resp PairConfirmResponse
	if err := c.do(ctx, http.MethodPost, "/api/pair/confirm", "", req, &resp, "pair confirm"); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login exchanges an operator PIN for a short-lived JWT. The device token
// authenticates the terminal itself.
func (c *Client) Login(ctx context.Context, deviceToken, pin string) (*LoginResponse, error) {
	body := map[string]string{"pin": pin}

	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/login", deviceToken, body, &resp, "login"); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout tells the server the operator session ended. Best effort: the caller
// clears local session state regardless of the result.
func (c *Client) Logout(ctx context.Context, deviceToken string) error {
	return c.do(ctx, http.MethodPost, "/api/logout", deviceToken, nil, nil, "logout")
}

// PairingStatus asks the server whether this device is still paired.
func (c *Client) PairingStatus(ctx context.Context, deviceToken string) (string, error) {
	var resp PairingStatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/pairing-status", deviceToken, nil, &resp, "pairing status"); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// Unpair asks the server to drop this device's pairing. Best effort: local
// state clears regardless of the server response.
func (c *Client) Unpair(ctx context.Context, deviceToken string) error {
	return c.do(ctx, http.MethodPost, "/api/unpair", deviceToken, nil, nil, "unpair")
}

// CurrentShift looks up the open shift for a restaurant. Returns nil without
// error when no shift is open.
func (c *Client) CurrentShift(ctx context.Context, deviceToken string, restaurantID int64) (*Shift, error) {
	path := "/api/shift/current?restaurantId=" + strconv.FormatInt(restaurantID, 10)

	var resp Shift
	err := c.do(ctx, http.MethodGet, path, deviceToken, nil, &resp, "current shift")
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &resp, nil
}

// do performs one JSON round trip. Connectivity failures come back as
// TransportError, non-2xx responses as APIError.
func (c *Client) do(ctx context.Context, method, path, deviceToken string, body, out interface{}, op string) error {
	var reqBody *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		reqBody = bytes.NewBuffer(encoded)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if deviceToken != "" {
		req.Header.Set("Authorization", "Bearer "+deviceToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Str("op", op).Err(err).Msg("Request failed to reach server")
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}

		var errResp errorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errResp); decodeErr == nil {
			apiErr.Code = errResp.Code
			if errResp.Message != "" {
				apiErr.Message = errResp.Message
			}
		}

		log.Debug().
			Str("op", op).
			Int("status", resp.StatusCode).
			Str("code", apiErr.Code).
			Msg("Request rejected by server")

		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", op, err)
		}
	}
	return nil
}
