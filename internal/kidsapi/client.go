package kidsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxErrorBody caps how much of a failed response is read for its message.
const maxErrorBody = 4 << 10

// StatusError is returned when the backend answers with a non-2xx status.
// Transport failures are returned as plain wrapped errors instead, so
// callers can tell "the backend said no" from "the backend was unreachable".
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("kidsapi: backend returned %d", e.Code)
	}
	return fmt.Sprintf("kidsapi: backend returned %d: %s", e.Code, e.Message)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// Client talks to the KidsTube REST API. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the API at baseURL (no trailing slash).
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// CreateSession exchanges credentials for a bearer token (POST /session).
func (c *Client) CreateSession(ctx context.Context, username, password string) (string, error) {
	var out sessionResponse
	err := c.do(ctx, http.MethodPost, "/session", "", credentials{Username: username, Password: password}, &out)
	if err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("kidsapi: session response carried no token")
	}
	return out.Token, nil
}

// DeleteSession invalidates a bearer token (DELETE /session).
func (c *Client) DeleteSession(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodDelete, "/session", token, nil, nil)
}

// Register creates an administrator account (POST /users).
func (c *Client) Register(ctx context.Context, r Registration) error {
	return c.do(ctx, http.MethodPost, "/users", "", r, nil)
}

// GetUser fetches the administrator record, including the account PIN
// (GET /users?id=...). The backend answers with either an object or a
// one-element array.
func (c *Client) GetUser(ctx context.Context, token, id string) (*User, error) {
	var raw json.RawMessage
	path := "/users?id=" + url.QueryEscape(id)
	if err := c.do(ctx, http.MethodGet, path, token, nil, &raw); err != nil {
		return nil, err
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var users []User
		if err := json.Unmarshal(raw, &users); err != nil {
			return nil, fmt.Errorf("kidsapi: decoding user list: %w", err)
		}
		if len(users) == 0 {
			return nil, &StatusError{Code: http.StatusNotFound, Message: "user not found"}
		}
		return &users[0], nil
	}

	var user User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("kidsapi: decoding user: %w", err)
	}
	return &user, nil
}

// ListRestrictedProfiles returns the administrator's child profiles
// (GET /admin/restricted_users).
func (c *Client) ListRestrictedProfiles(ctx context.Context, token string) ([]Profile, error) {
	var profiles []Profile
	if err := c.do(ctx, http.MethodGet, "/admin/restricted_users", token, nil, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// VerifyProfilePIN checks a child profile's PIN (POST /public/verify-pin).
// A wrong PIN comes back as a StatusError.
func (c *Client) VerifyProfilePIN(ctx context.Context, profileID, pin string) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, http.MethodPost, "/public/verify-pin", "", verifyPINRequest{ProfileID: profileID, PIN: pin}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// do sends one JSON request. in and out may be nil.
func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("kidsapi: encoding %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("kidsapi: building %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("kidsapi: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("kidsapi: decoding %s %s: %w", method, path, err)
	}
	return nil
}

// statusError builds a StatusError, pulling a message out of the body when
// the backend sent one.
func statusError(resp *http.Response) error {
	se := &StatusError{Code: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var er errorResponse
	if json.Unmarshal(data, &er) == nil {
		se.Message = er.Message
		if se.Message == "" {
			se.Message = er.Error
		}
	}
	return se
}
