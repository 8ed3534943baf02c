// Package kidsapi is the client for the KidsTube REST backend: sessions,
// administrator accounts, restricted profiles, and profile PIN checks.
// Field names follow the backend's JSON exactly.
package kidsapi

// Profile is a restricted (child) profile as returned by the backend.
type Profile struct {
	ID       string `json:"_id"`
	FullName string `json:"full_name"`
	Avatar   string `json:"avatar"`
	PIN      string `json:"pin,omitempty"`
}

// User is an administrator account record.
type User struct {
	ID        string `json:"_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	LastName  string `json:"lastname"`
	Phone     string `json:"phone,omitempty"`
	PIN       string `json:"pin"`
	Country   string `json:"country,omitempty"`
	BirthDate string `json:"birthdate,omitempty"`
}

// Registration is the body of a new administrator account request.
type Registration struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone,omitempty"`
	PIN       string `json:"pin"`
	Name      string `json:"name"`
	LastName  string `json:"lastname"`
	Country   string `json:"country,omitempty"`
	BirthDate string `json:"birthdate"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string `json:"token"`
}

type verifyPINRequest struct {
	ProfileID string `json:"profileId"`
	PIN       string `json:"pin"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
