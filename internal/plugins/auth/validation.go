package auth

import (
	"net/mail"
	"strings"
	"time"
)

// minAdminAge is the youngest an administrator may be.
const minAdminAge = 18

// birthDateLayout is what an HTML date input submits.
const birthDateLayout = "2006-01-02"

// normalize trims the free-text fields in place.
func (r *RegisterRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Phone = strings.TrimSpace(r.Phone)
	r.PIN = strings.TrimSpace(r.PIN)
	r.Country = strings.TrimSpace(r.Country)
	r.BirthDate = strings.TrimSpace(r.BirthDate)
}

// validateRegisterRequest performs server-side validation on the
// registration form. Returns an error message or empty string.
func validateRegisterRequest(req *RegisterRequest, now time.Time) string {
	if req.Email == "" {
		return "email is required"
	}
	if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		return "email address is not valid"
	}
	if req.Name == "" {
		return "name is required"
	}
	if req.LastName == "" {
		return "last name is required"
	}
	if req.Password == "" {
		return "password is required"
	}
	if len(req.Password) < 8 {
		return "password must be at least 8 characters"
	}
	if len(req.Password) > 128 {
		return "password must be at most 128 characters"
	}
	if req.Confirm != req.Password {
		return "passwords do not match"
	}
	if !isPIN(req.PIN) {
		return "PIN must be exactly 6 digits"
	}
	if req.BirthDate == "" {
		return "birth date is required"
	}
	born, err := time.Parse(birthDateLayout, req.BirthDate)
	if err != nil {
		return "birth date is not valid"
	}
	if ageOn(born, now) < minAdminAge {
		return "administrators must be at least 18 years old"
	}
	return ""
}

func isPIN(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ageOn returns full years between born and now.
func ageOn(born, now time.Time) int {
	years := now.Year() - born.Year()
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		years--
	}
	return years
}
