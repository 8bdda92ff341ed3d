package auth

import "time"

type Status string

const (
	// StatusUnknown is the state before Init has read the credential slot.
	StatusUnknown         Status = "unknown"
	StatusAuthenticated   Status = "authenticated"
	StatusUnauthenticated Status = "unauthenticated"
)

// Session is the decoded view of the current credential.
//
// A session is derived entirely from the stored token; it carries no
// server-side state of its own.
type Session struct {
	Status    Status
	SubjectID string
	Email     string
	Name      string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

// TokenInfo is the backend's answer to a token validation request.
type TokenInfo struct {
	Valid   bool   `json:"valid"`
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// User is the backend's current-user payload.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}
