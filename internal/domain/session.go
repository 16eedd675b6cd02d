package domain

import "time"

// Session es la vista decodificada de un token valido.
type Session struct {
	UserID    string    `json:"user_id"`
	TokenID   string    `json:"-"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AuthState string

const (
	StateAnonymous     AuthState = "anonymous"
	StateAuthenticated AuthState = "authenticated"
)
