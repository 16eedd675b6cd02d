package service

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLength es el largo minimo del secreto de firma.
const MinSecretLength = 32

var (
	ErrSecretTooShort = errors.New("jwt secret must be at least 32 bytes")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenSignature = errors.New("token signature mismatch")
	ErrTokenExpired   = errors.New("token expired")
)

type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// TokenCodec emite y valida tokens de sesion firmados con HS256.
type TokenCodec struct {
	secret           []byte
	issuer           string
	refreshThreshold time.Duration
	skew             time.Duration
	now              func() time.Time
}

type CodecOption func(*TokenCodec)

func WithIssuer(issuer string) CodecOption {
	return func(c *TokenCodec) {
		if strings.TrimSpace(issuer) != "" {
			c.issuer = issuer
		}
	}
}

func WithRefreshThreshold(d time.Duration) CodecOption {
	return func(c *TokenCodec) {
		if d > 0 {
			c.refreshThreshold = d
		}
	}
}

func WithClockSkew(d time.Duration) CodecOption {
	return func(c *TokenCodec) {
		if d >= 0 {
			c.skew = d
		}
	}
}

// WithClock reemplaza time.Now; pensado para tests.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

func NewTokenCodec(secret string, opts ...CodecOption) (*TokenCodec, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	c := &TokenCodec{
		secret:           []byte(secret),
		issuer:           "dev-event",
		refreshThreshold: 24 * time.Hour,
		skew:             15 * time.Second,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue firma un token para subject con vencimiento now+ttl.
func (c *TokenCodec) Issue(subject string, ttl time.Duration) (string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", errors.New("token subject required")
	}
	if ttl <= 0 {
		return "", errors.New("token ttl must be positive")
	}
	now := c.now().UTC()
	claims := Claims{
		UserID: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify comprueba firma y vencimiento. Los errores son siempre uno de
// ErrTokenMalformed, ErrTokenSignature o ErrTokenExpired.
func (c *TokenCodec) Verify(tokenString string) (Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if !looksCompact(tokenString) {
		return Claims{}, ErrTokenMalformed
	}
	// Con forma de token pero segmentos corridos: la firma no puede coincidir.
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Claims{}, ErrTokenSignature
	}

	// Firma primero, sobre los segmentos crudos.
	sig, err := base64.RawURLEncoding.Strict().DecodeString(parts[2])
	if err != nil {
		return Claims{}, ErrTokenSignature
	}
	if err := jwt.SigningMethodHS256.Verify(parts[0]+"."+parts[1], sig, c.secret); err != nil {
		return Claims{}, ErrTokenSignature
	}

	claims, err := c.parseToken(tokenString)
	if err != nil {
		return Claims{}, err
	}
	if !c.isValidClaims(claims) {
		return Claims{}, ErrTokenMalformed
	}
	return claims, nil
}

// ShouldRefresh es true cuando el token es valido y le queda menos vida que
// el umbral de renovacion.
func (c *TokenCodec) ShouldRefresh(tokenString string) bool {
	claims, err := c.Verify(tokenString)
	if err != nil {
		return false
	}
	remaining := claims.ExpiresAt.Time.Sub(c.now())
	return remaining < c.refreshThreshold
}

func (c *TokenCodec) parseToken(tokenString string) (Claims, error) {
	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(c.skew),
		jwt.WithTimeFunc(c.now),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
	)
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrTokenSignature
		default:
			return Claims{}, ErrTokenMalformed
		}
	}
	return claims, nil
}

func (c *TokenCodec) isValidClaims(claims Claims) bool {
	if strings.TrimSpace(claims.UserID) == "" {
		return false
	}
	if claims.Subject != claims.UserID {
		return false
	}
	return claims.ExpiresAt != nil && claims.IssuedAt != nil
}

// looksCompact indica si s tiene la forma de un JWS compacto: al menos un
// punto y solo caracteres base64url.
func looksCompact(s string) bool {
	if !strings.Contains(s, ".") {
		return false
	}
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= 'A' && ch <= 'Z', ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9':
		case ch == '-', ch == '_', ch == '.':
		default:
			return false
		}
	}
	return true
}
