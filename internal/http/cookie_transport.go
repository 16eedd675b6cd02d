package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const transportKey = "session_transport"

// CookieConfig describe la cookie que transporta el token de sesion.
type CookieConfig struct {
	Name   string
	Secure bool
}

// cookieTransport implementa service.TokenTransport sobre las cookies de Gin.
// Recuerda lo escrito en este request para que lecturas posteriores vean el
// token nuevo o su ausencia.
type cookieTransport struct {
	c       *gin.Context
	cfg     CookieConfig
	pending *string
}

// transportFor devuelve el transporte del request, creandolo si falta.
func transportFor(c *gin.Context, cfg CookieConfig) *cookieTransport {
	if v, ok := c.Get(transportKey); ok {
		if tr, ok := v.(*cookieTransport); ok {
			return tr
		}
	}
	tr := &cookieTransport{c: c, cfg: cfg}
	c.Set(transportKey, tr)
	return tr
}

func (t *cookieTransport) Token() (string, bool) {
	if t.pending != nil {
		return *t.pending, *t.pending != ""
	}
	value, err := t.c.Cookie(t.cfg.Name)
	if err != nil || value == "" {
		return "", false
	}
	return value, true
}

func (t *cookieTransport) SetToken(token string, maxAge time.Duration) {
	t.c.SetSameSite(http.SameSiteLaxMode)
	t.c.SetCookie(t.cfg.Name, token, int(maxAge/time.Second), "/", "", t.cfg.Secure, true)
	t.pending = &token
}

func (t *cookieTransport) ClearToken() {
	t.c.SetSameSite(http.SameSiteLaxMode)
	t.c.SetCookie(t.cfg.Name, "", -1, "/", "", t.cfg.Secure, true)
	empty := ""
	t.pending = &empty
}
