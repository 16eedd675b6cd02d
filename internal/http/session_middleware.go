package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dev-event/internal/domain"
	"dev-event/internal/service"
)

const sessionKey = "auth_session"

// SessionContext instala la cache de sesion del request y su transporte.
func (h *AuthHandler) SessionContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(service.WithSessionCache(c.Request.Context()))
		transportFor(c, h.cookie)
		c.Next()
	}
}

// RefreshSession renueva el token cuando esta por vencer.
func (h *AuthHandler) RefreshSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.sessions.RefreshSession(c.Request.Context(), transportFor(c, h.cookie)) {
			h.logger.Debug("session token refreshed")
		}
		c.Next()
	}
}

// RequireSession corta con 401 si el request no trae una sesion valida y
// deja la sesion en el contexto.
func (h *AuthHandler) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.sessions == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "sessions not configured"})
			c.Abort()
			return
		}

		sess, ok := h.sessions.CurrentSession(c.Request.Context(), transportFor(c, h.cookie))
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		c.Set(sessionKey, sess)
		c.Next()
	}
}

// GetSession obtiene la sesion guardada por RequireSession.
func GetSession(c *gin.Context) (domain.Session, bool) {
	val, ok := c.Get(sessionKey)
	if !ok {
		return domain.Session{}, false
	}
	sess, ok := val.(domain.Session)
	return sess, ok
}
