package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dev-event/internal/domain"
	"dev-event/internal/repository"
	"dev-event/internal/service"
)

// AuthHandler mantiene dependencias para los endpoints de autenticacion.
type AuthHandler struct {
	logger   *zap.Logger
	sessions *service.SessionService
	cookie   CookieConfig
}

// NewAuthHandler crea una instancia de AuthHandler.
func NewAuthHandler(logger *zap.Logger, sessions *service.SessionService, cookie CookieConfig) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cookie.Name == "" {
		cookie.Name = "auth_token"
	}
	return &AuthHandler{
		logger:   logger,
		sessions: sessions,
		cookie:   cookie,
	}
}

// SignUp maneja POST /auth/signup.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var in service.SignUpInput
	if err := c.ShouldBind(&in); err != nil {
		h.logger.Warn("invalid sign-up request", zap.Error(err))
		writeResult(c, badRequest(), http.StatusCreated)
		return
	}
	res := h.sessions.SignUp(c.Request.Context(), transportFor(c, h.cookie), in)
	writeResult(c, res, http.StatusCreated)
}

// SignIn maneja POST /auth/signin.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var in service.SignInInput
	if err := c.ShouldBind(&in); err != nil {
		h.logger.Warn("invalid sign-in request", zap.Error(err))
		writeResult(c, badRequest(), http.StatusOK)
		return
	}
	res := h.sessions.SignIn(c.Request.Context(), transportFor(c, h.cookie), in)
	writeResult(c, res, http.StatusOK)
}

// SignOut maneja POST /auth/signout.
func (h *AuthHandler) SignOut(c *gin.Context) {
	redirect := h.sessions.SignOut(c.Request.Context(), transportFor(c, h.cookie))
	c.Redirect(http.StatusSeeOther, redirect)
}

// Session maneja GET /auth/session. Nunca falla: sin sesion responde anonimo.
func (h *AuthHandler) Session(c *gin.Context) {
	sess, ok := h.sessions.CurrentSession(c.Request.Context(), transportFor(c, h.cookie))
	if !ok {
		c.JSON(http.StatusOK, gin.H{"state": domain.StateAnonymous})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"state":      domain.StateAuthenticated,
		"user_id":    sess.UserID,
		"expires_at": sess.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Me maneja GET /me. Requiere RequireSession antes en la cadena.
func (h *AuthHandler) Me(c *gin.Context) {
	sess, ok := GetSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	user, err := h.sessions.User(c.Request.Context(), sess.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		h.logger.Error("load current user failed", zap.Error(err), zap.String("user_id", sess.UserID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func badRequest() domain.Failure {
	return domain.Failure{
		Kind:    domain.FailureValidation,
		Message: "Validation failed",
		Errors:  domain.FieldErrors{"form": {"Invalid request"}},
	}
}

// writeResult traduce el resultado del servicio al cuerpo JSON comun.
func writeResult(c *gin.Context, res domain.Result, successStatus int) {
	switch r := res.(type) {
	case domain.Success:
		body := gin.H{"success": true, "message": r.Message}
		if r.UserID != "" {
			body["user_id"] = r.UserID
		}
		c.JSON(successStatus, body)
	case domain.Failure:
		body := gin.H{"success": false, "message": r.Message}
		if len(r.Errors) > 0 {
			body["errors"] = r.Errors
		}
		if r.Detail != "" {
			body["error"] = r.Detail
		}
		c.JSON(failureStatus(r.Kind), body)
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "unexpected result"})
	}
}

func failureStatus(kind domain.FailureKind) int {
	switch kind {
	case domain.FailureValidation:
		return http.StatusBadRequest
	case domain.FailureConflict:
		return http.StatusConflict
	case domain.FailureAuthentication:
		return http.StatusUnauthorized
	case domain.FailureRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
