package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"dev-event/internal/domain"
	"dev-event/internal/repository"
)

// TokenTransport lleva el token entre requests (en HTTP, una cookie).
type TokenTransport interface {
	Token() (string, bool)
	SetToken(token string, maxAge time.Duration)
	ClearToken()
}

type SignUpInput struct {
	Email           string `json:"email" form:"email" validate:"required,email"`
	Password        string `json:"password" form:"password" validate:"min=6,maxbytes=72"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword" validate:"required,eqfield=Password"`
}

type SignInInput struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// SessionOptions agrupa los parametros de sesion que vienen de config.
type SessionOptions struct {
	TokenTTL        time.Duration
	StoreTimeout    time.Duration
	MinDuration     time.Duration
	ExposeErrors    bool
	SignOutRedirect string
}

const (
	msgValidationFailed   = "Validation failed"
	msgInvalidCredentials = "Invalid email or password"
	msgEmailTaken         = "User with this email already exists"
	msgSignUpFailed       = "An error occurred while creating your account"
	msgSignInFailed       = "An error occurred during sign-in"
	msgRateLimited        = "Too many sign-in attempts, please try again later"
)

var fieldMessages = map[string]map[string]string{
	"email": {
		"required": "Email is required",
		"email":    "Invalid email format",
	},
	"password": {
		"required": "Password is required",
		"min":      "Password must be at least 6 characters",
		"maxbytes": "Password must be at most 72 bytes",
	},
	"confirmPassword": {
		"required": "Please confirm your password",
		"eqfield":  "Passwords don't match",
	},
}

// SessionService coordina sign-up, sign-in, sign-out y lectura de sesion.
type SessionService struct {
	logger   *zap.Logger
	users    repository.UserRepository
	hasher   PasswordHasher
	codec    *TokenCodec
	revoked  RevocationList
	limiter  AttemptLimiter
	validate *validator.Validate
	opts     SessionOptions
	now      func() time.Time
	newID    func() string

	dummyOnce sync.Once
	dummyHash string
}

func NewSessionService(
	logger *zap.Logger,
	users repository.UserRepository,
	hasher PasswordHasher,
	codec *TokenCodec,
	revoked RevocationList,
	limiter AttemptLimiter,
	opts SessionOptions,
) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 7 * 24 * time.Hour
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 3 * time.Second
	}
	if opts.SignOutRedirect == "" {
		opts.SignOutRedirect = "/signin"
	}
	return &SessionService{
		logger:   logger,
		users:    users,
		hasher:   hasher,
		codec:    codec,
		revoked:  revoked,
		limiter:  limiter,
		validate: newValidator(),
		opts:     opts,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})
	return v
}

// TokenTTL es la vida de los tokens emitidos; la cookie usa el mismo valor.
func (s *SessionService) TokenTTL() time.Duration {
	return s.opts.TokenTTL
}

// SignUp registra un usuario y abre su sesion.
func (s *SessionService) SignUp(ctx context.Context, tr TokenTransport, in SignUpInput) (res domain.Result) {
	defer s.padDuration(ctx, time.Now())
	defer s.recoverInto(&res, "sign-up", msgSignUpFailed)

	if s.users == nil {
		return s.infraFailure("sign-up", msgSignUpFailed, errors.New("session service not configured"))
	}

	in.Email = normalizeEmail(in.Email)
	if errs := s.validateInput(in); len(errs) > 0 {
		return domain.Failure{Kind: domain.FailureValidation, Message: msgValidationFailed, Errors: errs}
	}

	_, err := s.findByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return emailTaken()
	case !errors.Is(err, repository.ErrNotFound):
		return s.infraFailure("sign-up lookup", msgSignUpFailed, err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return s.infraFailure("sign-up hash", msgSignUpFailed, err)
	}

	user := domain.User{
		ID:           s.newID(),
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.createUser(ctx, user); err != nil {
		// Carrera entre sign-ups: decide el indice unico.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return emailTaken()
		}
		return s.infraFailure("sign-up insert", msgSignUpFailed, err)
	}

	if err := s.startSession(ctx, tr, user.ID); err != nil {
		return s.infraFailure("sign-up session", msgSignUpFailed, err)
	}

	s.logger.Info("user signed up", zap.String("user_id", user.ID))
	return domain.Success{Message: "Account created successfully", UserID: user.ID}
}

// SignIn valida credenciales y abre la sesion.
func (s *SessionService) SignIn(ctx context.Context, tr TokenTransport, in SignInInput) (res domain.Result) {
	defer s.padDuration(ctx, time.Now())
	defer s.recoverInto(&res, "sign-in", msgSignInFailed)

	if s.users == nil {
		return s.infraFailure("sign-in", msgSignInFailed, errors.New("session service not configured"))
	}

	in.Email = normalizeEmail(in.Email)
	if errs := s.validateInput(in); len(errs) > 0 {
		return domain.Failure{Kind: domain.FailureValidation, Message: msgValidationFailed, Errors: errs}
	}

	if s.limiter != nil && !s.limiter.Allow(ctx, in.Email) {
		return domain.Failure{Kind: domain.FailureRateLimited, Message: msgRateLimited}
	}

	user, err := s.findByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Compara igual contra un hash de relleno.
			s.hasher.Verify(in.Password, s.placeholderHash())
			return invalidCredentials("email")
		}
		return s.infraFailure("sign-in lookup", msgSignInFailed, err)
	}
	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		return invalidCredentials("password")
	}

	if err := s.startSession(ctx, tr, user.ID); err != nil {
		return s.infraFailure("sign-in session", msgSignInFailed, err)
	}
	return domain.Success{Message: "Signed in successfully", UserID: user.ID}
}

// SignOut borra la cookie siempre, aunque falle la revocacion, y devuelve a
// donde redirigir.
func (s *SessionService) SignOut(ctx context.Context, tr TokenTransport) (redirect string) {
	redirect = s.opts.SignOutRedirect
	defer resetSessionCache(ctx)
	defer tr.ClearToken()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sign-out failed", zap.Any("panic", r))
		}
	}()

	if s.revoked == nil {
		return redirect
	}
	token, ok := tr.Token()
	if !ok {
		return redirect
	}
	claims, err := s.codec.Verify(token)
	if err != nil {
		return redirect
	}
	if err := s.revokeClaims(ctx, claims); err != nil {
		s.logger.Warn("token revocation failed", zap.Error(err))
	}
	return redirect
}

// GetSession decodifica el token actual. Cualquier problema equivale a no
// tener sesion.
func (s *SessionService) GetSession(ctx context.Context, tr TokenTransport) (sess domain.Session, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("get session failed", zap.Any("panic", r))
			sess, ok = domain.Session{}, false
		}
	}()

	token, present := tr.Token()
	if !present || strings.TrimSpace(token) == "" {
		return domain.Session{}, false
	}
	claims, err := s.codec.Verify(token)
	if err != nil {
		s.logger.Debug("session token rejected", zap.Error(err))
		return domain.Session{}, false
	}
	if s.revoked != nil {
		revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			s.logger.Warn("revocation check failed", zap.Error(err))
			return domain.Session{}, false
		}
		if revoked {
			return domain.Session{}, false
		}
	}
	return domain.Session{
		UserID:    claims.UserID,
		TokenID:   claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, true
}

// RefreshSession reemite el token cuando le queda poca vida. Devuelve true si
// hubo renovacion.
func (s *SessionService) RefreshSession(ctx context.Context, tr TokenTransport) bool {
	token, ok := tr.Token()
	if !ok || !s.codec.ShouldRefresh(token) {
		return false
	}
	sess, ok := s.GetSession(ctx, tr)
	if !ok {
		return false
	}
	if err := s.startSession(ctx, tr, sess.UserID); err != nil {
		s.logger.Warn("session refresh failed", zap.Error(err), zap.String("user_id", sess.UserID))
		return false
	}
	if s.revoked != nil {
		if err := s.revoked.Revoke(ctx, sess.TokenID, sess.ExpiresAt.Sub(s.now())); err != nil {
			s.logger.Warn("token revocation failed", zap.Error(err))
		}
	}
	return true
}

// User carga el registro del usuario de la sesion.
func (s *SessionService) User(ctx context.Context, id string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("session service not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	return s.users.GetByID(ctx, id)
}

func (s *SessionService) startSession(ctx context.Context, tr TokenTransport, userID string) error {
	token, err := s.codec.Issue(userID, s.opts.TokenTTL)
	if err != nil {
		return err
	}
	tr.SetToken(token, s.opts.TokenTTL)
	resetSessionCache(ctx)
	return nil
}

func (s *SessionService) revokeClaims(ctx context.Context, claims Claims) error {
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	return s.revoked.Revoke(ctx, claims.ID, ttl)
}

func (s *SessionService) findByEmail(ctx context.Context, email string) (domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	return s.users.GetByEmail(ctx, email)
}

func (s *SessionService) createUser(ctx context.Context, user domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()
	return s.users.Create(ctx, user)
}

func (s *SessionService) validateInput(in any) domain.FieldErrors {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	errs := domain.FieldErrors{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add("form", "Invalid request")
		return errs
	}
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.Field()][fe.Tag()]
		if !ok {
			msg = "Invalid value"
		}
		errs.Add(fe.Field(), msg)
	}
	return errs
}

func (s *SessionService) placeholderHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(uuid.NewString())
		if err != nil {
			s.logger.Warn("placeholder hash failed", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func (s *SessionService) infraFailure(op, message string, err error) domain.Failure {
	s.logger.Error(op+" failed", zap.Error(err))
	f := domain.Failure{Kind: domain.FailureInfrastructure, Message: message}
	if s.opts.ExposeErrors {
		f.Detail = err.Error()
	}
	return f
}

func (s *SessionService) recoverInto(res *domain.Result, op, message string) {
	if r := recover(); r != nil {
		*res = s.infraFailure(op, message, fmt.Errorf("panic: %v", r))
	}
}

func (s *SessionService) padDuration(ctx context.Context, start time.Time) {
	remaining := s.opts.MinDuration - time.Since(start)
	if remaining <= 0 {
		return
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func emailTaken() domain.Failure {
	return domain.Failure{
		Kind:    domain.FailureConflict,
		Message: msgEmailTaken,
		Errors:  domain.FieldErrors{"email": {msgEmailTaken}},
	}
}

func invalidCredentials(field string) domain.Failure {
	return domain.Failure{
		Kind:    domain.FailureAuthentication,
		Message: msgInvalidCredentials,
		Errors:  domain.FieldErrors{field: {msgInvalidCredentials}},
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
