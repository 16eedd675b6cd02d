package domain

// FieldErrors mapea nombre de campo a mensajes ordenados para el formulario.
type FieldErrors map[string][]string

// Add agrega un mensaje al campo, conservando el orden de llegada.
func (f FieldErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

type FailureKind string

const (
	FailureValidation     FailureKind = "validation"
	FailureConflict       FailureKind = "conflict"
	FailureAuthentication FailureKind = "authentication"
	FailureRateLimited    FailureKind = "rate_limited"
	FailureInfrastructure FailureKind = "infrastructure"
)

// Result es el resultado de sign-up y sign-in. Solo Success y Failure lo
// implementan.
type Result interface {
	isResult()
}

type Success struct {
	Message string
	UserID  string
}

// Failure lleva los errores por campo. Detail solo se completa en desarrollo.
type Failure struct {
	Kind    FailureKind
	Message string
	Errors  FieldErrors
	Detail  string
}

func (Success) isResult() {}
func (Failure) isResult() {}
