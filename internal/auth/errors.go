package auth

import (
	"errors"

	"github.com/samber/oops"
)

// Kind is the failure class surfaced at the subsystem boundary.
type Kind string

const (
	KindInternal           Kind = "internal"
	KindInvalidInput       Kind = "invalid_input"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindNotVerified        Kind = "not_verified"
	KindUnauthorized       Kind = "unauthorized"
	KindForbidden          Kind = "forbidden"
	KindConflict           Kind = "conflict"
	KindNotFound           Kind = "not_found"
)

// Kind sentinels. Public errors wrap exactly one of these.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("account not verified")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrNotFound           = errors.New("not found")
)

var kindSentinels = []struct {
	kind Kind
	err  error
}{
	{KindInvalidInput, ErrInvalidInput},
	{KindInvalidCredentials, ErrInvalidCredentials},
	{KindNotVerified, ErrNotVerified},
	{KindUnauthorized, ErrUnauthorized},
	{KindForbidden, ErrForbidden},
	{KindConflict, ErrConflict},
	{KindNotFound, ErrNotFound},
}

// KindOf classifies err. Anything not wrapping a kind sentinel is internal.
func KindOf(err error) Kind {
	for _, s := range kindSentinels {
		if errors.Is(err, s.err) {
			return s.kind
		}
	}
	return KindInternal
}

// Public messages. Several are deliberately shared between distinct causes.
const (
	MsgFieldsRequired     = "All fields are required"
	MsgInvalidEmail       = "Invalid email format"
	MsgWrongCredentials   = "Wrong email or password"
	MsgNotVerified        = "Please verify your email first. We sent a link to your email"
	MsgUnauthorized       = "Unauthorized"
	MsgForbidden          = "Forbidden"
	MsgAccountExists      = "Account already exists. Please log in"
	MsgDuplicateEmail     = "Duplicate email"
	MsgEmailNotVerifiable = "Email could not be verified. Please contact support"
	MsgEmailRequired      = "Email required"
	MsgEmailNotSent       = "Email could not be sent"
	MsgPasswordRequired   = "Password is required"
	MsgPasswordNotReset   = "Password could not be reset"
	MsgWrongPassword      = "Wrong password"
	MsgExternalSignIn     = "Please verify your email before signing in with an external provider"
)

func publicError(code string, sentinel error, msg string) error {
	return oops.Code(code).Public(msg).Wrap(sentinel)
}

func internalError(code, operation string, err error) error {
	return oops.Code(code).With("operation", operation).Wrap(err)
}
