package auth

import (
	"net/mail"
	"strings"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@")+1:], ".")
}

type LoginInput struct {
	Email    string
	Password string
}

func (in *LoginInput) Validate() error {
	in.Email = normalizeEmail(in.Email)
	if in.Email == "" || in.Password == "" {
		return publicError("AUTH_LOGIN_FIELDS", ErrInvalidInput, MsgFieldsRequired)
	}
	return nil
}

type SignupInput struct {
	Username string
	Email    string
	Password string
}

func (in *SignupInput) Validate() error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return publicError("AUTH_SIGNUP_FIELDS", ErrInvalidInput, MsgFieldsRequired)
	}
	if !validEmail(in.Email) {
		return publicError("AUTH_INVALID_EMAIL", ErrInvalidInput, MsgInvalidEmail)
	}
	return nil
}

type ForgotPasswordInput struct {
	Email string
}

func (in *ForgotPasswordInput) Validate() error {
	in.Email = normalizeEmail(in.Email)
	if in.Email == "" {
		return publicError("AUTH_EMAIL_REQUIRED", ErrInvalidInput, MsgEmailRequired)
	}
	return nil
}

type ResetPasswordInput struct {
	Password string
}

func (in *ResetPasswordInput) Validate() error {
	if in.Password == "" {
		return publicError("AUTH_PASSWORD_REQUIRED", ErrInvalidInput, MsgPasswordRequired)
	}
	return nil
}

// UpdateProfileInput carries a profile edit. Password is the current
// password and is always required; nil fields are left unchanged.
// ProfileURL is trimmed and otherwise stored as given.
type UpdateProfileInput struct {
	Username    *string
	Email       *string
	PhoneNumber *string
	ProfileURL  *string
	Password    string
	NewPassword *string
}

func (in *UpdateProfileInput) Validate() error {
	if in.Password == "" {
		return publicError("AUTH_PASSWORD_REQUIRED", ErrInvalidInput, MsgPasswordRequired)
	}
	if in.Username != nil {
		name := strings.TrimSpace(*in.Username)
		if name == "" {
			return publicError("AUTH_PROFILE_FIELDS", ErrInvalidInput, MsgFieldsRequired)
		}
		in.Username = &name
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if !validEmail(email) {
			return publicError("AUTH_INVALID_EMAIL", ErrInvalidInput, MsgInvalidEmail)
		}
		in.Email = &email
	}
	if in.PhoneNumber != nil {
		phone := strings.TrimSpace(*in.PhoneNumber)
		in.PhoneNumber = &phone
	}
	if in.ProfileURL != nil {
		url := strings.TrimSpace(*in.ProfileURL)
		in.ProfileURL = &url
	}
	if in.NewPassword != nil && *in.NewPassword == "" {
		return publicError("AUTH_PASSWORD_REQUIRED", ErrInvalidInput, MsgPasswordRequired)
	}
	return nil
}
