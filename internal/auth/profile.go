package auth

import (
	"context"
	"errors"
)

// ProfileManager lets an account read and change itself.
type ProfileManager struct {
	Store    AccountStore
	Hasher   PasswordHasher
	Recovery *RecoveryManager
}

func (m *ProfileManager) Get(acct *Account) Profile {
	return acct.Profile()
}

// Update applies in to the target account in one statement. Only the
// account itself may do this and it must present its current password.
func (m *ProfileManager) Update(ctx context.Context, actor *Account, targetID string, in UpdateProfileInput) (*Profile, error) {
	if actor == nil || actor.ID != targetID {
		return nil, publicError("AUTH_PROFILE_FORBIDDEN", ErrForbidden, MsgForbidden)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if !actor.HasPassword() || !m.Hasher.Compare(*actor.PasswordDigest, in.Password) {
		return nil, publicError("AUTH_WRONG_PASSWORD", ErrInvalidCredentials, MsgWrongPassword)
	}

	changes := AccountChanges{
		Username:    in.Username,
		PhoneNumber: in.PhoneNumber,
		ProfileURL:  in.ProfileURL,
	}
	if in.NewPassword != nil {
		digest, err := m.Hasher.Hash(*in.NewPassword)
		if err != nil {
			return nil, err
		}
		changes.PasswordDigest = &digest
	}

	var verifyToken string
	if in.Email != nil {
		token, err := m.Recovery.stageEmailChange(ctx, actor, *in.Email, &changes)
		if err != nil {
			return nil, err
		}
		verifyToken = token
	}

	updated, err := m.Store.UpdateAccount(ctx, actor.ID, changes)
	if errors.Is(err, ErrNotFound) {
		return nil, publicError("AUTH_PROFILE_GONE", ErrUnauthorized, MsgUnauthorized)
	}
	if err != nil {
		return nil, internalError("AUTH_PROFILE_UPDATE_FAILED", "update_account", err)
	}

	if verifyToken != "" {
		m.Recovery.notifyEmailChange(ctx, updated, verifyToken)
	}

	profile := updated.Profile()
	return &profile, nil
}

func (m *ProfileManager) Delete(ctx context.Context, actor *Account, targetID string) error {
	if actor == nil || actor.ID != targetID {
		return publicError("AUTH_PROFILE_FORBIDDEN", ErrForbidden, MsgForbidden)
	}
	err := m.Store.Delete(ctx, actor.ID)
	if errors.Is(err, ErrNotFound) {
		return publicError("AUTH_PROFILE_GONE", ErrUnauthorized, MsgUnauthorized)
	}
	if err != nil {
		return internalError("AUTH_PROFILE_DELETE_FAILED", "delete", err)
	}
	return nil
}
