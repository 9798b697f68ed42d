package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type AccountRepository struct {
	DB DB
}

func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{DB: db}
}

const accountColumns = `id, username, email, pending_email, password_digest, phone_number, profile_url, verified, verification_token_digest, reset_token_digest, reset_token_expires_at, roles, created_at, updated_at`

func (r *AccountRepository) Create(ctx context.Context, acct NewAccount) (*Account, error) {
	roles := acct.Roles
	if len(roles) == 0 {
		roles = DefaultRoles
	}

	row := r.DB.QueryRow(ctx, `
		INSERT INTO accounts
		(id, username, email, password_digest, verified, verification_token_digest, roles)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING `+accountColumns,
		uuid.NewString(), acct.Username, acct.Email, acct.PasswordDigest, acct.Verified, acct.VerificationTokenDigest, roles)

	account, err := scanAccount(row)
	if err != nil {
		return nil, storeError("create", err)
	}
	return account, nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	row := r.DB.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id)
	account, err := scanAccount(row)
	if err != nil {
		return nil, storeError("find_by_id", err)
	}
	return account, nil
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE LOWER(email)=LOWER($1)`, email)
	account, err := scanAccount(row)
	if err != nil {
		return nil, storeError("find_by_email", err)
	}
	return account, nil
}

func (r *AccountRepository) SetVerificationToken(ctx context.Context, id, digest string) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE accounts
		SET verification_token_digest=$1, updated_at=NOW()
		WHERE id=$2
	`, digest, id)
	if err != nil {
		return storeError("set_verification_token", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AccountRepository) ConsumeVerificationToken(ctx context.Context, digest string) (*Account, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE accounts
		SET verified=TRUE,
		    verification_token_digest=NULL,
		    email=COALESCE(pending_email, email),
		    pending_email=NULL,
		    updated_at=NOW()
		WHERE verification_token_digest=$1
		RETURNING `+accountColumns, digest)
	account, err := scanAccount(row)
	if err != nil {
		return nil, storeError("consume_verification_token", err)
	}
	return account, nil
}

func (r *AccountRepository) SetResetToken(ctx context.Context, id, digest string, expiresAt time.Time) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE accounts
		SET reset_token_digest=$1,
		    reset_token_expires_at=$2,
		    updated_at=NOW()
		WHERE id=$3
	`, digest, expiresAt, id)
	if err != nil {
		return storeError("set_reset_token", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AccountRepository) FindByResetToken(ctx context.Context, digest string, now time.Time) (*Account, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE reset_token_digest=$1 AND reset_token_expires_at > $2
	`, digest, now)
	account, err := scanAccount(row)
	if err != nil {
		return nil, storeError("find_by_reset_token", err)
	}
	return account, nil
}

func (r *AccountRepository) ConsumeResetToken(ctx context.Context, digest, passwordDigest string, now time.Time) (*Account, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE accounts
		SET password_digest=$1,
		    reset_token_digest=NULL,
		    reset_token_expires_at=NULL,
		    updated_at=NOW()
		WHERE reset_token_digest=$2 AND reset_token_expires_at > $3
		RETURNING `+accountColumns, passwordDigest, digest, now)
	account, err := scanAccount(row)
	if err != nil {
		return nil, storeError("consume_reset_token", err)
	}
	return account, nil
}

func (r *AccountRepository) UpdateAccount(ctx context.Context, id string, changes AccountChanges) (*Account, error) {
	if changes.Empty() {
		return r.FindByID(ctx, id)
	}

	sets := []string{}
	args := []any{}
	idx := 1

	add := func(column string, value *string) {
		if value == nil {
			return
		}
		sets = append(sets, fmt.Sprintf(`%s=$%d`, column, idx))
		args = append(args, *value)
		idx++
	}
	add("username", changes.Username)
	add("phone_number", changes.PhoneNumber)
	add("profile_url", changes.ProfileURL)
	add("password_digest", changes.PasswordDigest)
	add("pending_email", changes.PendingEmail)
	add("verification_token_digest", changes.VerificationTokenDigest)
	sets = append(sets, "updated_at=NOW()")

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE accounts
		SET %s
		WHERE id=$%d
		RETURNING %s
	`, strings.Join(sets, ", "), idx, accountColumns)

	account, err := scanAccount(r.DB.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, storeError("update_account", err)
	}
	return account, nil
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	if err != nil {
		return storeError("delete", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// storeError maps driver errors onto the store sentinels. Anything else is
// an internal failure carrying the operation name.
func storeError(operation string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return ErrConflict
	}
	return internalError("ACCOUNT_STORE_FAILED", operation, err)
}

func scanAccount(row pgx.Row) (*Account, error) {
	var (
		acct                    Account
		pendingEmail            sql.NullString
		passwordDigest          sql.NullString
		phoneNumber             sql.NullString
		profileURL              sql.NullString
		verificationTokenDigest sql.NullString
		resetTokenDigest        sql.NullString
		resetTokenExpiresAt     sql.NullTime
	)

	if err := row.Scan(
		&acct.ID,
		&acct.Username,
		&acct.Email,
		&pendingEmail,
		&passwordDigest,
		&phoneNumber,
		&profileURL,
		&acct.Verified,
		&verificationTokenDigest,
		&resetTokenDigest,
		&resetTokenExpiresAt,
		&acct.Roles,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	); err != nil {
		return nil, err
	}

	acct.PendingEmail = nullStringPtr(pendingEmail)
	acct.PasswordDigest = nullStringPtr(passwordDigest)
	acct.PhoneNumber = nullStringPtr(phoneNumber)
	acct.ProfileURL = nullStringPtr(profileURL)
	acct.VerificationTokenDigest = nullStringPtr(verificationTokenDigest)
	acct.ResetTokenDigest = nullStringPtr(resetTokenDigest)
	acct.ResetTokenExpiresAt = nullTimePtr(resetTokenExpiresAt)
	return &acct, nil
}

func nullStringPtr(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}
