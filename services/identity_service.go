package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"healthOSAPI/internal/auth"
	"healthOSAPI/internal/database"
	"healthOSAPI/internal/logger"
	"healthOSAPI/internal/user"
)

// IdentityService maps verified token claims onto local user records.
type IdentityService struct {
	db              database.DB
	defaultTimezone string
	defaultLanguage string
}

func NewIdentityService(db database.DB, defaultTimezone, defaultLanguage string) *IdentityService {
	return &IdentityService{db: db, defaultTimezone: defaultTimezone, defaultLanguage: defaultLanguage}
}

// ResolveUser returns the local user whose id equals the token subject,
// creating it on first contact. Existing users get their email, name and
// any language or timezone carried in the token metadata overwritten.
// Soft-deleted users are resolved too; callers decide what they may do.
func (s *IdentityService) ResolveUser(ctx context.Context, claims *auth.Claims) (*user.User, error) {
	if claims == nil || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrUnauthenticated)
	}

	meta := claims.UserMetadata
	fullName := claims.DisplayName()
	language := optional(meta.Language)
	timezone := optional(meta.Timezone)
	if timezone != nil && user.ValidateTimezone(*timezone) != nil {
		logger.Warn("ignoring unknown timezone in token metadata", "subject", claims.Subject, "timezone", *timezone)
		timezone = nil
	}

	var resolved *user.User
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		_, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, claims.Subject))
		switch {
		case err == nil:
		case database.IsNoRows(err):
			if claims.Email == "" {
				return invalid(errors.New("token carries no email for a new account"))
			}

			insert := `
			INSERT INTO users (id, email, full_name, timezone, language, last_active_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			ON CONFLICT DO NOTHING
			RETURNING ` + userColumns

			created, err := scanUser(tx.QueryRow(ctx, insert,
				claims.Subject,
				claims.Email,
				fullName,
				valueOr(timezone, s.defaultTimezone),
				valueOr(language, s.defaultLanguage),
			))
			if err == nil {
				logger.Info("user created from identity provider", "user_id", created.ID)
				resolved = created
				return nil
			}
			if !database.IsNoRows(err) {
				return err
			}
			// Either a concurrent request inserted the same subject first or
			// the email belongs to someone else.
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, claims.Subject).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return conflict("email already belongs to another account")
			}
			logger.Debug("identity insert lost race, updating existing user", "user_id", claims.Subject)
		default:
			return err
		}

		update := `
		UPDATE users SET
			email = COALESCE(NULLIF($2, ''), email),
			full_name = $3,
			language = COALESCE($4, language),
			timezone = COALESCE($5, timezone),
			last_active_at = NOW(),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

		updated, err := scanUser(tx.QueryRow(ctx, update, claims.Subject, claims.Email, fullName, language, timezone))
		resolved = updated
		return err
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, conflict("email already belongs to another account")
		}
		return nil, passThrough(err, "user", "resolve user")
	}
	return resolved, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func valueOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
