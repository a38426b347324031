package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"healthOSAPI/internal/database"
	"healthOSAPI/internal/logger"
	"healthOSAPI/internal/user"
)

const userColumns = `id, email, full_name, timezone, language, notification_enabled,
	last_active_at, deleted_at, created_at, updated_at, hashed_password`

func scanUser(row pgx.Row) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FullName,
		&u.Timezone,
		&u.Language,
		&u.NotificationEnabled,
		&u.LastActiveAt,
		&u.DeletedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.HashedPassword,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

type UserService struct {
	db              database.DB
	defaultTimezone string
	defaultLanguage string
}

func NewUserService(db database.DB, defaultTimezone, defaultLanguage string) *UserService {
	return &UserService{db: db, defaultTimezone: defaultTimezone, defaultLanguage: defaultLanguage}
}

// CreateUser registers an account. The password is optional; when present it
// is stored as a bcrypt hash.
func (s *UserService) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	timezone := req.Timezone
	if timezone == "" {
		timezone = s.defaultTimezone
	}
	language := req.Language
	if language == "" {
		language = s.defaultLanguage
	}

	var hashed *string
	if req.Password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		hs := string(h)
		hashed = &hs
	}

	var created *user.User
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, req.Email).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return conflict("email already registered")
		}

		query := `
		INSERT INTO users (id, email, full_name, timezone, language, hashed_password)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns

		u, err := scanUser(tx.QueryRow(ctx, query, id, req.Email, strings.TrimSpace(req.FullName), timezone, language, hashed))
		created = u
		return err
	})
	if err != nil {
		return nil, passThrough(err, "user", "create user")
	}

	logger.Info("user created", "user_id", created.ID)
	return created, nil
}

// Authenticate checks an email and password against a stored hash.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*user.User, error) {
	u, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
		}
		return nil, err
	}
	if u.HashedPassword == nil {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*u.HashedPassword), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	}
	return u, nil
}

// GetUserByID returns an active user.
func (s *UserService) GetUserByID(ctx context.Context, id string) (*user.User, error) {
	return s.FindUser(ctx, id, false)
}

// FindUser returns a user by id, optionally including soft-deleted ones.
func (s *UserService) FindUser(ctx context.Context, id string, includeDeleted bool) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}

	u, err := scanUser(s.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, storeError(err, "user", "get user")
	}
	return u, nil
}

// GetUserByEmail returns an active user. Emails match case-sensitively.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND deleted_at IS NULL`

	u, err := scanUser(s.db.QueryRow(ctx, query, email))
	if err != nil {
		return nil, storeError(err, "user", "get user by email")
	}
	return u, nil
}

func (s *UserService) ListUsers(ctx context.Context, includeDeleted bool) ([]*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	if !includeDeleted {
		query += ` WHERE deleted_at IS NULL`
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*user.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUser applies the non-nil fields of req to an active user.
func (s *UserService) UpdateUser(ctx context.Context, id string, req *user.UpdateUserRequest) (*user.User, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}

	var fullName *string
	if req.FullName != nil {
		trimmed := strings.TrimSpace(*req.FullName)
		fullName = &trimmed
	}

	query := `
	UPDATE users SET
		email = COALESCE($2, email),
		full_name = COALESCE($3, full_name),
		timezone = COALESCE($4, timezone),
		language = COALESCE($5, language),
		notification_enabled = COALESCE($6, notification_enabled),
		updated_at = NOW()
	WHERE id = $1 AND deleted_at IS NULL
	RETURNING ` + userColumns

	var updated *user.User
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		u, err := scanUser(tx.QueryRow(ctx, query, id, req.Email, fullName, req.Timezone, req.Language, req.NotificationEnabled))
		updated = u
		return err
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, conflict("email already registered")
		}
		return nil, storeError(err, "user", "update user")
	}
	return updated, nil
}

// SoftDeleteUser marks an active user deleted. Missing or already deleted
// users are reported as not found.
func (s *UserService) SoftDeleteUser(ctx context.Context, id string) error {
	return s.setDeletedAt(ctx, id, true)
}

// RestoreUser clears the deletion mark of a soft-deleted user.
func (s *UserService) RestoreUser(ctx context.Context, id string) (*user.User, error) {
	if err := s.setDeletedAt(ctx, id, false); err != nil {
		return nil, err
	}
	return s.GetUserByID(ctx, id)
}

func (s *UserService) setDeletedAt(ctx context.Context, id string, deleted bool) error {
	query := `UPDATE users SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	what := "active user"
	if !deleted {
		query = `UPDATE users SET deleted_at = NULL, updated_at = NOW() WHERE id = $1 AND deleted_at IS NOT NULL`
		what = "deleted user"
	}

	return database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query, id)
		if err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return notFound(what)
		}
		logger.Info("user state changed", "user_id", id, "deleted", deleted)
		return nil
	})
}
