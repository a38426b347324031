package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"healthOSAPI/internal/database"
	"healthOSAPI/internal/family"
	"healthOSAPI/internal/logger"
)

const membershipColumns = `id, family_id, user_id, role, joined_at, created_at, updated_at`

func scanMembership(row pgx.Row) (*family.Membership, error) {
	m := &family.Membership{}
	if err := row.Scan(&m.ID, &m.FamilyID, &m.UserID, &m.Role, &m.JoinedAt, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return m, nil
}

func scanFamily(row pgx.Row) (*family.Family, error) {
	f := &family.Family{}
	if err := row.Scan(&f.ID, &f.Name, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return f, nil
}

type FamilyService struct {
	db database.DB
}

func NewFamilyService(db database.DB) *FamilyService {
	return &FamilyService{db: db}
}

// CreateFamily creates a family with the creator as its first admin.
func (s *FamilyService) CreateFamily(ctx context.Context, creatorID string, req *family.CreateFamilyRequest) (*family.Family, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}

	var created *family.Family
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := requireActiveUser(ctx, tx, creatorID); err != nil {
			return err
		}

		f, err := scanFamily(tx.QueryRow(ctx, `
			INSERT INTO families (id, name) VALUES ($1, $2)
			RETURNING id, name, created_at, updated_at`,
			uuid.NewString(), strings.TrimSpace(req.Name),
		))
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO family_memberships (id, family_id, user_id, role)
			VALUES ($1, $2, $3, $4)`,
			uuid.NewString(), f.ID, creatorID, family.RoleAdmin,
		)
		created = f
		return err
	})
	if err != nil {
		return nil, passThrough(err, "family", "create family")
	}

	logger.Info("family created", "family_id", created.ID, "creator_id", creatorID)
	return created, nil
}

func (s *FamilyService) GetFamily(ctx context.Context, id string) (*family.Family, error) {
	f, err := scanFamily(s.db.QueryRow(ctx, `SELECT id, name, created_at, updated_at FROM families WHERE id = $1`, id))
	if err != nil {
		return nil, storeError(err, "family", "get family")
	}
	return f, nil
}

func (s *FamilyService) UpdateFamily(ctx context.Context, id string, req *family.UpdateFamilyRequest) (*family.Family, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}
	var name *string
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		name = &trimmed
	}

	var updated *family.Family
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		f, err := scanFamily(tx.QueryRow(ctx, `
			UPDATE families SET name = COALESCE($2, name), updated_at = NOW()
			WHERE id = $1
			RETURNING id, name, created_at, updated_at`,
			id, name,
		))
		updated = f
		return err
	})
	if err != nil {
		return nil, storeError(err, "family", "update family")
	}
	return updated, nil
}

// AddMember adds an active user to a family. A user can be a member of a
// family only once.
func (s *FamilyService) AddMember(ctx context.Context, familyID, userID string, role family.Role) (*family.Membership, error) {
	if role == "" {
		role = family.RoleMember
	}
	if !role.Valid() {
		return nil, invalid(fmt.Errorf("unknown role %q", role))
	}

	var created *family.Membership
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := requireFamily(ctx, tx, familyID); err != nil {
			return err
		}
		if err := requireActiveUser(ctx, tx, userID); err != nil {
			return err
		}

		m, err := scanMembership(tx.QueryRow(ctx, `
			INSERT INTO family_memberships (id, family_id, user_id, role)
			VALUES ($1, $2, $3, $4)
			RETURNING `+membershipColumns,
			uuid.NewString(), familyID, userID, role,
		))
		if database.IsUniqueViolation(err) {
			return conflict("user is already a member of this family")
		}
		created = m
		return err
	})
	if err != nil {
		return nil, passThrough(err, "membership", "add member")
	}

	logger.Info("family member added", "family_id", familyID, "user_id", userID, "role", role)
	return created, nil
}

func (s *FamilyService) GetMembership(ctx context.Context, familyID, userID string) (*family.Membership, error) {
	m, err := scanMembership(s.db.QueryRow(ctx,
		`SELECT `+membershipColumns+` FROM family_memberships WHERE family_id = $1 AND user_id = $2`,
		familyID, userID,
	))
	if err != nil {
		return nil, storeError(err, "membership", "get membership")
	}
	return m, nil
}

// GetFamilyMembers lists memberships with member profiles, oldest first.
func (s *FamilyService) GetFamilyMembers(ctx context.Context, familyID string) ([]*family.Member, error) {
	if err := requireFamily(ctx, s.db, familyID); err != nil {
		return nil, passThrough(err, "family", "get family members")
	}

	rows, err := s.db.Query(ctx, `
		SELECT m.id, m.family_id, m.user_id, m.role, m.joined_at, m.created_at, m.updated_at,
		       u.email, u.full_name
		FROM family_memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.family_id = $1
		ORDER BY m.joined_at, m.id`, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family members: %w", err)
	}
	defer rows.Close()

	members := []*family.Member{}
	for rows.Next() {
		m := &family.Member{}
		if err := rows.Scan(
			&m.ID, &m.FamilyID, &m.UserID, &m.Role, &m.JoinedAt, &m.CreatedAt, &m.UpdatedAt,
			&m.Email, &m.FullName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// GetUserFamilies lists the families a user belongs to with the user's role.
func (s *FamilyService) GetUserFamilies(ctx context.Context, userID string) ([]*family.UserFamily, error) {
	rows, err := s.db.Query(ctx, `
		SELECT f.id, f.name, f.created_at, f.updated_at, m.role, m.joined_at
		FROM family_memberships m
		JOIN families f ON f.id = m.family_id
		WHERE m.user_id = $1
		ORDER BY m.joined_at, f.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user families: %w", err)
	}
	defer rows.Close()

	families := []*family.UserFamily{}
	for rows.Next() {
		f := &family.UserFamily{}
		if err := rows.Scan(&f.ID, &f.Name, &f.CreatedAt, &f.UpdatedAt, &f.Role, &f.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, f)
	}
	return families, rows.Err()
}

// UpdateMemberRole changes a member's role. The last admin cannot be demoted.
func (s *FamilyService) UpdateMemberRole(ctx context.Context, familyID, userID string, role family.Role) (*family.Membership, error) {
	if !role.Valid() {
		return nil, invalid(fmt.Errorf("unknown role %q", role))
	}

	var updated *family.Membership
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		current, err := lockMembership(ctx, tx, familyID, userID)
		if err != nil {
			return err
		}
		if current.Role == family.RoleAdmin && role != family.RoleAdmin {
			if err := requireAnotherAdmin(ctx, tx, familyID, userID); err != nil {
				return err
			}
		}

		m, err := scanMembership(tx.QueryRow(ctx, `
			UPDATE family_memberships SET role = $3, updated_at = NOW()
			WHERE family_id = $1 AND user_id = $2
			RETURNING `+membershipColumns,
			familyID, userID, role,
		))
		updated = m
		return err
	})
	if err != nil {
		return nil, passThrough(err, "membership", "update member role")
	}
	return updated, nil
}

// RemoveMember deletes a membership. The last admin cannot leave.
func (s *FamilyService) RemoveMember(ctx context.Context, familyID, userID string) error {
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		current, err := lockMembership(ctx, tx, familyID, userID)
		if err != nil {
			return err
		}
		if current.Role == family.RoleAdmin {
			if err := requireAnotherAdmin(ctx, tx, familyID, userID); err != nil {
				return err
			}
		}
		_, err = tx.Exec(ctx, `DELETE FROM family_memberships WHERE family_id = $1 AND user_id = $2`, familyID, userID)
		return err
	})
	if err != nil {
		return passThrough(err, "membership", "remove member")
	}

	logger.Info("family member removed", "family_id", familyID, "user_id", userID)
	return nil
}

func lockMembership(ctx context.Context, tx pgx.Tx, familyID, userID string) (*family.Membership, error) {
	// Lock every membership row of the family so concurrent demotions
	// cannot both pass the admin check.
	if _, err := tx.Exec(ctx, `SELECT id FROM family_memberships WHERE family_id = $1 FOR UPDATE`, familyID); err != nil {
		return nil, err
	}
	m, err := scanMembership(tx.QueryRow(ctx,
		`SELECT `+membershipColumns+` FROM family_memberships WHERE family_id = $1 AND user_id = $2`,
		familyID, userID,
	))
	if database.IsNoRows(err) {
		return nil, notFound("membership")
	}
	return m, err
}

func requireAnotherAdmin(ctx context.Context, tx pgx.Tx, familyID, userID string) error {
	var admins int
	err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM family_memberships
		WHERE family_id = $1 AND role = 'admin' AND user_id <> $2`,
		familyID, userID,
	).Scan(&admins)
	if err != nil {
		return err
	}
	if admins == 0 {
		return conflict("a family must keep at least one admin")
	}
	return nil
}

func requireFamily(ctx context.Context, db database.DB, familyID string) error {
	var exists bool
	if err := db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM families WHERE id = $1)`, familyID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return notFound("family")
	}
	return nil
}

func requireActiveUser(ctx context.Context, db database.DB, userID string) error {
	var exists bool
	err := db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1 AND deleted_at IS NULL)`, userID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return notFound("user")
	}
	return nil
}
