package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"healthOSAPI/internal/database"
	"healthOSAPI/internal/logger"
	"healthOSAPI/internal/routine"
	"healthOSAPI/utils"
)

const routineColumns = `id, user_id, name, description, active_version_id, created_at, updated_at`

const versionColumns = `id, routine_id, version_number, start_date, end_date, created_by, notes, created_at, updated_at`

const cardColumns = `id, routine_version_id, moment, sort_order, created_at, updated_at`

const itemColumns = `id, routine_card_id, type, name, dosage, instructions, frequency, expires_at,
	duration_days, next_item_id, sort_order, created_at, updated_at`

const completionColumns = `id, user_id, routine_item_id, completed_at, completion_date, notes, skipped,
	skip_reason, created_at, updated_at`

func scanRoutine(row pgx.Row) (*routine.Routine, error) {
	r := &routine.Routine{}
	if err := row.Scan(&r.ID, &r.UserID, &r.Name, &r.Description, &r.ActiveVersionID, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return r, nil
}

func scanVersion(row pgx.Row) (*routine.Version, error) {
	v := &routine.Version{}
	err := row.Scan(&v.ID, &v.RoutineID, &v.VersionNumber, &v.StartDate, &v.EndDate, &v.CreatedBy, &v.Notes, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func scanCard(row pgx.Row) (*routine.Card, error) {
	c := &routine.Card{}
	if err := row.Scan(&c.ID, &c.RoutineVersionID, &c.Moment, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

func scanItem(row pgx.Row) (*routine.Item, error) {
	return scanItemWith(row)
}

func scanCompletion(row pgx.Row) (*routine.Completion, error) {
	c := &routine.Completion{}
	err := row.Scan(&c.ID, &c.UserID, &c.RoutineItemID, &c.CompletedAt, &c.CompletionDate, &c.Notes, &c.Skipped, &c.SkipReason, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// collect scans every row with scan.
func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]*T, error) {
	defer rows.Close()
	out := []*T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

type RoutineService struct {
	db  database.DB
	now func() time.Time
}

func NewRoutineService(db database.DB) *RoutineService {
	return &RoutineService{db: db, now: time.Now}
}

// WithClock replaces the time source used to decide which version is current.
func (s *RoutineService) WithClock(now func() time.Time) *RoutineService {
	s.now = now
	return s
}

// ---------------------------------------------------------------------------
// Routines
// ---------------------------------------------------------------------------

func (s *RoutineService) CreateRoutine(ctx context.Context, userID string, req *routine.CreateRoutineRequest) (*routine.Routine, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}

	var created *routine.Routine
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		r, err := scanRoutine(tx.QueryRow(ctx, `
			INSERT INTO routines (id, user_id, name, description)
			VALUES ($1, $2, $3, $4)
			RETURNING `+routineColumns,
			uuid.NewString(), userID, strings.TrimSpace(req.Name), req.Description,
		))
		created = r
		return err
	})
	if err != nil {
		return nil, storeError(err, "routine", "create routine")
	}
	return created, nil
}

func (s *RoutineService) GetRoutine(ctx context.Context, id string) (*routine.Routine, error) {
	r, err := scanRoutine(s.db.QueryRow(ctx, `SELECT `+routineColumns+` FROM routines WHERE id = $1`, id))
	if err != nil {
		return nil, storeError(err, "routine", "get routine")
	}
	return r, nil
}

func (s *RoutineService) GetUserRoutines(ctx context.Context, userID string) ([]*routine.Routine, error) {
	rows, err := s.db.Query(ctx, `SELECT `+routineColumns+` FROM routines WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list routines: %w", err)
	}
	routines, err := collect(rows, scanRoutine)
	if err != nil {
		return nil, fmt.Errorf("failed to scan routines: %w", err)
	}
	return routines, nil
}

func (s *RoutineService) UpdateRoutine(ctx context.Context, id string, req *routine.UpdateRoutineRequest) (*routine.Routine, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}

	var updated *routine.Routine
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		r, err := scanRoutine(tx.QueryRow(ctx, `
			UPDATE routines SET
				name = COALESCE($2, name),
				description = COALESCE($3, description),
				updated_at = NOW()
			WHERE id = $1
			RETURNING `+routineColumns,
			id, req.Name, req.Description,
		))
		updated = r
		return err
	})
	if err != nil {
		return nil, storeError(err, "routine", "update routine")
	}
	return updated, nil
}

// DeleteRoutine removes a routine and everything under it.
func (s *RoutineService) DeleteRoutine(ctx context.Context, id string) error {
	return deleteByID(ctx, s.db, "routines", "routine", id)
}

// ---------------------------------------------------------------------------
// Versions
// ---------------------------------------------------------------------------

// CreateVersion appends a dated version to a routine. The routine row is
// locked so concurrent creations are serialized. If the new version covers
// today in the owner's timezone it becomes the active version.
func (s *RoutineService) CreateVersion(ctx context.Context, routineID, createdBy string, req *routine.CreateVersionRequest) (*routine.Version, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}
	start, end, err := req.Dates()
	if err != nil {
		return nil, invalid(err)
	}

	var created *routine.Version
	err = database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		timezone, err := s.lockRoutine(ctx, tx, routineID)
		if err != nil {
			return err
		}

		rows, err := tx.Query(ctx, `SELECT `+versionColumns+` FROM routine_versions WHERE routine_id = $1`, routineID)
		if err != nil {
			return err
		}
		existing, err := collect(rows, scanVersion)
		if err != nil {
			return err
		}

		plan, err := routine.PlanVersion(derefAll(existing), req.VersionNumber, start, end)
		switch {
		case errors.Is(err, routine.ErrVersionRange):
			return invalid(err)
		case err != nil:
			return fmt.Errorf("%w: %w", ErrConflict, err)
		}

		if plan.CloseVersionID != "" {
			_, err := tx.Exec(ctx,
				`UPDATE routine_versions SET end_date = $2, updated_at = NOW() WHERE id = $1`,
				plan.CloseVersionID, start,
			)
			if err != nil {
				return err
			}
			logger.Debug("closed open-ended version", "routine_id", routineID, "version_id", plan.CloseVersionID)
		}

		v, err := scanVersion(tx.QueryRow(ctx, `
			INSERT INTO routine_versions (id, routine_id, version_number, start_date, end_date, created_by, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING `+versionColumns,
			uuid.NewString(), routineID, plan.Number, start, end, nullIfEmpty(createdBy), req.Notes,
		))
		if database.IsUniqueViolation(err) {
			return conflict(fmt.Sprintf("version %d already exists", plan.Number))
		}
		if err != nil {
			return err
		}

		if v.Contains(s.today(timezone)) {
			if err := setActiveVersion(ctx, tx, routineID, v.ID); err != nil {
				return err
			}
		}
		created = v
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "routine version", "create version")
	}

	logger.Info("routine version created", "routine_id", routineID, "version", created.VersionNumber)
	return created, nil
}

func (s *RoutineService) ListVersions(ctx context.Context, routineID string) ([]*routine.Version, error) {
	if _, err := s.GetRoutine(ctx, routineID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+versionColumns+` FROM routine_versions WHERE routine_id = $1 ORDER BY version_number`, routineID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	versions, err := collect(rows, scanVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to scan versions: %w", err)
	}
	return versions, nil
}

func (s *RoutineService) GetVersion(ctx context.Context, id string) (*routine.Version, error) {
	v, err := scanVersion(s.db.QueryRow(ctx, `SELECT `+versionColumns+` FROM routine_versions WHERE id = $1`, id))
	if err != nil {
		return nil, storeError(err, "routine version", "get version")
	}
	return v, nil
}

// CurrentVersion returns the version covering date, or NotFound when none
// does. A nil date means today in the owner's timezone.
func (s *RoutineService) CurrentVersion(ctx context.Context, routineID string, date *time.Time) (*routine.Version, error) {
	versions, err := s.ListVersions(ctx, routineID)
	if err != nil {
		return nil, err
	}
	on, err := s.resolveDate(ctx, routineID, date)
	if err != nil {
		return nil, err
	}
	v := routine.CurrentVersion(derefAll(versions), on)
	if v == nil {
		return nil, notFound("current version")
	}
	return v, nil
}

// SetActiveVersion points a routine at one of its own versions.
func (s *RoutineService) SetActiveVersion(ctx context.Context, routineID, versionID string) (*routine.Routine, error) {
	var updated *routine.Routine
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := s.lockRoutine(ctx, tx, routineID); err != nil {
			return err
		}
		var owner string
		err := tx.QueryRow(ctx, `SELECT routine_id FROM routine_versions WHERE id = $1`, versionID).Scan(&owner)
		if database.IsNoRows(err) {
			return notFound("routine version")
		}
		if err != nil {
			return err
		}
		if owner != routineID {
			return invalid(errors.New("version belongs to a different routine"))
		}
		if err := setActiveVersion(ctx, tx, routineID, versionID); err != nil {
			return err
		}
		updated, err = scanRoutine(tx.QueryRow(ctx, `SELECT `+routineColumns+` FROM routines WHERE id = $1`, routineID))
		return err
	})
	if err != nil {
		return nil, passThrough(err, "routine", "set active version")
	}
	return updated, nil
}

// VersionOwner returns the user owning the routine of a version.
func (s *RoutineService) VersionOwner(ctx context.Context, versionID string) (string, error) {
	return s.owner(ctx, "routine version", `
		SELECT r.user_id FROM routine_versions v
		JOIN routines r ON r.id = v.routine_id
		WHERE v.id = $1`, versionID)
}

// ---------------------------------------------------------------------------
// Cards
// ---------------------------------------------------------------------------

func (s *RoutineService) CreateCard(ctx context.Context, versionID string, req *routine.CreateCardRequest) (*routine.Card, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}

	var created *routine.Card
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		c, err := scanCard(tx.QueryRow(ctx, `
			INSERT INTO routine_cards (id, routine_version_id, moment, sort_order)
			VALUES ($1, $2, $3, $4)
			RETURNING `+cardColumns,
			uuid.NewString(), versionID, req.Moment, req.SortOrder,
		))
		created = c
		return err
	})
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, notFound("routine version")
		}
		return nil, storeError(err, "routine card", "create card")
	}
	return created, nil
}

// ListCards returns a version's cards ordered by moment of day.
func (s *RoutineService) ListCards(ctx context.Context, versionID string) ([]*routine.Card, error) {
	if _, err := s.GetVersion(ctx, versionID); err != nil {
		return nil, err
	}
	cards, err := s.cardsOf(ctx, s.db, versionID)
	if err != nil {
		return nil, err
	}
	out := make([]*routine.Card, len(cards))
	for i := range cards {
		out[i] = &cards[i]
	}
	return out, nil
}

func (s *RoutineService) GetCard(ctx context.Context, id string) (*routine.Card, error) {
	c, err := scanCard(s.db.QueryRow(ctx, `SELECT `+cardColumns+` FROM routine_cards WHERE id = $1`, id))
	if err != nil {
		return nil, storeError(err, "routine card", "get card")
	}
	return c, nil
}

func (s *RoutineService) DeleteCard(ctx context.Context, id string) error {
	return deleteByID(ctx, s.db, "routine_cards", "routine card", id)
}

func (s *RoutineService) CardOwner(ctx context.Context, cardID string) (string, error) {
	return s.owner(ctx, "routine card", `
		SELECT r.user_id FROM routine_cards c
		JOIN routine_versions v ON v.id = c.routine_version_id
		JOIN routines r ON r.id = v.routine_id
		WHERE c.id = $1`, cardID)
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

func (s *RoutineService) CreateItem(ctx context.Context, cardID string, req *routine.CreateItemRequest) (*routine.Item, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}
	expiresAt, err := utils.ParseOptionalDate(req.ExpiresAt)
	if err != nil {
		return nil, invalid(err)
	}
	frequency := req.Frequency
	if frequency == "" {
		frequency = "daily"
	}

	id := uuid.NewString()
	var created *routine.Item
	err = database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		routineID, err := routineOfCard(ctx, tx, cardID)
		if err != nil {
			return err
		}
		nextID := nullIfEmpty(deref(req.NextItemID))
		if nextID != nil {
			if err := checkSuccessor(ctx, tx, routineID, id, *nextID); err != nil {
				return err
			}
		}

		item, err := scanItem(tx.QueryRow(ctx, `
			INSERT INTO routine_items (id, routine_card_id, type, name, dosage, instructions, frequency,
				expires_at, duration_days, next_item_id, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING `+itemColumns,
			id, cardID, req.Type, strings.TrimSpace(req.Name), req.Dosage, req.Instructions, frequency,
			expiresAt, req.DurationDays, nextID, req.SortOrder,
		))
		created = item
		return err
	})
	if err != nil {
		return nil, passThrough(err, "routine item", "create item")
	}
	return created, nil
}

func (s *RoutineService) GetItem(ctx context.Context, id string) (*routine.Item, error) {
	item, err := scanItem(s.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM routine_items WHERE id = $1`, id))
	if err != nil {
		return nil, storeError(err, "routine item", "get item")
	}
	return item, nil
}

func (s *RoutineService) ListItems(ctx context.Context, cardID string) ([]*routine.Item, error) {
	if _, err := s.GetCard(ctx, cardID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+itemColumns+` FROM routine_items WHERE routine_card_id = $1 ORDER BY sort_order, created_at`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	items, err := collect(rows, scanItem)
	if err != nil {
		return nil, fmt.Errorf("failed to scan items: %w", err)
	}
	return items, nil
}

// UpdateItem applies a partial update. Empty ExpiresAt or NextItemID clear
// the field and a zero DurationDays clears the duration.
func (s *RoutineService) UpdateItem(ctx context.Context, id string, req *routine.UpdateItemRequest) (*routine.Item, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}

	var updated *routine.Item
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		item, err := scanItem(tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM routine_items WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}

		if req.Name != nil {
			item.Name = strings.TrimSpace(*req.Name)
		}
		if req.Dosage != nil {
			item.Dosage = req.Dosage
		}
		if req.Instructions != nil {
			item.Instructions = req.Instructions
		}
		if req.Frequency != nil {
			item.Frequency = *req.Frequency
		}
		if req.SortOrder != nil {
			item.SortOrder = *req.SortOrder
		}
		if req.ExpiresAt != nil {
			item.ExpiresAt, err = utils.ParseOptionalDate(req.ExpiresAt)
			if err != nil {
				return invalid(err)
			}
		}
		if req.DurationDays != nil {
			item.DurationDays = req.DurationDays
			if *req.DurationDays == 0 {
				item.DurationDays = nil
			}
		}
		if req.NextItemID != nil {
			item.NextItemID = nullIfEmpty(*req.NextItemID)
			if item.NextItemID != nil {
				routineID, err := routineOfCard(ctx, tx, item.RoutineCardID)
				if err != nil {
					return err
				}
				if err := checkSuccessor(ctx, tx, routineID, id, *item.NextItemID); err != nil {
					return err
				}
			}
		}

		updated, err = scanItem(tx.QueryRow(ctx, `
			UPDATE routine_items SET
				name = $2, dosage = $3, instructions = $4, frequency = $5, expires_at = $6,
				duration_days = $7, next_item_id = $8, sort_order = $9, updated_at = NOW()
			WHERE id = $1
			RETURNING `+itemColumns,
			id, item.Name, item.Dosage, item.Instructions, item.Frequency, item.ExpiresAt,
			item.DurationDays, item.NextItemID, item.SortOrder,
		))
		return err
	})
	if err != nil {
		return nil, passThrough(err, "routine item", "update item")
	}
	return updated, nil
}

func (s *RoutineService) DeleteItem(ctx context.Context, id string) error {
	return deleteByID(ctx, s.db, "routine_items", "routine item", id)
}

func (s *RoutineService) ItemOwner(ctx context.Context, itemID string) (string, error) {
	return s.owner(ctx, "routine item", `
		SELECT r.user_id FROM routine_items i
		JOIN routine_cards c ON c.id = i.routine_card_id
		JOIN routine_versions v ON v.id = c.routine_version_id
		JOIN routines r ON r.id = v.routine_id
		WHERE i.id = $1`, itemID)
}

// ---------------------------------------------------------------------------
// Schedule
// ---------------------------------------------------------------------------

// Schedule returns what the routine prescribes on date: the version current
// on that day, its cards and items annotated with their lifecycle status.
// A nil date means today in the owner's timezone.
func (s *RoutineService) Schedule(ctx context.Context, routineID string, date *time.Time) (*routine.Schedule, error) {
	versions, err := s.ListVersions(ctx, routineID)
	if err != nil {
		return nil, err
	}
	on, err := s.resolveDate(ctx, routineID, date)
	if err != nil {
		return nil, err
	}

	version := routine.CurrentVersion(derefAll(versions), on)
	if version == nil {
		return routine.BuildSchedule(routineID, nil, nil, nil, nil, on), nil
	}

	cards, err := s.cardsOf(ctx, s.db, version.ID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+prefixed("i", itemColumns)+`, c.routine_version_id
		FROM routine_items i
		JOIN routine_cards c ON c.id = i.routine_card_id
		JOIN routine_versions v ON v.id = c.routine_version_id
		WHERE v.routine_id = $1`, routineID)
	if err != nil {
		return nil, fmt.Errorf("failed to load routine items: %w", err)
	}
	defer rows.Close()

	var all, current []routine.Item
	for rows.Next() {
		var versionID string
		item, err := scanItemWith(rows, &versionID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan routine item: %w", err)
		}
		all = append(all, *item)
		if versionID == version.ID {
			current = append(current, *item)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return routine.BuildSchedule(routineID, version, cards, current, all, on), nil
}

// ---------------------------------------------------------------------------
// Completions
// ---------------------------------------------------------------------------

// RecordCompletion stores that userID completed or skipped an item on a day,
// today in the user's timezone when no date is given. A second record for the same user, item and day is a conflict.
func (s *RoutineService) RecordCompletion(ctx context.Context, userID, itemID string, req *routine.RecordCompletionRequest) (*routine.Completion, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}

	var created *routine.Completion
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		day, err := req.Date(func() (time.Time, error) { return userToday(ctx, tx, userID, s.now()) })
		if err != nil {
			return err
		}

		c, err := scanCompletion(tx.QueryRow(ctx, `
			INSERT INTO routine_completions (id, user_id, routine_item_id, completion_date, notes, skipped, skip_reason)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING `+completionColumns,
			uuid.NewString(), userID, itemID, day, req.Notes, req.Skipped, req.SkipReason,
		))
		if database.IsUniqueViolation(err) {
			return conflict("item already recorded for " + utils.FormatDate(day))
		}
		if database.IsForeignKeyViolation(err) {
			return notFound("routine item")
		}
		created = c
		return err
	})
	if err != nil {
		return nil, passThrough(err, "routine completion", "record completion")
	}
	return created, nil
}

// ListCompletions returns an item's completions for userID within an
// optional inclusive date range.
func (s *RoutineService) ListCompletions(ctx context.Context, userID, itemID string, from, to *time.Time) ([]*routine.Completion, error) {
	if _, err := s.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+completionColumns+` FROM routine_completions
		WHERE routine_item_id = $1 AND user_id = $2
		  AND ($3::date IS NULL OR completion_date >= $3)
		  AND ($4::date IS NULL OR completion_date <= $4)
		ORDER BY completion_date`,
		itemID, userID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list completions: %w", err)
	}
	completions, err := collect(rows, scanCompletion)
	if err != nil {
		return nil, fmt.Errorf("failed to scan completions: %w", err)
	}
	return completions, nil
}

func (s *RoutineService) GetCompletion(ctx context.Context, id string) (*routine.Completion, error) {
	c, err := scanCompletion(s.db.QueryRow(ctx, `SELECT `+completionColumns+` FROM routine_completions WHERE id = $1`, id))
	if err != nil {
		return nil, storeError(err, "routine completion", "get completion")
	}
	return c, nil
}

func (s *RoutineService) DeleteCompletion(ctx context.Context, id string) error {
	return deleteByID(ctx, s.db, "routine_completions", "routine completion", id)
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// lockRoutine takes a row lock on the routine and returns its owner's timezone.
func (s *RoutineService) lockRoutine(ctx context.Context, tx pgx.Tx, routineID string) (string, error) {
	var timezone string
	err := tx.QueryRow(ctx, `
		SELECT u.timezone FROM routines r
		JOIN users u ON u.id = r.user_id
		WHERE r.id = $1
		FOR UPDATE OF r`, routineID).Scan(&timezone)
	if database.IsNoRows(err) {
		return "", notFound("routine")
	}
	return timezone, err
}

func (s *RoutineService) resolveDate(ctx context.Context, routineID string, date *time.Time) (time.Time, error) {
	if date != nil {
		return utils.DateOnly(*date), nil
	}
	var timezone string
	err := s.db.QueryRow(ctx, `
		SELECT u.timezone FROM routines r JOIN users u ON u.id = r.user_id WHERE r.id = $1`, routineID).Scan(&timezone)
	if err != nil {
		return time.Time{}, storeError(err, "routine", "resolve date")
	}
	return s.today(timezone), nil
}

func (s *RoutineService) today(timezone string) time.Time {
	return localToday(s.now(), timezone)
}

func (s *RoutineService) cardsOf(ctx context.Context, db database.DB, versionID string) ([]routine.Card, error) {
	rows, err := db.Query(ctx, `SELECT `+cardColumns+` FROM routine_cards WHERE routine_version_id = $1`, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	cards, err := collect(rows, scanCard)
	if err != nil {
		return nil, fmt.Errorf("failed to scan cards: %w", err)
	}
	out := derefAll(cards)
	routine.SortCards(out)
	return out, nil
}

func (s *RoutineService) owner(ctx context.Context, what, query, id string) (string, error) {
	var userID string
	if err := s.db.QueryRow(ctx, query, id).Scan(&userID); err != nil {
		return "", storeError(err, what, "load owner")
	}
	return userID, nil
}

func setActiveVersion(ctx context.Context, tx pgx.Tx, routineID, versionID string) error {
	_, err := tx.Exec(ctx,
		`UPDATE routines SET active_version_id = $2, updated_at = NOW() WHERE id = $1`, routineID, versionID)
	return err
}

func routineOfCard(ctx context.Context, tx pgx.Tx, cardID string) (string, error) {
	var routineID string
	err := tx.QueryRow(ctx, `
		SELECT v.routine_id FROM routine_cards c
		JOIN routine_versions v ON v.id = c.routine_version_id
		WHERE c.id = $1`, cardID).Scan(&routineID)
	if database.IsNoRows(err) {
		return "", notFound("routine card")
	}
	return routineID, err
}

// checkSuccessor verifies next belongs to the same routine and that linking
// itemID to it keeps the chain acyclic.
func checkSuccessor(ctx context.Context, tx pgx.Tx, routineID, itemID, nextID string) error {
	var nextRoutineID string
	err := tx.QueryRow(ctx, `
		SELECT v.routine_id FROM routine_items i
		JOIN routine_cards c ON c.id = i.routine_card_id
		JOIN routine_versions v ON v.id = c.routine_version_id
		WHERE i.id = $1`, nextID).Scan(&nextRoutineID)
	if database.IsNoRows(err) {
		return invalid(errors.New("next item does not exist"))
	}
	if err != nil {
		return err
	}
	if nextRoutineID != routineID {
		return invalid(errors.New("next item belongs to a different routine"))
	}

	err = routine.CheckChain(itemID, nextID, func(id string) (string, error) {
		var next *string
		err := tx.QueryRow(ctx, `SELECT next_item_id FROM routine_items WHERE id = $1`, id).Scan(&next)
		if err != nil {
			return "", err
		}
		return deref(next), nil
	})
	if errors.Is(err, routine.ErrCycle) || errors.Is(err, routine.ErrChainTooLong) {
		return invalid(err)
	}
	return err
}

// scanItemWith scans an item followed by extra trailing columns.
func scanItemWith(row pgx.Row, extra ...any) (*routine.Item, error) {
	i := &routine.Item{}
	dest := []any{
		&i.ID,
		&i.RoutineCardID,
		&i.Type,
		&i.Name,
		&i.Dosage,
		&i.Instructions,
		&i.Frequency,
		&i.ExpiresAt,
		&i.DurationDays,
		&i.NextItemID,
		&i.SortOrder,
		&i.CreatedAt,
		&i.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return i, nil
}

func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func derefAll[T any](in []*T) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = *v
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
