package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"healthOSAPI/internal/database"
	"healthOSAPI/internal/habit"
)

const habitColumns = `id, user_id, name, type, target_value, unit, active, created_at, updated_at`

const logColumns = `id, habit_id, user_id, log_date, completed, value, logged_at, notes, created_at, updated_at`

const streakColumns = `id, habit_id, user_id, current_streak, longest_streak, last_completed_date, created_at, updated_at`

func scanHabit(row pgx.Row) (*habit.Habit, error) {
	h := &habit.Habit{}
	err := row.Scan(&h.ID, &h.UserID, &h.Name, &h.Type, &h.TargetValue, &h.Unit, &h.Active, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func scanLog(row pgx.Row) (*habit.Log, error) {
	l := &habit.Log{}
	err := row.Scan(&l.ID, &l.HabitID, &l.UserID, &l.LogDate, &l.Completed, &l.Value, &l.LoggedAt, &l.Notes, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func scanStreak(row pgx.Row) (*habit.Streak, error) {
	st := &habit.Streak{}
	err := row.Scan(&st.ID, &st.HabitID, &st.UserID, &st.CurrentStreak, &st.LongestStreak, &st.LastCompletedDate, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return st, nil
}

type HabitService struct {
	db  database.DB
	now func() time.Time
}

func NewHabitService(db database.DB) *HabitService {
	return &HabitService{db: db, now: time.Now}
}

// WithClock replaces the time source used to decide whether a streak lapsed.
func (s *HabitService) WithClock(now func() time.Time) *HabitService {
	s.now = now
	return s
}

func (s *HabitService) CreateHabit(ctx context.Context, userID string, req *habit.CreateHabitRequest) (*habit.Habit, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}

	query := `
	INSERT INTO habits (id, user_id, name, type, target_value, unit)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING ` + habitColumns

	var created *habit.Habit
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		h, err := scanHabit(tx.QueryRow(ctx, query,
			uuid.NewString(), userID, strings.TrimSpace(req.Name), req.Type, req.TargetValue, req.Unit,
		))
		created = h
		return err
	})
	if err != nil {
		return nil, storeError(err, "habit", "create habit")
	}
	return created, nil
}

func (s *HabitService) GetHabit(ctx context.Context, id string) (*habit.Habit, error) {
	h, err := scanHabit(s.db.QueryRow(ctx, `SELECT `+habitColumns+` FROM habits WHERE id = $1`, id))
	if err != nil {
		return nil, storeError(err, "habit", "get habit")
	}
	return h, nil
}

func (s *HabitService) GetUserHabits(ctx context.Context, userID string, activeOnly bool) ([]*habit.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE user_id = $1`
	if activeOnly {
		query += ` AND active`
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}
	defer rows.Close()

	habits := []*habit.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan habit: %w", err)
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

func (s *HabitService) UpdateHabit(ctx context.Context, id string, req *habit.UpdateHabitRequest) (*habit.Habit, error) {
	if err := req.Validate(); err != nil {
		return nil, invalid(err)
	}

	query := `
	UPDATE habits SET
		name = COALESCE($2, name),
		target_value = COALESCE($3, target_value),
		unit = COALESCE($4, unit),
		active = COALESCE($5, active),
		updated_at = NOW()
	WHERE id = $1
	RETURNING ` + habitColumns

	var updated *habit.Habit
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		h, err := scanHabit(tx.QueryRow(ctx, query, id, req.Name, req.TargetValue, req.Unit, req.Active))
		updated = h
		return err
	})
	if err != nil {
		return nil, storeError(err, "habit", "update habit")
	}
	return updated, nil
}

// DeleteHabit removes a habit with its logs and streak.
func (s *HabitService) DeleteHabit(ctx context.Context, id string) error {
	return deleteByID(ctx, s.db, "habits", "habit", id)
}

// LogHabit records one day of a habit and refreshes its streak. A second log
// for the same day is a conflict.
func (s *HabitService) LogHabit(ctx context.Context, habitID string, req *habit.LogHabitRequest) (*habit.Log, error) {
	logDate, err := req.Date()
	if err != nil {
		return nil, invalid(err)
	}

	var created *habit.Log
	err = database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var ownerID string
		if err := tx.QueryRow(ctx, `SELECT user_id FROM habits WHERE id = $1 FOR UPDATE`, habitID).Scan(&ownerID); err != nil {
			return storeError(err, "habit", "lock habit")
		}

		l, err := scanLog(tx.QueryRow(ctx, `
			INSERT INTO habit_logs (id, habit_id, user_id, log_date, completed, value, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING `+logColumns,
			uuid.NewString(), habitID, ownerID, logDate, req.Completed, req.Value, req.Notes,
		))
		if database.IsUniqueViolation(err) {
			return conflict("habit already logged for " + req.LogDate)
		}
		if err != nil {
			return err
		}
		created = l
		return recomputeStreak(ctx, tx, habitID, ownerID, s.now())
	})
	if err != nil {
		return nil, passThrough(err, "habit log", "log habit")
	}
	return created, nil
}

func (s *HabitService) GetLog(ctx context.Context, habitID, logID string) (*habit.Log, error) {
	l, err := scanLog(s.db.QueryRow(ctx,
		`SELECT `+logColumns+` FROM habit_logs WHERE id = $1 AND habit_id = $2`, logID, habitID))
	if err != nil {
		return nil, storeError(err, "habit log", "get habit log")
	}
	return l, nil
}

func (s *HabitService) UpdateLog(ctx context.Context, habitID, logID string, req *habit.UpdateLogRequest) (*habit.Log, error) {
	var updated *habit.Log
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		l, err := scanLog(tx.QueryRow(ctx, `
			UPDATE habit_logs SET
				completed = COALESCE($3, completed),
				value = COALESCE($4, value),
				notes = COALESCE($5, notes),
				updated_at = NOW()
			WHERE id = $1 AND habit_id = $2
			RETURNING `+logColumns,
			logID, habitID, req.Completed, req.Value, req.Notes,
		))
		if err != nil {
			return err
		}
		updated = l
		return recomputeStreak(ctx, tx, habitID, l.UserID, s.now())
	})
	if err != nil {
		return nil, passThrough(err, "habit log", "update habit log")
	}
	return updated, nil
}

func (s *HabitService) DeleteLog(ctx context.Context, habitID, logID string) error {
	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var ownerID string
		err := tx.QueryRow(ctx,
			`DELETE FROM habit_logs WHERE id = $1 AND habit_id = $2 RETURNING user_id`, logID, habitID,
		).Scan(&ownerID)
		if err != nil {
			return err
		}
		return recomputeStreak(ctx, tx, habitID, ownerID, s.now())
	})
	return passThrough(err, "habit log", "delete habit log")
}

// ListLogs returns a habit's logs in date order, optionally bounded by an
// inclusive date range.
func (s *HabitService) ListLogs(ctx context.Context, habitID string, from, to *time.Time) ([]*habit.Log, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+logColumns+` FROM habit_logs
		WHERE habit_id = $1
		  AND ($2::date IS NULL OR log_date >= $2)
		  AND ($3::date IS NULL OR log_date <= $3)
		ORDER BY log_date`,
		habitID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list habit logs: %w", err)
	}
	defer rows.Close()

	logs := []*habit.Log{}
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan habit log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// GetStreak returns the habit's streak, or a zero streak if nothing was
// logged yet. A current streak whose last completion is before yesterday in
// the owner's timezone reads as zero.
func (s *HabitService) GetStreak(ctx context.Context, habitID string) (*habit.Streak, error) {
	h, err := s.GetHabit(ctx, habitID)
	if err != nil {
		return nil, err
	}

	st, err := scanStreak(s.db.QueryRow(ctx,
		`SELECT `+streakColumns+` FROM habit_streaks WHERE habit_id = $1 AND user_id = $2`, h.ID, h.UserID))
	if database.IsNoRows(err) {
		return &habit.Streak{HabitID: h.ID, UserID: h.UserID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get streak: %w", err)
	}

	today, err := userToday(ctx, s.db, h.UserID, s.now())
	if err != nil {
		return nil, err
	}
	st.CurrentStreak = habit.CurrentOn(st.CurrentStreak, st.LastCompletedDate, today)
	return st, nil
}

func recomputeStreak(ctx context.Context, tx pgx.Tx, habitID, userID string, now time.Time) error {
	today, err := userToday(ctx, tx, userID, now)
	if err != nil {
		return err
	}

	rows, err := tx.Query(ctx,
		`SELECT log_date FROM habit_logs WHERE habit_id = $1 AND user_id = $2 AND completed`, habitID, userID)
	if err != nil {
		return fmt.Errorf("failed to load completed logs: %w", err)
	}
	dates, err := pgx.CollectRows(rows, pgx.RowTo[time.Time])
	if err != nil {
		return fmt.Errorf("failed to scan completed logs: %w", err)
	}

	var previousLongest int
	err = tx.QueryRow(ctx,
		`SELECT longest_streak FROM habit_streaks WHERE habit_id = $1 AND user_id = $2`, habitID, userID,
	).Scan(&previousLongest)
	if err != nil && !database.IsNoRows(err) {
		return fmt.Errorf("failed to load streak: %w", err)
	}

	stats := habit.ComputeStreak(dates, previousLongest, today)
	_, err = tx.Exec(ctx, `
		INSERT INTO habit_streaks (id, habit_id, user_id, current_streak, longest_streak, last_completed_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (habit_id, user_id) DO UPDATE SET
			current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			last_completed_date = EXCLUDED.last_completed_date,
			updated_at = NOW()`,
		uuid.NewString(), habitID, userID, stats.Current, stats.Longest, stats.LastCompletedDate,
	)
	if err != nil {
		return fmt.Errorf("failed to save streak: %w", err)
	}
	return nil
}

// deleteByID hard-deletes one row of table by id.
func deleteByID(ctx context.Context, db database.DB, table, what, id string) error {
	return database.WithTx(ctx, db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete %s: %w", what, err)
		}
		if tag.RowsAffected() == 0 {
			return notFound(what)
		}
		return nil
	})
}
