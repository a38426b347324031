package services

import (
	"context"
	"time"

	"healthOSAPI/internal/database"
	"healthOSAPI/utils"
)

// localToday is the calendar day at now in timezone. Unknown zones fall back
// to UTC; stored timezones are validated on write.
func localToday(now time.Time, timezone string) time.Time {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return utils.DateOnly(now.In(loc))
}

// userToday is the calendar day at now in userID's timezone.
func userToday(ctx context.Context, db database.DB, userID string, now time.Time) (time.Time, error) {
	var timezone string
	if err := db.QueryRow(ctx, `SELECT timezone FROM users WHERE id = $1`, userID).Scan(&timezone); err != nil {
		return time.Time{}, storeError(err, "user", "load timezone")
	}
	return localToday(now, timezone), nil
}
