package routine

import (
	"time"

	"healthOSAPI/utils"
)

type ItemStatus string

const (
	StatusActive       ItemStatus = "ACTIVE"
	StatusExpiringSoon ItemStatus = "EXPIRING_SOON"
	StatusExpired      ItemStatus = "EXPIRED"
)

// ExpiringSoonDays is how close to its last valid day an item is flagged.
const ExpiringSoonDays = 7

// ValidUntil returns the first day the item is no longer valid, or nil when
// it never expires. An explicit expiry date wins over a duration.
func (i *Item) ValidUntil() *time.Time {
	if i.ExpiresAt != nil {
		end := utils.DateOnly(*i.ExpiresAt)
		return &end
	}
	if i.DurationDays != nil {
		end := utils.DateOnly(i.CreatedAt).AddDate(0, 0, *i.DurationDays)
		return &end
	}
	return nil
}

func (i *Item) ValidOn(date time.Time) bool {
	end := i.ValidUntil()
	return end == nil || utils.DateOnly(date).Before(*end)
}

func (i *Item) StatusOn(date time.Time) ItemStatus {
	end := i.ValidUntil()
	if end == nil {
		return StatusActive
	}
	left := utils.DaysBetween(date, *end)
	switch {
	case left <= 0:
		return StatusExpired
	case left <= ExpiringSoonDays:
		return StatusExpiringSoon
	default:
		return StatusActive
	}
}

// ResolveSuccessor follows the next-item chain from an expired item to the
// first successor still valid on date. It returns nil when the chain ends
// without one.
func ResolveSuccessor(item *Item, date time.Time, lookup map[string]*Item) *Item {
	seen := map[string]bool{item.ID: true}
	cur := item
	for cur.NextItemID != nil {
		next, ok := lookup[*cur.NextItemID]
		if !ok || seen[next.ID] {
			return nil
		}
		if next.ValidOn(date) {
			return next
		}
		seen[next.ID] = true
		cur = next
	}
	return nil
}
