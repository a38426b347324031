package routine

import "time"

type Moment string

const (
	MomentMorning Moment = "MORNING"
	MomentMidday  Moment = "MIDDAY"
	MomentEvening Moment = "EVENING"
	MomentNight   Moment = "NIGHT"
)

var momentOrder = map[Moment]int{
	MomentMorning: 0,
	MomentMidday:  1,
	MomentEvening: 2,
	MomentNight:   3,
}

func (m Moment) Valid() bool {
	_, ok := momentOrder[m]
	return ok
}

type ItemType string

const (
	ItemMedication ItemType = "medication"
	ItemSupplement ItemType = "supplement"
	ItemSkincare   ItemType = "skincare"
	ItemHairCare   ItemType = "hair_care"
	ItemHabit      ItemType = "habit"
)

func (t ItemType) Valid() bool {
	switch t {
	case ItemMedication, ItemSupplement, ItemSkincare, ItemHairCare, ItemHabit:
		return true
	}
	return false
}

type Routine struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	Name            string    `json:"name"`
	Description     *string   `json:"description,omitempty"`
	ActiveVersionID *string   `json:"activeVersionId,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Version covers [StartDate, EndDate). A nil EndDate is open-ended.
type Version struct {
	ID            string     `json:"id"`
	RoutineID     string     `json:"routineId"`
	VersionNumber int        `json:"versionNumber"`
	StartDate     time.Time  `json:"startDate"`
	EndDate       *time.Time `json:"endDate,omitempty"`
	CreatedBy     *string    `json:"createdBy,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type Card struct {
	ID               string    `json:"id"`
	RoutineVersionID string    `json:"routineVersionId"`
	Moment           Moment    `json:"moment"`
	SortOrder        int       `json:"sortOrder"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type Item struct {
	ID            string     `json:"id"`
	RoutineCardID string     `json:"routineCardId"`
	Type          ItemType   `json:"type"`
	Name          string     `json:"name"`
	Dosage        *string    `json:"dosage,omitempty"`
	Instructions  *string    `json:"instructions,omitempty"`
	Frequency     string     `json:"frequency"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	DurationDays  *int       `json:"durationDays,omitempty"`
	NextItemID    *string    `json:"nextItemId,omitempty"`
	SortOrder     int        `json:"sortOrder"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type Completion struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	RoutineItemID  string    `json:"routineItemId"`
	CompletedAt    time.Time `json:"completedAt"`
	CompletionDate time.Time `json:"completionDate"`
	Notes          *string   `json:"notes,omitempty"`
	Skipped        bool      `json:"skipped"`
	SkipReason     *string   `json:"skipReason,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
