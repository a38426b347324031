package habit

import "time"

type Type string

const (
	TypeBoolean Type = "boolean"
	TypeNumeric Type = "numeric"
)

func (t Type) Valid() bool {
	return t == TypeBoolean || t == TypeNumeric
}

type Habit struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Type        Type      `json:"type"`
	TargetValue *float64  `json:"targetValue,omitempty"`
	Unit        *string   `json:"unit,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Log struct {
	ID        string    `json:"id"`
	HabitID   string    `json:"habitId"`
	UserID    string    `json:"userId"`
	LogDate   time.Time `json:"logDate"`
	Completed bool      `json:"completed"`
	Value     *float64  `json:"value,omitempty"`
	LoggedAt  time.Time `json:"loggedAt"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Streak struct {
	ID                string     `json:"id"`
	HabitID           string     `json:"habitId"`
	UserID            string     `json:"userId"`
	CurrentStreak     int        `json:"currentStreak"`
	LongestStreak     int        `json:"longestStreak"`
	LastCompletedDate *time.Time `json:"lastCompletedDate,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}
