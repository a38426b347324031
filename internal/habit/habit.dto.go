package habit

import (
	"errors"
	"strings"
	"time"

	"healthOSAPI/utils"
)

type CreateHabitRequest struct {
	Name        string   `json:"name"`
	Type        Type     `json:"type"`
	TargetValue *float64 `json:"targetValue,omitempty"`
	Unit        *string  `json:"unit,omitempty"`
}

type UpdateHabitRequest struct {
	Name        *string  `json:"name,omitempty"`
	TargetValue *float64 `json:"targetValue,omitempty"`
	Unit        *string  `json:"unit,omitempty"`
	Active      *bool    `json:"active,omitempty"`
}

type LogHabitRequest struct {
	LogDate   string   `json:"logDate"`
	Completed bool     `json:"completed"`
	Value     *float64 `json:"value,omitempty"`
	Notes     *string  `json:"notes,omitempty"`
}

type UpdateLogRequest struct {
	Completed *bool    `json:"completed,omitempty"`
	Value     *float64 `json:"value,omitempty"`
	Notes     *string  `json:"notes,omitempty"`
}

func (r *CreateHabitRequest) Validate() error {
	if n := len([]rune(strings.TrimSpace(r.Name))); n < 1 || n > 255 {
		return errors.New("name must be between 1 and 255 characters")
	}
	if !r.Type.Valid() {
		return errors.New("type must be boolean or numeric")
	}
	if r.Type == TypeNumeric {
		if r.TargetValue == nil || r.Unit == nil || strings.TrimSpace(*r.Unit) == "" {
			return errors.New("numeric habits require targetValue and unit")
		}
	}
	return nil
}

func (r *UpdateHabitRequest) Validate() error {
	if r.Name != nil {
		if n := len([]rune(strings.TrimSpace(*r.Name))); n < 1 || n > 255 {
			return errors.New("name must be between 1 and 255 characters")
		}
	}
	return nil
}

// Date parses LogDate.
func (r *LogHabitRequest) Date() (time.Time, error) {
	return utils.ParseDate(r.LogDate)
}
