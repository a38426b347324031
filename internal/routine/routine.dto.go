package routine

import (
	"errors"
	"strings"
	"time"

	"healthOSAPI/utils"
)

type CreateRoutineRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

type UpdateRoutineRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

type CreateVersionRequest struct {
	// VersionNumber is assigned when omitted.
	VersionNumber *int    `json:"versionNumber,omitempty"`
	StartDate     string  `json:"startDate"`
	EndDate       *string `json:"endDate,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

type SetActiveVersionRequest struct {
	VersionID string `json:"versionId"`
}

type CreateCardRequest struct {
	Moment    Moment `json:"moment"`
	SortOrder int    `json:"sortOrder"`
}

type CreateItemRequest struct {
	Type         ItemType `json:"type"`
	Name         string   `json:"name"`
	Dosage       *string  `json:"dosage,omitempty"`
	Instructions *string  `json:"instructions,omitempty"`
	Frequency    string   `json:"frequency,omitempty"`
	ExpiresAt    *string  `json:"expiresAt,omitempty"`
	DurationDays *int     `json:"durationDays,omitempty"`
	NextItemID   *string  `json:"nextItemId,omitempty"`
	SortOrder    int      `json:"sortOrder"`
}

// UpdateItemRequest is a partial update. An empty string for ExpiresAt or
// NextItemID clears the field; DurationDays of 0 clears the duration.
type UpdateItemRequest struct {
	Name         *string `json:"name,omitempty"`
	Dosage       *string `json:"dosage,omitempty"`
	Instructions *string `json:"instructions,omitempty"`
	Frequency    *string `json:"frequency,omitempty"`
	ExpiresAt    *string `json:"expiresAt,omitempty"`
	DurationDays *int    `json:"durationDays,omitempty"`
	NextItemID   *string `json:"nextItemId,omitempty"`
	SortOrder    *int    `json:"sortOrder,omitempty"`
}

type RecordCompletionRequest struct {
	// CompletionDate defaults to today when empty.
	CompletionDate string  `json:"completionDate,omitempty"`
	Skipped        bool    `json:"skipped"`
	SkipReason     *string `json:"skipReason,omitempty"`
	Notes          *string `json:"notes,omitempty"`
}

func validName(name string) error {
	if n := len([]rune(strings.TrimSpace(name))); n < 1 || n > 255 {
		return errors.New("name must be between 1 and 255 characters")
	}
	return nil
}

func (r *CreateRoutineRequest) Validate() error {
	return validName(r.Name)
}

func (r *UpdateRoutineRequest) Validate() error {
	if r.Name != nil {
		return validName(*r.Name)
	}
	return nil
}

func (r *CreateVersionRequest) Validate() error {
	if r.VersionNumber != nil && *r.VersionNumber < 1 {
		return errors.New("versionNumber must be at least 1")
	}
	if _, err := utils.ParseDate(r.StartDate); err != nil {
		return err
	}
	_, err := utils.ParseOptionalDate(r.EndDate)
	return err
}

// Dates parses the version range.
func (r *CreateVersionRequest) Dates() (time.Time, *time.Time, error) {
	start, err := utils.ParseDate(r.StartDate)
	if err != nil {
		return time.Time{}, nil, err
	}
	end, err := utils.ParseOptionalDate(r.EndDate)
	if err != nil {
		return time.Time{}, nil, err
	}
	return start, end, nil
}

func (r *CreateCardRequest) Validate() error {
	if !r.Moment.Valid() {
		return errors.New("moment must be one of MORNING, MIDDAY, EVENING, NIGHT")
	}
	return nil
}

func (r *CreateItemRequest) Validate() error {
	if !r.Type.Valid() {
		return errors.New("type must be one of medication, supplement, skincare, hair_care, habit")
	}
	if err := validName(r.Name); err != nil {
		return err
	}
	if r.DurationDays != nil && *r.DurationDays < 1 {
		return errors.New("durationDays must be positive")
	}
	_, err := utils.ParseOptionalDate(r.ExpiresAt)
	return err
}

func (r *UpdateItemRequest) Validate() error {
	if r.Name != nil {
		if err := validName(*r.Name); err != nil {
			return err
		}
	}
	if r.DurationDays != nil && *r.DurationDays < 0 {
		return errors.New("durationDays must not be negative")
	}
	_, err := utils.ParseOptionalDate(r.ExpiresAt)
	return err
}

func (r *RecordCompletionRequest) Validate() error {
	if r.CompletionDate != "" {
		if _, err := utils.ParseDate(r.CompletionDate); err != nil {
			return err
		}
	}
	if !r.Skipped && r.SkipReason != nil {
		return errors.New("skipReason is only allowed when skipped")
	}
	return nil
}

// Date returns the completion day, asking today for it when none was given.
func (r *RecordCompletionRequest) Date(today func() (time.Time, error)) (time.Time, error) {
	if r.CompletionDate == "" {
		return today()
	}
	return utils.ParseDate(r.CompletionDate)
}
