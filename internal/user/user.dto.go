package user

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

var SupportedLanguages = []string{"es", "en"}

type CreateUserRequest struct {
	// ID is optional; a random id is assigned when empty.
	ID       string `json:"id,omitempty"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Timezone string `json:"timezone,omitempty"`
	Language string `json:"language,omitempty"`
	Password string `json:"password,omitempty"`
}

type UpdateUserRequest struct {
	Email               *string `json:"email,omitempty"`
	FullName            *string `json:"fullName,omitempty"`
	Timezone            *string `json:"timezone,omitempty"`
	Language            *string `json:"language,omitempty"`
	NotificationEnabled *bool   `json:"notificationEnabled,omitempty"`
}

func (r *CreateUserRequest) Validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if err := validateFullName(r.FullName); err != nil {
		return err
	}
	if r.Language != "" {
		if err := validateLanguage(r.Language); err != nil {
			return err
		}
	}
	if r.Timezone != "" {
		if err := ValidateTimezone(r.Timezone); err != nil {
			return err
		}
	}
	if r.Password != "" && len(r.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

func (r *UpdateUserRequest) Validate() error {
	if r.Email != nil {
		if err := validateEmail(*r.Email); err != nil {
			return err
		}
	}
	if r.FullName != nil {
		if err := validateFullName(*r.FullName); err != nil {
			return err
		}
	}
	if r.Language != nil {
		if err := validateLanguage(*r.Language); err != nil {
			return err
		}
	}
	if r.Timezone != nil {
		if err := ValidateTimezone(*r.Timezone); err != nil {
			return err
		}
	}
	return nil
}

// ValidateTimezone accepts IANA zone names known to the runtime's tz database.
func ValidateTimezone(tz string) error {
	if strings.TrimSpace(tz) == "" {
		return errors.New("timezone must not be empty")
	}
	if _, err := time.LoadLocation(tz); err != nil || tz == "Local" {
		return fmt.Errorf("unknown timezone %q", tz)
	}
	return nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.New("invalid email address")
	}
	return nil
}

func validateFullName(name string) error {
	n := len([]rune(strings.TrimSpace(name)))
	if n < 1 || n > 255 {
		return errors.New("full name must be between 1 and 255 characters")
	}
	return nil
}

func validateLanguage(lang string) error {
	for _, l := range SupportedLanguages {
		if l == lang {
			return nil
		}
	}
	return errors.New("language must be one of: es, en")
}
