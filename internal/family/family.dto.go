package family

import (
	"errors"
	"strings"
)

type CreateFamilyRequest struct {
	Name string `json:"name"`
}

type UpdateFamilyRequest struct {
	Name *string `json:"name,omitempty"`
}

type AddMemberRequest struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role,omitempty"`
}

type UpdateMemberRequest struct {
	Role Role `json:"role"`
}

func validateName(name string) error {
	n := len([]rune(strings.TrimSpace(name)))
	if n < 1 || n > 255 {
		return errors.New("family name must be between 1 and 255 characters")
	}
	return nil
}

func (r *CreateFamilyRequest) Validate() error {
	return validateName(r.Name)
}

func (r *UpdateFamilyRequest) Validate() error {
	if r.Name != nil {
		return validateName(*r.Name)
	}
	return nil
}

func (r *AddMemberRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("userId is required")
	}
	if r.Role == "" {
		r.Role = RoleMember
	}
	if !r.Role.Valid() {
		return errors.New("role must be admin or member")
	}
	return nil
}

func (r *UpdateMemberRequest) Validate() error {
	if !r.Role.Valid() {
		return errors.New("role must be admin or member")
	}
	return nil
}
