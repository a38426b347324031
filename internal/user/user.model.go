package user

import (
	"encoding/json"
	"time"
)

type User struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	FullName            string     `json:"fullName"`
	Timezone            string     `json:"timezone"`
	Language            string     `json:"language"`
	NotificationEnabled bool       `json:"notificationEnabled"`
	LastActiveAt        *time.Time `json:"lastActiveAt,omitempty"`
	DeletedAt           *time.Time `json:"deletedAt,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
	HashedPassword      *string    `json:"-"`
}

// State is the lifecycle state of an account.
type State int

const (
	Active State = iota
	Deleted
)

func (s State) String() string {
	if s == Deleted {
		return "deleted"
	}
	return "active"
}

func (u *User) State() State {
	if u.DeletedAt != nil {
		return Deleted
	}
	return Active
}

func (u *User) IsDeleted() bool {
	return u.State() == Deleted
}

// MarshalJSON adds the derived isDeleted flag to the stored fields.
func (u User) MarshalJSON() ([]byte, error) {
	type fields User
	return json.Marshal(struct {
		fields
		IsDeleted bool `json:"isDeleted"`
	}{fields(u), u.IsDeleted()})
}
