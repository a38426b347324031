package family

import "time"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

type Family struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Membership struct {
	ID        string    `json:"id"`
	FamilyID  string    `json:"familyId"`
	UserID    string    `json:"userId"`
	Role      Role      `json:"role"`
	JoinedAt  time.Time `json:"joinedAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Member is a membership joined with the member's profile.
type Member struct {
	Membership
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

// UserFamily is a family as seen by one of its members.
type UserFamily struct {
	Family
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}
