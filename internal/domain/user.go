package domain

import "time"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
	RoleUser  Role = "user"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleStaff, RoleUser:
		return Role(s), true
	default:
		return "", false
	}
}

type User struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	PasswordHash    string     `json:"-"`
	Role            Role       `json:"role"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	Gender          string     `json:"gender,omitempty"`
	Birthday        *time.Time `json:"birthday,omitempty"`
	Address         string     `json:"address,omitempty"`
	DharmaName      string     `json:"dharmaName,omitempty"`
	HasTakenRefuge  bool       `json:"hasTakenRefuge"`
	AvatarURL       string     `json:"avatarUrl,omitempty"`

	// Account-email verification code (register/resend flows).
	VerifyOTPHash      *string    `json:"-"`
	VerifyOTPExpiresAt *time.Time `json:"-"`
	// Password-reset code (forgot/reset flows).
	ResetOTPHash      *string    `json:"-"`
	ResetOTPExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserSummary is the creator/author slice attached to event and post reads.
type UserSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type UserPatch struct {
	Name           *string    `json:"name"`
	Phone          *string    `json:"phone"`
	Role           *string    `json:"role"`
	Gender         *string    `json:"gender"`
	Birthday       *time.Time `json:"birthday"`
	Address        *string    `json:"address"`
	DharmaName     *string    `json:"dharmaName"`
	HasTakenRefuge *bool      `json:"hasTakenRefuge"`
	AvatarURL      *string    `json:"avatarUrl"`
}

type UserFilter struct {
	Search string
	Role   *Role
	SortBy string
	Order  string
	Page   int
	Limit  int
}
