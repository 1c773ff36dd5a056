package domain

import "time"

// User is a wallet identity, created lazily on first reference.
type User struct {
	Address   string
	Profile   *UserProfile
	Skills    *UserSkills
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserProfile holds self-reported profile data.
type UserProfile struct {
	Name      string
	Email     string
	Bio       string
	Website   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserSkills holds the user's declared skills.
type UserSkills struct {
	Skills    []string
	CreatedAt time.Time
	UpdatedAt time.Time
}
