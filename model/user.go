package model

import "time"

type User struct {
	UserID    string    `bson:"user_id" json:"user_id"`
	Email     string    `bson:"email" json:"email" validate:"required,email"`
	Name      string    `bson:"name,omitempty" json:"name,omitempty"`
	GoogleID  string    `bson:"google_id,omitempty" json:"google_id,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Caller identifies the authenticated user behind a request.
type Caller struct {
	UserID string
	Email  string
	Admin  bool
}

// GoogleIdentity is what a verified Google ID token tells us about the user.
type GoogleIdentity struct {
	Email     string
	Name      string
	SubjectID string
}
