package dto

import (
	"time"

	"remindly/model"
	"remindly/usecase"
)

type GoogleLoginRequest struct {
	Token string `json:"token" binding:"required"`
}

type GoogleLoginResponse struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6,numeric"`
}

type UserResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
}

type SessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
	IsAdmin   bool         `json:"is_admin"`
}

func ToUserResponse(user *model.User) UserResponse {
	return UserResponse{
		UserID: user.UserID,
		Email:  user.Email,
		Name:   user.Name,
	}
}

func ToSessionResponse(session *usecase.Session) SessionResponse {
	return SessionResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      ToUserResponse(session.User),
		IsAdmin:   session.Admin,
	}
}
