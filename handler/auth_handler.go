package handler

import (
	"remindly/dto"
	"remindly/middleware"
	"remindly/usecase"
	"remindly/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	service *usecase.AuthService
}

func NewAuthHandler(service *usecase.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// GoogleLogin checks the Google ID token and emails a one-time code.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var req dto.GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	email, err := h.service.GoogleLogin(c.Request.Context(), req.Token)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, dto.GoogleLoginResponse{Email: email, Message: "OTP sent to your email"})
}

func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	session, err := h.service.VerifyOTP(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Info("user signed in",
		zap.String("user_id", session.User.UserID),
		zap.String("client", utils.ClientName(c.Request.UserAgent())))
	utils.Success(c, dto.ToSessionResponse(session))
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context(), middleware.TokenFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	utils.Message(c, "Successfully logged out", nil)
}
