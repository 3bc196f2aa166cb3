package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"remindly/model"
	"remindly/repository"
	"remindly/utils"

	"go.uber.org/zap"
)

type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
	Admin     bool        `json:"admin"`
}

type AuthService struct {
	users    UserStore
	verifier TokenVerifier
	otps     OTPStore
	mailer   Mailer
	tokens   TokenIssuer
	admins   map[string]bool
	otpTTL   time.Duration
}

func NewAuthService(users UserStore, verifier TokenVerifier, otps OTPStore, mailer Mailer, tokens TokenIssuer, adminEmails []string, otpTTL time.Duration) *AuthService {
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		admins[utils.NormalizeEmail(e)] = true
	}
	return &AuthService{
		users:    users,
		verifier: verifier,
		otps:     otps,
		mailer:   mailer,
		tokens:   tokens,
		admins:   admins,
		otpTTL:   otpTTL,
	}
}

// GoogleLogin verifies a Google ID token, records the user and emails a one-time code.
// It returns the address the code was sent to.
func (svc *AuthService) GoogleLogin(ctx context.Context, idToken string) (string, error) {
	if idToken == "" {
		return "", NewValidationError("token", "must not be empty")
	}
	identity, err := svc.verifier.Verify(ctx, idToken)
	if err != nil {
		utils.TrackAuthAttempt("failure", "google")
		utils.Warn("google token rejected", zap.Error(err))
		return "", NewAuthError("invalid Google token")
	}
	email := utils.NormalizeEmail(identity.Email)
	if email == "" {
		utils.TrackAuthAttempt("failure", "google")
		return "", NewAuthError("Google account has no email")
	}

	if _, err := svc.users.UpsertUser(ctx, &model.User{
		Email:    email,
		Name:     identity.Name,
		GoogleID: identity.SubjectID,
	}); err != nil {
		return "", err
	}

	code, err := svc.otps.Issue(ctx, email)
	if err != nil {
		return "", err
	}
	if err := svc.mailer.Send(ctx, svc.otpEmail(email, code)); err != nil {
		utils.Error("failed to send one-time code", err, zap.String("email", email))
		return "", NewDeliveryError(err)
	}

	utils.TrackAuthAttempt("success", "google")
	utils.Info("one-time code sent", zap.String("email", email))
	return email, nil
}

// VerifyOTP exchanges a valid one-time code for a session token.
func (svc *AuthService) VerifyOTP(ctx context.Context, email, code string) (*Session, error) {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return nil, NewValidationError("email", "must not be empty")
	}
	if code == "" {
		return nil, NewValidationError("otp", "must not be empty")
	}

	if err := svc.otps.Check(ctx, email, code); err != nil {
		utils.TrackAuthAttempt("failure", "otp")
		switch {
		case errors.Is(err, ErrTooManyAttempts):
			return nil, NewAuthError("too many attempts, request a new code")
		case errors.Is(err, ErrCodeMismatch), errors.Is(err, ErrCodeNotIssued):
			return nil, NewAuthError("invalid or expired code")
		default:
			return nil, err
		}
	}

	user, err := svc.users.FindUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		user, err = svc.users.UpsertUser(ctx, &model.User{Email: email})
	}
	if err != nil {
		return nil, err
	}

	admin := svc.admins[email]
	token, expiresAt, err := svc.tokens.Issue(user, admin)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	utils.TrackAuthAttempt("success", "otp")
	return &Session{Token: token, ExpiresAt: expiresAt, User: user, Admin: admin}, nil
}

// Logout revokes the token until it would have expired anyway.
func (svc *AuthService) Logout(ctx context.Context, token string) error {
	if err := svc.tokens.Revoke(ctx, token); err != nil {
		utils.TrackAuthAttempt("failure", "logout")
		return err
	}
	utils.TrackAuthAttempt("success", "logout")
	return nil
}

func (svc *AuthService) otpEmail(to, code string) model.Email {
	minutes := int(svc.otpTTL.Minutes())
	return model.Email{
		To:      to,
		Subject: "Your OTP - Task Reminder",
		Text:    fmt.Sprintf("Your OTP is %s. It expires in %d minutes.", code, minutes),
		HTML: fmt.Sprintf(`<p>Your OTP is <strong style="font-size: 20px; letter-spacing: 4px;">%s</strong></p>`+
			`<p>It expires in %d minutes.</p>`, code, minutes),
	}
}
