package services

import (
	"context"
	"errors"
	"fmt"

	"remindly/model"

	"google.golang.org/api/idtoken"
)

// GoogleVerifier checks Google ID tokens against the configured OAuth client ID.
type GoogleVerifier struct {
	ClientID string
	validate func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{ClientID: clientID, validate: idtoken.Validate}
}

func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (*model.GoogleIdentity, error) {
	if v.ClientID == "" {
		return nil, errors.New("google client id not configured")
	}

	payload, err := v.validate(ctx, idToken, v.ClientID)
	if err != nil {
		return nil, fmt.Errorf("validate id token: %w", err)
	}
	return identityFromClaims(payload)
}

func identityFromClaims(payload *idtoken.Payload) (*model.GoogleIdentity, error) {
	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, errors.New("id token has no email claim")
	}
	if verified, ok := payload.Claims["email_verified"].(bool); ok && !verified {
		return nil, errors.New("google email is not verified")
	}

	name, _ := payload.Claims["name"].(string)
	return &model.GoogleIdentity{
		Email:     email,
		Name:      name,
		SubjectID: payload.Subject,
	}, nil
}
