package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"remindly/model"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrRevokedToken = errors.New("token has been revoked")
)

// TokenService issues and checks the HS256 session tokens handed out after OTP verification.
type TokenService struct {
	secret    []byte
	issuer    string
	expiry    time.Duration
	blacklist *RedisTokenBlacklist
	now       func() time.Time
}

func NewTokenService(secret, issuer string, expiry time.Duration, blacklist *RedisTokenBlacklist) *TokenService {
	return &TokenService{
		secret:    []byte(secret),
		issuer:    issuer,
		expiry:    expiry,
		blacklist: blacklist,
		now:       time.Now,
	}
}

func (s *TokenService) Issue(user *model.User, admin bool) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.expiry)

	claims := jwt.MapClaims{
		"user_id": user.UserID,
		"email":   user.Email,
		"admin":   admin,
		"iss":     s.issuer,
		"iat":     now.Unix(),
		"exp":     expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, time.Unix(expiresAt.Unix(), 0), nil
}

// Parse validates the token and returns the caller it was issued to.
func (s *TokenService) Parse(ctx context.Context, tokenString string) (*model.Caller, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}

	if s.blacklist != nil {
		revoked, err := s.blacklist.IsBlacklisted(ctx, tokenString)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, ErrRevokedToken
		}
	}

	userID, _ := claims["user_id"].(string)
	email, _ := claims["email"].(string)
	admin, _ := claims["admin"].(bool)
	if userID == "" || email == "" {
		return nil, ErrInvalidToken
	}
	return &model.Caller{UserID: userID, Email: email, Admin: admin}, nil
}

// Revoke blacklists a still valid token for the rest of its lifetime.
func (s *TokenService) Revoke(ctx context.Context, tokenString string) error {
	claims, err := s.parse(tokenString)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil
	}
	if err != nil {
		return err
	}
	if s.blacklist == nil {
		return fmt.Errorf("token blacklist not initialized")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return ErrInvalidToken
	}
	return s.blacklist.Blacklist(ctx, tokenString, exp.Time)
}

func (s *TokenService) parse(tokenString string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
