package services

import (
	"context"
	"fmt"
	"time"

	"github.com/comitanigiacomo/kanso-reminders/internal/core/domain"
	"github.com/golang-jwt/jwt/v5"
)

const (
	accessTokenType  = "access"
	refreshTokenType = "refresh"
)

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type TokenService struct {
	secretKey  []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	userRepo   domain.UserRepository
}

func NewTokenService(secretKey string, issuer string, accessTTL, refreshTTL time.Duration, userRepo domain.UserRepository) *TokenService {
	return &TokenService{
		secretKey:  []byte(secretKey),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		userRepo:   userRepo,
	}
}

// GenerateToken issues an access token.
func (s *TokenService) GenerateToken(userID string) (string, error) {
	return s.sign(userID, accessTokenType, s.accessTTL)
}

func (s *TokenService) GeneratePair(userID string) (*TokenPair, error) {
	access, err := s.sign(userID, accessTokenType, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(userID, refreshTokenType, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *TokenService) sign(userID, typ string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"typ": typ,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
		"iss": s.issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("token service: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// ValidateToken checks an access token and returns its subject.
func (s *TokenService) ValidateToken(tokenString string) (string, error) {
	return s.validate(tokenString, accessTokenType)
}

// Refresh exchanges a refresh token for a new pair.
func (s *TokenService) Refresh(refreshToken string) (*TokenPair, error) {
	userID, err := s.validate(refreshToken, refreshTokenType)
	if err != nil {
		return nil, err
	}
	return s.GeneratePair(userID)
}

func (s *TokenService) validate(tokenString, wantType string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})

	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token claims")
	}

	if iss, ok := claims["iss"].(string); !ok || iss != s.issuer {
		return "", fmt.Errorf("invalid token issuer")
	}
	if typ, ok := claims["typ"].(string); !ok || typ != wantType {
		return "", fmt.Errorf("invalid token type")
	}

	userID, ok := claims["sub"].(string)
	if !ok {
		return "", fmt.Errorf("invalid token subject")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return "", fmt.Errorf("user no longer exists or db error: %w", err)
	}

	return userID, nil
}
