package service

import (
	"fmt"
	"time"

	"stablecoin-checkout/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTSessionTokenService implements ports.SessionTokenService using HS256 JWT.
// The token binds a caller to exactly one checkout session; it carries no
// processor credentials.
type JWTSessionTokenService struct {
	secret []byte
	expiry time.Duration
	issuer string
}

// NewJWTSessionTokenService creates a new JWT session token service.
func NewJWTSessionTokenService(secret string, expiry time.Duration, issuer string) *JWTSessionTokenService {
	return &JWTSessionTokenService{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
	}
}

// Generate creates a signed JWT for the given session.
func (s *JWTSessionTokenService) Generate(sessionID uuid.UUID) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiry)

	claims := jwt.MapClaims{
		"sub": sessionID.String(),
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
		"iss": s.issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Validate parses and validates a session token, returning the session ID.
func (s *JWTSessionTokenService) Validate(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, apperror.ErrInvalidToken()
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, apperror.ErrInvalidToken()
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, apperror.ErrInvalidToken()
	}

	sessionID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, apperror.ErrInvalidToken()
	}

	return sessionID, nil
}
