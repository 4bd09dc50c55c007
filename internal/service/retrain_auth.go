package service

import (
	"fmt"
	"time"

	"github.com/boddenberg/finml/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

const (
	retrainTokenType   = "retrain"
	retrainTokenIssuer = "finml"
)

// RetrainClaims are the claims carried by a retrain bearer token.
type RetrainClaims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// RetrainAuth issues and validates HS256 tokens guarding POST /retrain.
type RetrainAuth struct {
	secret []byte
}

// NewRetrainAuth returns nil for an empty secret, which leaves retrain open.
func NewRetrainAuth(secret string) *RetrainAuth {
	if secret == "" {
		return nil
	}
	return &RetrainAuth{secret: []byte(secret)}
}

// IssueToken signs a retrain token for subject valid for ttl.
func (a *RetrainAuth) IssueToken(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := RetrainClaims{
		Type: retrainTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    retrainTokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign retrain token: %w", err)
	}
	return signed, nil
}

// Validate parses tokenString and checks signature, expiry and token type.
func (a *RetrainAuth) Validate(tokenString string) (*RetrainClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &RetrainClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithIssuer(retrainTokenIssuer))
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*RetrainClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	if claims.Type != retrainTokenType {
		return nil, &domain.ErrUnauthorized{Message: "invalid token type"}
	}
	return claims, nil
}
