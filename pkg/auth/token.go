package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/netaconnect/billing-backend/pkg/config"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// MintServiceToken issues a signed JWT for an internal caller. A zero ttl
// uses the configured default.
func MintServiceToken(cfg config.ServiceAuthConfig, now time.Time, subject string, ttl time.Duration, scopes ...string) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("service jwt secret is required")
	}
	if cfg.Issuer == "" {
		return "", fmt.Errorf("service jwt issuer is required")
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", fmt.Errorf("subject is required")
	}
	if ttl <= 0 {
		ttl = cfg.DefaultTTL
	}
	if ttl <= 0 {
		return "", fmt.Errorf("token ttl must be positive")
	}

	claims := ServiceTokenClaims{
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseServiceToken validates the JWT string and returns typed claims.
func ParseServiceToken(cfg config.ServiceAuthConfig, tokenString string) (*ServiceTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("service jwt secret is required")
	}

	claims := &ServiceTokenClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
