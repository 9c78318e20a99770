package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v4"
)

// TokenValidator checks HMAC-signed JWTs issued by the auth service.
type TokenValidator struct {
	secret []byte
}

// NewTokenValidator returns a validator for secret. An empty secret yields a
// validator that rejects every token.
func NewTokenValidator(secret string) *TokenValidator {
	return &TokenValidator{secret: []byte(secret)}
}

// ParseAndValidateToken parses a JWT token string and returns its claims.
// If expectedType is non-empty, the claim "typ" must match it.
func (v *TokenValidator) ParseAndValidateToken(tokenStr, expectedType string) (jwt.MapClaims, error) {
	if len(v.secret) == 0 {
		return nil, fmt.Errorf("JWT secret not configured")
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	if expectedType != "" {
		if typ, ok := claims["typ"].(string); !ok || typ != expectedType {
			return nil, fmt.Errorf("invalid token type")
		}
	}
	return claims, nil
}

// UserID extracts the subject, falling back to a "user_id" claim.
func UserID(claims jwt.MapClaims) (string, error) {
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub, nil
	}
	if uid, ok := claims["user_id"].(string); ok && uid != "" {
		return uid, nil
	}
	return "", fmt.Errorf("token has no subject")
}
