package security

import (
	"errors"
	"time"

	"codequest/internal/platform/config"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

var TokenAuth *jwtauth.JWTAuth

func InitJWT() {
	TokenAuth = jwtauth.New("HS256", config.AppConfig.JWTKey, nil)
}

// GenerateToken mints a token for a user id. Identity management lives
// outside this service; this is used by tooling and tests that need a
// token the verifier will accept.
func GenerateToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(config.AppConfig.JWTExp).Unix(),
		"iat":     time.Now().Unix(),
	}
	_, tokenString, err := TokenAuth.Encode(claims)
	return tokenString, err
}

func GetUserIDFromClaims(claims jwt.MapClaims) (string, error) {
	id, ok := claims["user_id"].(string)
	if !ok || id == "" {
		return "", errors.New("user_id claim is missing or not a string")
	}
	return id, nil
}
