package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig holds signing settings.
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

var jwtConfig *JWTConfig

// Init sets the signing secret and access token lifetime.
func Init(secret string, accessExpiryMinutes int) {
	jwtConfig = &JWTConfig{
		Secret:            secret,
		AccessTokenExpiry: time.Duration(accessExpiryMinutes) * time.Minute,
	}
}

// Claims are the access token claims issued by the identity service.
type Claims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs an access token for userID.
// Tokens are normally issued by the identity service; this is used by tests and tooling.
func GenerateAccessToken(userID uint) (string, error) {
	if jwtConfig == nil {
		return "", errors.New("jwt not initialized")
	}
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(jwtConfig.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "clinic_chat",
			Subject:   "access_token",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtConfig.Secret))
}

// ParseToken verifies tokenString and returns its claims.
func ParseToken(tokenString string) (*Claims, error) {
	if jwtConfig == nil {
		return nil, errors.New("jwt not initialized")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtConfig.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}
