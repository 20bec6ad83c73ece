package jwt

import (
	"fmt"
	"time"

	"github.com/Chu-rill/Huddle/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// NewToken выпускает access token с полезной нагрузкой {id, username}.
func NewToken(user models.User, secret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"id":       user.ID,
		"username": user.Username,
		"exp":      time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(secret))
}

// Claims is the verified payload of an access token.
type Claims struct {
	UserID   int64
	Username string
}

func ParseToken(tokenStr, secret string) (Claims, error) {
	const op = "jwt.ParseToken"

	claims := jwt.MapClaims{}

	parsedToken, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%s: unexpected signing method", op)
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%s: failed to parse token: %w", op, err)
	}

	if !parsedToken.Valid {
		return Claims{}, fmt.Errorf("%s: invalid token", op)
	}

	if expFloat, ok := claims["exp"].(float64); ok {
		if time.Now().Unix() > int64(expFloat) {
			return Claims{}, fmt.Errorf("%s: token expired", op)
		}
	} else {
		return Claims{}, fmt.Errorf("%s: missing exp claim", op)
	}

	idFloat, ok := claims["id"].(float64)
	if !ok {
		return Claims{}, fmt.Errorf("%s: missing id claim", op)
	}

	username, ok := claims["username"].(string)
	if !ok {
		return Claims{}, fmt.Errorf("%s: missing username claim", op)
	}

	return Claims{UserID: int64(idFloat), Username: username}, nil
}
