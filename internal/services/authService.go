package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"shopapi/internal/apperr"
)

// Identity is the decoded token payload.
type Identity struct {
	UserID  string
	IsAdmin bool
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

// VerifyPassword compares a plain password with a hashed password
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// TokenService issues and verifies the signed identity tokens carried by
// HTTP requests and the realtime handshake.
type TokenService struct {
	secret []byte
	expiry time.Duration
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret), expiry: 7 * 24 * time.Hour}
}

// GenerateToken signs a token carrying user id and admin flag.
func (t *TokenService) GenerateToken(userID string, isAdmin bool) (string, error) {
	claims := jwt.MapClaims{
		"id":      userID,
		"isAdmin": isAdmin,
		"exp":     time.Now().Add(t.expiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// ParseToken verifies a token and returns the embedded identity. Expired
// tokens are reported distinctly from any other verification failure.
func (t *TokenService) ParseToken(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, apperr.TokenExpired()
		}
		return Identity{}, apperr.TokenInvalid()
	}
	if !token.Valid {
		return Identity{}, apperr.TokenInvalid()
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, apperr.TokenInvalid()
	}

	id, ok := claims["id"].(string)
	if !ok || id == "" {
		return Identity{}, apperr.TokenInvalid()
	}
	isAdmin, _ := claims["isAdmin"].(bool)

	return Identity{UserID: id, IsAdmin: isAdmin}, nil
}
