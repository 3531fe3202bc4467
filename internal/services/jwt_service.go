package services

import (
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/poofware/inventory-service/internal/config"
	"github.com/poofware/inventory-service/internal/middleware"
	"github.com/poofware/inventory-service/internal/models"
)

// JWTService issues RS256 access tokens. There are no refresh tokens; clients
// log in again once the token expires.
type JWTService interface {
	GenerateAccessToken(user *models.User) (token string, expiresAt time.Time, err error)
}

type jwtService struct {
	privateKey  *rsa.PrivateKey
	tokenExpiry time.Duration
	now         func() time.Time
}

func NewJWTService(cfg *config.Config) JWTService {
	return &jwtService{
		privateKey:  cfg.RSAPrivateKey,
		tokenExpiry: cfg.TokenExpiry,
		now:         time.Now,
	}
}

func (j *jwtService) GenerateAccessToken(user *models.User) (string, time.Time, error) {
	if j.privateKey == nil {
		return "", time.Time{}, errors.New("jwtService has no private key")
	}
	issuedAt := j.now()
	expiresAt := issuedAt.Add(j.tokenExpiry)
	claims := jwt.MapClaims{
		"iss":   middleware.TokenIssuer,
		"sub":   user.ID.String(),
		"exp":   expiresAt.Unix(),
		"iat":   issuedAt.Unix(),
		"jti":   uuid.NewString(),
		"role":  string(user.Role),
		"email": user.Email,
		"name":  user.FullName,
	}
	signed, err := j.signClaims(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (j *jwtService) signClaims(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(j.privateKey)
}
