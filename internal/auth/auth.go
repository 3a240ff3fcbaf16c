package auth

import (
	"errors"
	"time"

	"crackers-backend/internal/models"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

// Token types carried in the `type` claim.
const (
	TypeUser  = "user"
	TypeAdmin = "admin"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Role string `json:"role,omitempty"`
	jwt.StandardClaims
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	secret   []byte
	userTTL  time.Duration
	adminTTL time.Duration
}

func NewIssuer(secret string, userTTL, adminTTL time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), userTTL: userTTL, adminTTL: adminTTL}
}

func (i *Issuer) sign(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.IssuedAt = now.Unix()
	claims.ExpiresAt = now.Add(ttl).Unix()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

func (i *Issuer) UserToken(u *models.User) (string, error) {
	return i.sign(Claims{ID: u.ID.Hex(), Type: TypeUser}, i.userTTL)
}

func (i *Issuer) AdminToken(a *models.Admin) (string, error) {
	return i.sign(Claims{ID: a.ID.Hex(), Type: TypeAdmin, Role: string(a.Role)}, i.adminTTL)
}

func (i *Issuer) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
