package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingSecret  = errors.New("jwt secret is required")
	ErrMissingSubject = errors.New("token missing sub claim")
)

// Verifier 는 HS256 단일 시크릿 문자열을 사용해 ID 토큰을 발급/검증한다.
type Verifier struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewVerifier(secret, issuer string, ttl time.Duration) (*Verifier, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if issuer == "" {
		issuer = "doha-explorer"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Verifier{secret: []byte(secret), issuer: issuer, ttl: ttl}, nil
}

// Sign issues a token for id. Used by tooling and tests; production tokens
// come from the identity provider.
func (v *Verifier) Sign(id Identity) (string, error) {
	claims := jwt.MapClaims{
		"sub":     id.UserID,
		"name":    id.DisplayName,
		"email":   id.Email,
		"picture": id.PhotoURL,
		"iss":     v.issuer,
		"exp":     time.Now().Add(v.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// Parse verifies tokenString and returns the identity it carries.
func (v *Verifier) Parse(tokenString string) (*Identity, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithIssuer(v.issuer))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrMissingSubject
	}
	name, _ := claims["name"].(string)
	email, _ := claims["email"].(string)
	picture, _ := claims["picture"].(string)

	return &Identity{UserID: sub, DisplayName: name, Email: email, PhotoURL: picture}, nil
}
