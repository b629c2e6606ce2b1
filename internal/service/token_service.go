package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/sma-roster-api/internal/models"
	appErrors "github.com/noah-isme/sma-roster-api/pkg/errors"
)

// TokenService verifies the bearer tokens that identify a professor. Issuing is only used by
// operator tooling and tests; login lives elsewhere.
type TokenService struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

// NewTokenService constructs a TokenService.
func NewTokenService(secret string, expiration time.Duration) *TokenService {
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}
	return &TokenService{secret: []byte(secret), expiration: expiration, now: time.Now}
}

// Issue signs a token for the professor.
func (s *TokenService) Issue(professorID, email, fullName string) (string, time.Time, error) {
	professorID = strings.TrimSpace(professorID)
	if professorID == "" {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrValidation, "professor id is required")
	}
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.expiration)
	claims := &models.ProfessorClaims{
		ProfessorID: professorID,
		Email:       email,
		FullName:    fullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   professorID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken parses and validates a token returning its claims.
func (s *TokenService) ValidateToken(tokenString string) (*models.ProfessorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.ProfessorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.ProfessorClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.ProfessorID == "" {
		claims.ProfessorID = claims.Subject
	}
	if claims.ProfessorID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token does not identify a professor")
	}
	return claims, nil
}
