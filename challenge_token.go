package twofactor

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// ChallengeClaims is the JWT payload for a challenge reference token.
type ChallengeClaims struct {
	jwt.RegisteredClaims
}

// ChallengeTokenService mints and validates the signed reference token a web
// tier round-trips between the password POST and the confirm POST. The token
// carries only the username and the opaque challenge reference, never the
// expected confirmation token, so leaking it cannot complete a login.
type ChallengeTokenService struct {
	signingKey []byte
	expiration time.Duration
	issuer     string
	logger     Logger
}

// NewChallengeTokenService creates a ChallengeTokenService. Expiration is in
// minutes; values below one minute fall back to five.
func NewChallengeTokenService(signingKey []byte, expirationMinutes int, issuer string, logger Logger) *ChallengeTokenService {
	if logger == nil {
		logger = defLogger{}
	}

	expiration := time.Duration(expirationMinutes) * time.Minute
	if expiration < time.Minute {
		expiration = 5 * time.Minute
	}

	return &ChallengeTokenService{
		signingKey: signingKey,
		expiration: expiration,
		issuer:     issuer,
		logger:     logger,
	}
}

// Issue signs a reference token for the given challenge.
func (ts *ChallengeTokenService) Issue(ref ChallengeRef) (string, error) {
	now := time.Now()
	claims := &ChallengeClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   ref.Username,
			ID:        ref.Reference,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign challenge token")
	}

	return signed, nil
}

// Validate parses a reference token and returns the challenge it points at.
func (ts *ChallengeTokenService) Validate(tokenString string) (*ChallengeRef, error) {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &ChallengeClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("challenge token has unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		return nil, errors.Wrap(err, ErrChallengeTokenInvalid.Category, ErrChallengeTokenInvalid.Message).
			WithTextCode(ErrChallengeTokenInvalid.TextCode)
	}

	claims, ok := token.Claims.(*ChallengeClaims)
	if !ok || !token.Valid {
		ts.logger.Error("challenge token claims could not be decoded")
		return nil, ErrChallengeTokenInvalid
	}

	var issuedAt time.Time
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Time
	}

	return &ChallengeRef{
		Username:  claims.Subject,
		Reference: claims.ID,
		IssuedAt:  issuedAt,
	}, nil
}
