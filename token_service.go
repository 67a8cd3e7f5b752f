package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// IssuedToken is a signed token and the session it encodes
type IssuedToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Session   *Session  `json:"session"`
}

// ClaimIssuer signs and verifies session tokens
type ClaimIssuer struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	now        func() time.Time
	logger     Logger
}

// ClaimIssuerOption configures a ClaimIssuer
type ClaimIssuerOption func(*ClaimIssuer)

// WithClock overrides the time source
func WithClock(now func() time.Time) ClaimIssuerOption {
	return func(ci *ClaimIssuer) {
		if now != nil {
			ci.now = now
		}
	}
}

// WithIssuerLogger sets the logger
func WithIssuerLogger(logger Logger) ClaimIssuerOption {
	return func(ci *ClaimIssuer) {
		ci.logger = normalizeLogger(logger)
	}
}

// NewClaimIssuer creates a ClaimIssuer. tokenExpiration is in hours.
func NewClaimIssuer(signingKey []byte, tokenExpiration int, issuer string, audience []string, opts ...ClaimIssuerOption) *ClaimIssuer {
	ci := &ClaimIssuer{
		signingKey: signingKey,
		ttl:        time.Duration(tokenExpiration) * time.Hour,
		issuer:     issuer,
		audience:   jwt.ClaimStrings(audience),
		now:        time.Now,
		logger:     defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ci)
		}
	}
	return ci
}

// NewClaimIssuerFromConfig reads key, TTL, issuer and audience from cfg
func NewClaimIssuerFromConfig(cfg Config, opts ...ClaimIssuerOption) *ClaimIssuer {
	return NewClaimIssuer(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		opts...,
	)
}

// Issue builds and signs claims for the given trigger
func (ci *ClaimIssuer) Issue(trigger IssueTrigger) (*IssuedToken, error) {
	var claims *JWTClaims

	switch t := trigger.(type) {
	case FreshIssue:
		if t.User == nil {
			return nil, ErrMissingUser
		}
		claims = ci.freshClaims(t.User)
	case *FreshIssue:
		if t == nil || t.User == nil {
			return nil, ErrMissingUser
		}
		claims = ci.freshClaims(t.User)
	case RefreshMerge:
		if t.Session == nil || t.Session.claims == nil {
			return nil, ErrMissingSession
		}
		merged, err := ci.mergeClaims(t.Session.claims, t.Update)
		if err != nil {
			return nil, err
		}
		claims = merged
	case *RefreshMerge:
		if t == nil || t.Session == nil || t.Session.claims == nil {
			return nil, ErrMissingSession
		}
		merged, err := ci.mergeClaims(t.Session.claims, t.Update)
		if err != nil {
			return nil, err
		}
		claims = merged
	default:
		return nil, errors.New(fmt.Sprintf("unknown issue trigger %T", trigger), errors.CategoryInternal).
			WithTextCode(TextCodeInternal).
			WithCode(http.StatusInternalServerError)
	}

	signed, err := ci.SignClaims(claims)
	if err != nil {
		return nil, err
	}

	return &IssuedToken{
		Token:     signed,
		ExpiresAt: claims.Expires(),
		Session:   NewSessionFromClaims(claims),
	}, nil
}

func (ci *ClaimIssuer) freshClaims(user *User) *JWTClaims {
	now := ci.now().UTC().Truncate(time.Second)
	return &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ci.issuer,
			Subject:   user.ID.String(),
			Audience:  ci.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ci.ttl)),
			ID:        uuid.NewString(),
		},
		UID:              user.ID.String(),
		Email:            user.Email,
		UserRole:         user.Role,
		Profile:          user.Profile(),
		MembershipStatus: user.MembershipStatus,
		Points:           user.Points,
		Level:            user.Level,
	}
}

// mergeClaims copies registered claims untouched, a refresh never
// extends the session lifetime. Only the profile may differ afterwards.
func (ci *ClaimIssuer) mergeClaims(current *JWTClaims, update PartialClaims) (*JWTClaims, error) {
	snap := captureImmutableClaims(current)

	out := current.clone()
	out.Profile = update.Merge(current.Profile)

	if err := snap.validate(out); err != nil {
		ci.logger.Error("refresh merge mutated claims", "error", err)
		return nil, err
	}
	return out, nil
}

// SignClaims signs the claims with HS256
func (ci *ClaimIssuer) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal).
			WithTextCode(TextCodeSigningFailed).
			WithCode(http.StatusInternalServerError)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ci.signingKey)
	if err != nil {
		ci.logger.Error("claim issuer failed to sign token", "error", err)
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT").
			WithTextCode(TextCodeSigningFailed).
			WithCode(http.StatusInternalServerError)
	}

	return signedString, nil
}

// Materialize verifies a raw token and returns its session
func (ci *ClaimIssuer) Materialize(raw string) (*Session, error) {
	if raw == "" {
		return nil, ErrUnauthenticated
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ci.now),
		jwt.WithExpirationRequired(),
	}
	if ci.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ci.issuer))
	}
	if len(ci.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ci.audience[0]))
	}

	token, err := jwt.ParseWithClaims(raw, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ci.logger.Warn("claim issuer rejected unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ci.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode).
			WithCode(http.StatusUnauthorized)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}

	return NewSessionFromClaims(claims), nil
}
