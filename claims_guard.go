package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// immutableClaimsSnapshot holds every claim a refresh must carry over
// unchanged. Role, points and membership only change on fresh issuance.
type immutableClaimsSnapshot struct {
	subject          string
	issuer           string
	tokenID          string
	uid              string
	email            string
	role             UserRole
	membershipStatus MembershipStatus
	points           int
	level            int
	audience         []string
	issuedAt         time.Time
	hasIssuedAt      bool
	expiresAt        time.Time
	hasExpires       bool
}

func captureImmutableClaims(claims *JWTClaims) immutableClaimsSnapshot {
	var audienceCopy []string
	if len(claims.RegisteredClaims.Audience) > 0 {
		audienceCopy = append(audienceCopy, claims.RegisteredClaims.Audience...)
	}

	snap := immutableClaimsSnapshot{
		subject:          claims.RegisteredClaims.Subject,
		issuer:           claims.RegisteredClaims.Issuer,
		tokenID:          claims.RegisteredClaims.ID,
		uid:              claims.UID,
		email:            claims.Email,
		role:             claims.UserRole,
		membershipStatus: claims.MembershipStatus,
		points:           claims.Points,
		level:            claims.Level,
		audience:         audienceCopy,
	}

	if claims.RegisteredClaims.IssuedAt != nil {
		snap.issuedAt = claims.RegisteredClaims.IssuedAt.Time
		snap.hasIssuedAt = true
	}

	if claims.RegisteredClaims.ExpiresAt != nil {
		snap.expiresAt = claims.RegisteredClaims.ExpiresAt.Time
		snap.hasExpires = true
	}

	return snap
}

func (snap immutableClaimsSnapshot) validate(claims *JWTClaims) error {
	switch {
	case claims.RegisteredClaims.Subject != snap.subject:
		return immutableClaimViolation("sub")
	case claims.RegisteredClaims.Issuer != snap.issuer:
		return immutableClaimViolation("iss")
	case claims.RegisteredClaims.ID != snap.tokenID:
		return immutableClaimViolation("jti")
	case claims.UID != snap.uid:
		return immutableClaimViolation("uid")
	case claims.Email != snap.email:
		return immutableClaimViolation("email")
	case claims.UserRole != snap.role:
		return immutableClaimViolation("role")
	case claims.MembershipStatus != snap.membershipStatus:
		return immutableClaimViolation("membership_status")
	case claims.Points != snap.points:
		return immutableClaimViolation("points")
	case claims.Level != snap.level:
		return immutableClaimViolation("level")
	}

	if !audienceEqual(claims.RegisteredClaims.Audience, snap.audience) {
		return immutableClaimViolation("aud")
	}

	if err := compareNumericDate(claims.RegisteredClaims.IssuedAt, snap.issuedAt, snap.hasIssuedAt, "iat"); err != nil {
		return err
	}

	return compareNumericDate(claims.RegisteredClaims.ExpiresAt, snap.expiresAt, snap.hasExpires, "exp")
}

func compareNumericDate(date *jwt.NumericDate, expected time.Time, expectedSet bool, field string) error {
	if !expectedSet {
		if date != nil {
			return immutableClaimViolation(field)
		}
		return nil
	}

	if date == nil || !date.Time.Equal(expected) {
		return immutableClaimViolation(field)
	}

	return nil
}

func audienceEqual(a jwt.ClaimStrings, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func immutableClaimViolation(field string) error {
	clone := ErrImmutableClaimMutation.Clone()
	if clone == nil {
		return ErrImmutableClaimMutation
	}
	clone.Message = fmt.Sprintf("immutable claim mutated: %s", field)
	clone.Source = ErrImmutableClaimMutation
	return clone.WithMetadata(map[string]any{"claim": field})
}
