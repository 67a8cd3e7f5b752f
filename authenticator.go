package auth

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ProfileStore persists profile updates ahead of a refresh
type ProfileStore interface {
	UpdateProfile(ctx context.Context, id uuid.UUID, update PartialClaims) (*User, error)
}

// Auther ties credential verification to claim issuance
type Auther struct {
	verifier     CredentialVerifier
	issuer       *ClaimIssuer
	profiles     ProfileStore
	phoneRegion  string
	logger       Logger
	activitySink ActivitySink
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(verifier CredentialVerifier, issuer *ClaimIssuer) *Auther {
	return &Auther{
		verifier:     verifier,
		issuer:       issuer,
		phoneRegion:  DefaultPhoneRegion,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = NormalizeActivitySink(sink)
	return s
}

// WithProfileStore makes Refresh persist profile updates before signing
func (s *Auther) WithProfileStore(store ProfileStore) *Auther {
	s.profiles = store
	return s
}

// WithPhoneRegion sets the region used to validate phone numbers
func (s *Auther) WithPhoneRegion(region string) *Auther {
	if region != "" {
		s.phoneRegion = region
	}
	return s
}

// Issuer returns the ClaimIssuer
func (s *Auther) Issuer() *ClaimIssuer {
	return s.issuer
}

// Login verifies credentials and issues a fresh token. Unknown email and
// wrong password both come back as ErrInvalidCredentials.
func (s *Auther) Login(ctx context.Context, email, password string) (*IssuedToken, error) {
	user, err := s.verifier.VerifyCredentials(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrInvalidCredentials) {
			s.logger.Info("login rejected", "reason", "invalid credentials")
			s.emit(ctx, ActivityEventLoginFailure, "", "", OutcomeInvalid, nil)
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("login verify credentials error", "error", err)
		s.emit(ctx, ActivityEventLoginFailure, "", "", OutcomeError, nil)
		return nil, err
	}

	issued, err := s.issuer.Issue(FreshIssue{User: user})
	if err != nil {
		s.logger.Error("login issue token error", "error", err)
		s.emit(ctx, ActivityEventLoginFailure, user.ID.String(), user.Role, OutcomeError, nil)
		return nil, err
	}

	s.emit(ctx, ActivityEventLoginSuccess, user.ID.String(), user.Role, OutcomeSuccess, nil)
	return issued, nil
}

// Refresh merges a profile update into the session and signs the result.
// Registered claims and the role are kept, so a refresh never extends the
// session or changes what it may access.
func (s *Auther) Refresh(ctx context.Context, session *Session, update PartialClaims) (*IssuedToken, error) {
	if session == nil {
		return nil, ErrMissingSession
	}

	if err := update.Validate(s.phoneRegion); err != nil {
		return nil, err
	}

	if s.profiles != nil && !update.IsEmpty() {
		id, err := session.GetUserUUID()
		if err != nil {
			return nil, ErrTokenMalformed
		}
		if _, err := s.profiles.UpdateProfile(ctx, id, update); err != nil {
			s.logger.Error("refresh persist profile error", "error", err)
			return nil, err
		}
	}

	issued, err := s.issuer.Issue(RefreshMerge{Session: session, Update: update})
	if err != nil {
		s.logger.Error("refresh issue token error", "error", err)
		return nil, err
	}

	s.emit(ctx, ActivityEventSessionRefreshed, session.UserID, session.Role, OutcomeSuccess, nil)
	return issued, nil
}

// SessionFromToken verifies a raw token
func (s *Auther) SessionFromToken(raw string) (*Session, error) {
	session, err := s.issuer.Materialize(raw)
	if err != nil {
		s.logger.Debug("session from token rejected", "error", err)
		return nil, err
	}
	return session, nil
}

func (s *Auther) emit(ctx context.Context, eventType ActivityEventType, userID string, role UserRole, outcome string, metadata map[string]any) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	EmitActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: eventType,
		UserID:    userID,
		Role:      role,
		Outcome:   outcome,
		Metadata:  metadata,
	})
}
