package events

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	auth "github.com/goliatone/go-member-auth"
	"github.com/google/uuid"
)

// Service handles registrations and attendance. Every call takes the
// caller's session explicitly, nil is the anonymous caller.
type Service struct {
	store        Store
	gate         *auth.Gate
	phoneRegion  string
	precheck     bool
	now          func() time.Time
	logger       auth.Logger
	activitySink auth.ActivitySink
}

type Option func(*Service)

// WithLogger sets the service logger
func WithLogger(logger auth.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithActivitySink receives registration and attendance events
func WithActivitySink(sink auth.ActivitySink) Option {
	return func(s *Service) {
		s.activitySink = auth.NormalizeActivitySink(sink)
	}
}

// WithPhoneRegion sets the default region for phone validation
func WithPhoneRegion(region string) Option {
	return func(s *Service) {
		if region != "" {
			s.phoneRegion = region
		}
	}
}

// WithPrecheck toggles the existence lookup that runs before insert. The
// unique constraint still decides when it is off.
func WithPrecheck(enabled bool) Option {
	return func(s *Service) {
		s.precheck = enabled
	}
}

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a registration Service
func NewService(store Store, gate *auth.Gate, opts ...Option) *Service {
	s := &Service{
		store:        store,
		gate:         gate,
		phoneRegion:  auth.DefaultPhoneRegion,
		precheck:     true,
		now:          time.Now,
		logger:       auth.NoopLogger{},
		activitySink: auth.NormalizeActivitySink(nil),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if s.gate == nil {
		s.gate = auth.NewGate(s.logger)
	}

	return s
}

// Register records the user for the event. Members may only register
// themselves, admins may register anyone. A second registration for the
// same pair fails with ErrAlreadyRegistered.
func (s *Service) Register(ctx context.Context, session *auth.Session, in RegisterInput) (*Registration, error) {
	if err := s.authorize(ctx, session, auth.RoleMember, "register"); err != nil {
		return nil, err
	}

	in.normalize()
	if err := in.Validate(s.phoneRegion); err != nil {
		s.emit(ctx, auth.ActivityEventRegistrationFail, session, auth.OutcomeInvalid, nil)
		return nil, err
	}

	eventID := uuid.MustParse(in.EventID)
	userID := uuid.MustParse(in.UserID)

	if in.UserID != session.UserID && !s.gate.Allowed(session, auth.RoleAdmin) {
		s.logger.Info("register for another user denied", "actor", session.UserID, "user_id", in.UserID)
		s.emit(ctx, auth.ActivityEventAccessDenied, session, auth.OutcomeDenied, map[string]any{
			"operation": "register",
		})
		return nil, auth.ErrAccessDenied
	}

	meta := map[string]any{"event_id": in.EventID, "user_id": in.UserID}

	if s.precheck {
		exists, err := s.store.Exists(ctx, eventID, userID)
		if err != nil {
			s.logger.Error("registration precheck error", "error", err)
			s.emit(ctx, auth.ActivityEventRegistrationFail, session, auth.OutcomeError, meta)
			return nil, auth.Internal(err, "failed to check registration")
		}
		if exists {
			s.emit(ctx, auth.ActivityEventRegistrationFail, session, auth.OutcomeConflict, meta)
			return nil, ErrAlreadyRegistered
		}
	}

	now := s.now().UTC()
	record := &Registration{
		ID:        uuid.New(),
		EventID:   eventID,
		UserID:    userID,
		FullName:  in.FullName,
		Phone:     in.Phone,
		Message:   in.Message,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.Insert(ctx, record); err != nil {
		if auth.IsUniqueViolation(err) {
			s.emit(ctx, auth.ActivityEventRegistrationFail, session, auth.OutcomeConflict, meta)
			return nil, ErrAlreadyRegistered
		}
		s.logger.Error("registration insert error", "error", err)
		s.emit(ctx, auth.ActivityEventRegistrationFail, session, auth.OutcomeError, meta)
		return nil, auth.Internal(err, "failed to create registration")
	}

	meta["registration_id"] = record.ID.String()
	s.emit(ctx, auth.ActivityEventRegistrationOK, session, auth.OutcomeSuccess, meta)

	return record, nil
}

// ListMine returns the caller's registrations oldest first, an empty
// slice when there are none.
func (s *Service) ListMine(ctx context.Context, session *auth.Session) ([]*Registration, error) {
	if err := s.authorize(ctx, session, auth.RoleMember, "list"); err != nil {
		return nil, err
	}

	userID, err := session.GetUserUUID()
	if err != nil {
		return nil, auth.ErrTokenMalformed
	}

	records, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("list registrations error", "error", err)
		return nil, auth.Internal(err, "failed to list registrations")
	}

	if records == nil {
		records = []*Registration{}
	}

	return records, nil
}

// UpdateAttendance sets the attended flag. Admin only, setting the same
// value twice is fine.
func (s *Service) UpdateAttendance(ctx context.Context, session *auth.Session, in UpdateAttendanceInput) (*Registration, error) {
	if err := s.authorize(ctx, session, auth.RoleAdmin, "attendance"); err != nil {
		return nil, err
	}

	id, attended, err := in.parse()
	if err != nil {
		return nil, err
	}

	record, err := s.store.SetAttended(ctx, id, attended, s.now().UTC())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("update attendance error", "error", err)
		return nil, auth.Internal(err, "failed to update attendance")
	}

	s.emit(ctx, auth.ActivityEventAttendanceUpdated, session, auth.OutcomeSuccess, map[string]any{
		"registration_id": id.String(),
		"attended":        attended,
	})

	return record, nil
}

func (s *Service) authorize(ctx context.Context, session *auth.Session, min auth.UserRole, operation string) error {
	if err := s.gate.Authorize(session, min); err != nil {
		s.emit(ctx, auth.ActivityEventAccessDenied, session, auth.OutcomeDenied, map[string]any{
			"operation": operation,
			"required":  string(min),
		})
		return err
	}
	return nil
}

func (s *Service) emit(ctx context.Context, eventType auth.ActivityEventType, session *auth.Session, outcome string, metadata map[string]any) {
	if metadata == nil {
		metadata = map[string]any{}
	}

	event := auth.ActivityEvent{
		EventType: eventType,
		Outcome:   outcome,
		Metadata:  metadata,
		Role:      auth.RoleAnonymous,
	}
	if session != nil {
		event.UserID = session.UserID
		event.Role = session.Role
	}

	auth.EmitActivity(ctx, s.activitySink, s.logger, event)
}
