package activitymap

import (
	"context"
	"strings"
	"time"

	auth "github.com/goliatone/go-member-auth"
)

const (
	// MetadataKeyRole stores the role the actor held when the event fired.
	MetadataKeyRole = "role"
	// MetadataKeyOutcome stores the event outcome label.
	MetadataKeyOutcome = "outcome"
)

const (
	defaultChannel     = "auth"
	defaultActorID     = "anonymous"
	objectUser         = "user"
	objectEvent        = "event"
	objectRegistration = "registration"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	actorFallback    string
	objectIDResolver func(auth.ActivityEvent) (string, string)
	now              func() time.Time
}

// Normalize converts an auth.ActivityEvent into a flat record. The channel
// is the event type prefix ("auth", "events") and the object is the most
// specific identifier found in the metadata.
func Normalize(event auth.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	actorID := firstNonEmpty(
		strings.TrimSpace(event.UserID),
		strings.TrimSpace(options.actorFallback),
	)

	objectType, objectID := options.objectIDResolver(event)

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = options.now().UTC()
	}

	return Normalized{
		ActorID:    actorID,
		Verb:       string(event.EventType),
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    channelOf(event.EventType),
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt,
	}
}

// WithObjectIDResolver overrides object extraction from ActivityEvent.
func WithObjectIDResolver(resolver func(auth.ActivityEvent) (objectType, objectID string)) Option {
	return func(opts *normalizeOptions) {
		if opts == nil || resolver == nil {
			return
		}
		opts.objectIDResolver = resolver
	}
}

// WithActorFallback sets the actor id used when the event carries no user.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		if opts == nil {
			return
		}
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

// WithClock sets the time source for events without OccurredAt.
func WithClock(now func() time.Time) Option {
	return func(opts *normalizeOptions) {
		if opts == nil || now == nil {
			return
		}
		opts.now = now
	}
}

// NewSink returns an ActivitySink that hands normalized records to fn.
func NewSink(fn func(ctx context.Context, record Normalized) error, opts ...Option) auth.ActivitySink {
	return auth.ActivitySinkFunc(func(ctx context.Context, event auth.ActivityEvent) error {
		if fn == nil {
			return nil
		}
		return fn(ctx, Normalize(event, opts...))
	})
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		actorFallback:    defaultActorID,
		objectIDResolver: resolveObject,
		now:              time.Now,
	}
}

func resolveObject(event auth.ActivityEvent) (string, string) {
	if id := metadataString(event.Metadata, "registration_id"); id != "" {
		return objectRegistration, id
	}
	if id := metadataString(event.Metadata, "event_id"); id != "" {
		return objectEvent, id
	}
	if id := metadataString(event.Metadata, "user_id"); id != "" {
		return objectUser, id
	}
	if id := strings.TrimSpace(event.UserID); id != "" {
		return objectUser, id
	}
	return "", ""
}

func channelOf(eventType auth.ActivityEventType) string {
	prefix, _, found := strings.Cut(string(eventType), ".")
	if !found || prefix == "" {
		return defaultChannel
	}
	return prefix
}

func normalizeMetadata(event auth.ActivityEvent) map[string]any {
	metadata := cloneMap(event.Metadata)

	if event.Role != "" {
		if metadata == nil {
			metadata = map[string]any{}
		}
		if _, exists := metadata[MetadataKeyRole]; !exists {
			metadata[MetadataKeyRole] = string(event.Role)
		}
	}

	if event.Outcome != "" {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[MetadataKeyOutcome] = event.Outcome
	}

	return metadata
}

func metadataString(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	value, ok := metadata[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
