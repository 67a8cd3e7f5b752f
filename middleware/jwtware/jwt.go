package jwtware

import (
	"strings"

	auth "github.com/goliatone/go-member-auth"
	"github.com/goliatone/go-router"
)

var defaultTokenLookup = "header:" + router.HeaderAuthorization + ",cookie:" + auth.DefaultContextKey

// ValidationListener is invoked after a token has been verified and before
// authorization checks.
type ValidationListener func(ctx router.Context, session *auth.Session) error

type Config struct {
	Filter func(router.Context) bool
	// SuccessHandler replaces the wrapped handler once the session is stored
	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler
	// Materializer verifies raw tokens, required.
	Materializer auth.SessionMaterializer
	ContextKey   string
	// TokenLookup is a comma separated list of source:name pairs tried in
	// order, e.g. "header:Authorization,cookie:session".
	TokenLookup string
	AuthScheme  string
	// Optional lets requests without a valid token through as anonymous.
	Optional bool
	// MinimumRole is checked through Gate when set.
	MinimumRole auth.UserRole
	Gate        *auth.Gate
	Logger      auth.Logger

	ValidationListeners []ValidationListener
}

// New returns the session middleware
func New(config ...Config) router.MiddlewareFunc {
	cfg := GetDefaultConfig(config...)
	extractors := cfg.getExtractors()

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return next(ctx)
			}

			var session *auth.Session

			raw := ExtractRawToken(ctx, extractors)
			if raw == "" {
				if !cfg.Optional {
					return cfg.ErrorHandler(ctx, auth.ErrUnauthenticated)
				}
			} else {
				s, err := cfg.Materializer.Materialize(raw)
				if err != nil {
					if !cfg.Optional {
						return cfg.ErrorHandler(ctx, err)
					}
					cfg.Logger.Debug("optional auth failed, proceeding as anonymous", "error", err)
				} else {
					session = s
				}
			}

			if session != nil {
				if err := cfg.runValidationListeners(ctx, session); err != nil {
					return cfg.ErrorHandler(ctx, err)
				}
			}

			if cfg.MinimumRole != "" {
				if err := cfg.Gate.Authorize(session, cfg.MinimumRole); err != nil {
					return cfg.ErrorHandler(ctx, err)
				}
			}

			auth.SetLocalSession(ctx, cfg.ContextKey, session)

			if cfg.SuccessHandler != nil {
				return cfg.SuccessHandler(ctx)
			}
			return next(ctx)
		}
	}
}

// RequireRole guards a route with the gate. It reads the session stored by
// New, so it must wrap inside it.
func RequireRole(gate *auth.Gate, min auth.UserRole, contextKey string, errorHandler router.ErrorHandler) router.MiddlewareFunc {
	if errorHandler == nil {
		errorHandler = auth.WriteError
	}
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if err := gate.Authorize(auth.LocalSession(ctx, contextKey), min); err != nil {
				return errorHandler(ctx, err)
			}
			return next(ctx)
		}
	}
}

// SessionFrom returns the session stored by the middleware, nil when the
// request is anonymous.
func SessionFrom(ctx router.Context, contextKey string) *auth.Session {
	return auth.LocalSession(ctx, contextKey)
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Materializer == nil {
		panic("AUTH: JWT middleware configuration: Materializer is required.")
	}

	if cfg.Logger == nil {
		cfg.Logger = auth.NoopLogger{}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = auth.ErrorHandler(cfg.Logger)
	}

	if cfg.Gate == nil {
		cfg.Gate = auth.NewGate(cfg.Logger)
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = auth.DefaultContextKey
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

func (cfg *Config) getExtractors() []JWTExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func (cfg *Config) runValidationListeners(ctx router.Context, session *auth.Session) error {
	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		if err := listener(ctx, session); err != nil {
			return err
		}
	}
	return nil
}

// ExtractRawToken returns the first token found by the extractors
func ExtractRawToken(ctx router.Context, extractors []JWTExtractor) string {
	for _, extractor := range extractors {
		if raw := extractor(ctx); raw != "" {
			return raw
		}
	}
	return ""
}

type JWTExtractor func(ctx router.Context) string

func GetExtractors(tokenLookup string, authSchemes ...string) []JWTExtractor {
	extractors := make([]JWTExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 && strings.TrimSpace(authSchemes[0]) != "" {
		authScheme = strings.TrimSpace(authSchemes[0])
	}

	// header:Authorization,cookie:session,query:auth_token
	for _, rootPart := range strings.Split(tokenLookup, ",") {
		parts := strings.SplitN(strings.TrimSpace(rootPart), ":", 2)
		if len(parts) != 2 {
			continue
		}

		source, name := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])

		switch source {
		case "header":
			extractors = append(extractors, jwtFromHeader(name, authScheme))
		case "query":
			extractors = append(extractors, jwtFromQuery(name))
		case "cookie":
			extractors = append(extractors, jwtFromCookie(name))
		}
	}

	return extractors
}

// jwtFromHeader returns a function that extracts token from the request header.
func jwtFromHeader(header string, authScheme string) JWTExtractor {
	return func(c router.Context) string {
		a := c.Header(header)
		l := len(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) && a[l] == ' ' {
			return strings.TrimSpace(a[l:])
		}
		return ""
	}
}

// jwtFromQuery returns a function that extracts token from the query string.
func jwtFromQuery(param string) JWTExtractor {
	return func(c router.Context) string {
		return c.Query(param, "")
	}
}

// jwtFromCookie returns a function that extracts token from the named cookie.
func jwtFromCookie(name string) JWTExtractor {
	return func(c router.Context) string {
		return c.Cookies(name)
	}
}
