package auth

import (
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

type AuthControllerRoutes struct {
	Login   string
	Logout  string
	Session string
	Refresh string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Auther       *Auther
	Routes       *AuthControllerRoutes
	ContextKey   string
	CookieName   string
	CookieSecure bool
}

type AuthControllerOption func(*AuthController) *AuthController

// WithControllerLogger sets the controller logger
func WithControllerLogger(l Logger) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Logger = normalizeLogger(l)
		return a
	}
}

// WithControllerDebug dumps payloads to the logger
func WithControllerDebug(debug bool) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Debug = debug
		return a
	}
}

// WithCookie configures the session cookie
func WithCookie(name string, secure bool) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		if name != "" {
			a.CookieName = name
		}
		a.CookieSecure = secure
		return a
	}
}

// WithContextKey sets the locals key the session middleware uses
func WithContextKey(key string) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		if key != "" {
			a.ContextKey = key
		}
		return a
	}
}

func NewAuthController(auther *Auther, opts ...AuthControllerOption) *AuthController {
	if auther == nil {
		panic("Missing Auther in auth controller...")
	}

	c := &AuthController{
		Logger:       defLogger{},
		Auther:       auther,
		ContextKey:   DefaultContextKey,
		CookieName:   DefaultContextKey,
		CookieSecure: true,
		Routes: &AuthControllerRoutes{
			Login:   "/login",
			Logout:  "/logout",
			Session: "/session",
			Refresh: "/session/refresh",
		},
	}

	for _, opt := range opts {
		if opt != nil {
			c = opt(c)
		}
	}

	return c
}

// RegisterAuthRoutes mounts the auth endpoints. protected must store the
// session in locals, loginGuards wrap the login handler.
func RegisterAuthRoutes[T any](app router.Router[T], controller *AuthController, protected router.MiddlewareFunc, loginGuards ...router.MiddlewareFunc) {
	app.Post(controller.Routes.Login, controller.LoginPost, loginGuards...).
		SetName("auth.login")

	app.Post(controller.Routes.Logout, controller.LogOut).SetName("auth.logout")

	app.Get(controller.Routes.Session, controller.SessionShow, protected).
		SetName("auth.session")
	app.Post(controller.Routes.Refresh, controller.SessionRefresh, protected).
		SetName("auth.session.refresh")
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			validation.Length(3, 254),
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(1, 128),
		),
	)
}

func (a *AuthController) LoginPost(c router.Context) error {
	payload := new(LoginRequest)

	if err := c.Bind(payload); err != nil {
		a.Logger.Debug("login parse payload", "error", err)
		return WriteError(c, ValidationError("invalid payload", map[string]string{
			"body": "must be a valid JSON or form payload",
		}))
	}

	if a.Debug {
		a.Logger.Debug("auth login payload", "payload", print.MaybePrettyJSON(map[string]string{
			"email": payload.Email,
		}))
	}

	if err := payload.Validate(); err != nil {
		return WriteError(c, ValidationError("invalid payload", FieldErrors(err)))
	}

	issued, err := a.Auther.Login(c.Context(), payload.Email, payload.Password)
	if err != nil {
		return WriteError(c, err)
	}

	a.setCookieToken(c, issued.Token, issued.ExpiresAt)

	return c.JSON(router.StatusOK, issued)
}

func (a *AuthController) LogOut(c router.Context) error {
	a.cookieDel(c)
	return c.NoContent(http.StatusNoContent)
}

func (a *AuthController) SessionShow(c router.Context) error {
	session := LocalSession(c, a.ContextKey)
	if session == nil {
		return WriteError(c, ErrUnauthenticated)
	}
	return c.JSON(router.StatusOK, map[string]any{"session": session})
}

func (a *AuthController) SessionRefresh(c router.Context) error {
	session := LocalSession(c, a.ContextKey)
	if session == nil {
		return WriteError(c, ErrUnauthenticated)
	}

	update := PartialClaims{}
	if len(c.Body()) > 0 {
		if err := c.Bind(&update); err != nil {
			a.Logger.Debug("refresh parse payload", "error", err)
			return WriteError(c, ValidationError("invalid payload", map[string]string{
				"body": "must be a valid JSON payload",
			}))
		}
	}

	if a.Debug {
		a.Logger.Debug("auth refresh payload", "user_id", session.UserID, "payload", print.MaybePrettyJSON(update))
	}

	issued, err := a.Auther.Refresh(c.Context(), session, update)
	if err != nil {
		return WriteError(c, err)
	}

	a.setCookieToken(c, issued.Token, issued.ExpiresAt)

	return c.JSON(router.StatusOK, issued)
}

func (a *AuthController) setCookieToken(c router.Context, val string, expires time.Time) {
	c.Cookie(&router.Cookie{
		Name:     a.CookieName,
		Value:    val,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   a.CookieSecure,
		SameSite: "Lax",
	})
}

func (a *AuthController) cookieDel(c router.Context) {
	c.Cookie(&router.Cookie{
		Name:     a.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   a.CookieSecure,
		SameSite: "Lax",
	})
}
