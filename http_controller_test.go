package auth_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	auth "github.com/goliatone/go-member-auth"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// sessionMiddleware stands in for jwtware, which imports this package.
func sessionMiddleware(issuer *auth.ClaimIssuer) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			raw := strings.TrimPrefix(c.Header(router.HeaderAuthorization), "Bearer ")
			session, err := issuer.Materialize(raw)
			if err != nil {
				return auth.WriteError(c, err)
			}
			auth.SetLocalSession(c, "", session)
			return next(c)
		}
	}
}

// newServer builds a fiber backed router and hands it to mount for route
// registration
func newServer(mount func(r router.Router[*fiber.App])) *fiber.App {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			ErrorHandler: auth.FiberErrorHandler(auth.NoopLogger{}),
		}))
	})
	mount(srv.Router())
	if i, ok := srv.(interface{ Init() }); ok {
		i.Init()
	}
	return srv.WrappedRouter()
}

func newControllerApp(t *testing.T, verifier *MockCredentialVerifier) (*fiber.App, *auth.Auther) {
	t.Helper()

	auther := newTestAuther(verifier, nil)
	controller := auth.NewAuthController(auther,
		auth.WithControllerLogger(auth.NoopLogger{}),
		auth.WithCookie("member_session", false),
	)

	app := newServer(func(r router.Router[*fiber.App]) {
		auth.RegisterAuthRoutes(r.Group("/auth"), controller, sessionMiddleware(auther.Issuer()))
	})
	return app, auther
}

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

func decodeError(t *testing.T, res *http.Response) auth.ErrorBody {
	t.Helper()
	var body auth.ErrorBody
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	return body
}

func TestAuthController_Login(t *testing.T) {
	verifier := new(MockCredentialVerifier)
	user := newMember()
	verifier.On("VerifyCredentials", mock.Anything, "ana@example.com", "pw-123").Return(user, nil).Once()

	app, auther := newControllerApp(t, verifier)

	res, err := app.Test(postJSON("/auth/login", `{"email":"ana@example.com","password":"pw-123"}`), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var issued auth.IssuedToken
	require.NoError(t, json.NewDecoder(res.Body).Decode(&issued))
	assert.NotEmpty(t, issued.Token)
	assert.Equal(t, user.ID.String(), issued.Session.UserID)

	var cookie *http.Cookie
	for _, c := range res.Cookies() {
		if c.Name == "member_session" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, issued.Token, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	_, err = auther.SessionFromToken(issued.Token)
	assert.NoError(t, err)
}

func TestAuthController_LoginFailuresAreUniform(t *testing.T) {
	verifier := new(MockCredentialVerifier)
	verifier.On("VerifyCredentials", mock.Anything, "ghost@example.com", mock.Anything).Return(nil, auth.ErrUserNotFound)
	verifier.On("VerifyCredentials", mock.Anything, "ana@example.com", mock.Anything).Return(nil, auth.ErrInvalidCredentials)

	app, _ := newControllerApp(t, verifier)

	unknown, err := app.Test(postJSON("/auth/login", `{"email":"ghost@example.com","password":"pw"}`), -1)
	require.NoError(t, err)
	wrong, err := app.Test(postJSON("/auth/login", `{"email":"ana@example.com","password":"pw"}`), -1)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, unknown.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, wrong.StatusCode)

	unknownBody, err := io.ReadAll(unknown.Body)
	require.NoError(t, err)
	wrongBody, err := io.ReadAll(wrong.Body)
	require.NoError(t, err)
	assert.Equal(t, string(wrongBody), string(unknownBody))
	assert.Contains(t, string(unknownBody), "invalid credentials")
}

func TestAuthController_LoginValidation(t *testing.T) {
	app, _ := newControllerApp(t, new(MockCredentialVerifier))

	res, err := app.Test(postJSON("/auth/login", `{"email":"not-an-email","password":""}`), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)

	body := decodeError(t, res)
	assert.Equal(t, auth.TextCodeValidation, body.Error.TextCode)
	assert.Contains(t, body.Error.Fields, "email")
	assert.Contains(t, body.Error.Fields, "password")

	res, err = app.Test(postJSON("/auth/login", `{"email":`), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
}

func TestAuthController_SessionAndRefresh(t *testing.T) {
	app, auther := newControllerApp(t, new(MockCredentialVerifier))

	issued, err := auther.Issuer().Issue(auth.FreshIssue{User: newMember()})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.Header.Set(router.HeaderAuthorization, "Bearer "+issued.Token)
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var shown struct {
		Session auth.Session `json:"session"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&shown))
	assert.Equal(t, issued.Session.UserID, shown.Session.UserID)

	req = postJSON("/auth/session/refresh", `{"phone":"+16502530042"}`)
	req.Header.Set(router.HeaderAuthorization, "Bearer "+issued.Token)
	res, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var refreshed auth.IssuedToken
	require.NoError(t, json.NewDecoder(res.Body).Decode(&refreshed))
	assert.Equal(t, "+16502530042", refreshed.Session.Profile.Phone)
	assert.Equal(t, issued.Session.Email, refreshed.Session.Email)
	assert.Equal(t, issued.Session.Role, refreshed.Session.Role)
	assert.Equal(t, issued.Session.Points, refreshed.Session.Points)
	assert.Equal(t, issued.Session.TokenID, refreshed.Session.TokenID)
}

func TestAuthController_RefreshRequiresSession(t *testing.T) {
	app, _ := newControllerApp(t, new(MockCredentialVerifier))

	res, err := app.Test(postJSON("/auth/session/refresh", `{"phone":"+16502530042"}`), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestAuthController_Logout(t *testing.T) {
	app, _ := newControllerApp(t, new(MockCredentialVerifier))

	res, err := app.Test(httptest.NewRequest(http.MethodPost, "/auth/logout", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	var cleared bool
	for _, c := range res.Cookies() {
		if c.Name == "member_session" && c.Value == "" {
			cleared = true
		}
	}
	assert.True(t, cleared)
}

func TestAuthController_LoginGuardRuns(t *testing.T) {
	auther := newTestAuther(new(MockCredentialVerifier), nil)
	controller := auth.NewAuthController(auther, auth.WithControllerLogger(auth.NoopLogger{}))

	guard := func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			return auth.WriteError(c, fiber.NewError(http.StatusTooManyRequests, "too many requests"))
		}
	}

	app := newServer(func(r router.Router[*fiber.App]) {
		auth.RegisterAuthRoutes(r.Group("/auth"), controller, sessionMiddleware(auther.Issuer()), guard)
	})

	res, err := app.Test(postJSON("/auth/login", `{"email":"ana@example.com","password":"pw"}`), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)
}
