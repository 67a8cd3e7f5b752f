package events

import (
	"net/http"

	auth "github.com/goliatone/go-member-auth"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

type ControllerRoutes struct {
	Register   string
	Mine       string
	Attendance string
}

// Controller exposes the Service over the router. It reads the session stored
// by the session middleware and passes it down, it does no role checks
// of its own.
type Controller struct {
	Debug      bool
	Logger     auth.Logger
	Service    *Service
	Routes     *ControllerRoutes
	ContextKey string
}

type ControllerOption func(*Controller)

// WithControllerLogger sets the controller logger
func WithControllerLogger(l auth.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithControllerDebug dumps payloads to the logger
func WithControllerDebug(debug bool) ControllerOption {
	return func(c *Controller) {
		c.Debug = debug
	}
}

// WithContextKey sets the locals key holding the session
func WithContextKey(key string) ControllerOption {
	return func(c *Controller) {
		if key != "" {
			c.ContextKey = key
		}
	}
}

func NewController(service *Service, opts ...ControllerOption) *Controller {
	if service == nil {
		panic("Missing Service in events controller...")
	}

	c := &Controller{
		Logger:     auth.NoopLogger{},
		Service:    service,
		ContextKey: auth.DefaultContextKey,
		Routes: &ControllerRoutes{
			Register:   "/registrations",
			Mine:       "/registrations/mine",
			Attendance: "/registrations/attendance",
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// RegisterRoutes mounts the registration endpoints. session should be an
// optional session middleware, the service gate decides access.
func RegisterRoutes[T any](app router.Router[T], controller *Controller, session router.MiddlewareFunc) {
	app.Post(controller.Routes.Register, controller.RegisterPost, session).
		SetName("events.registrations.create")
	app.Get(controller.Routes.Mine, controller.MineGet, session).
		SetName("events.registrations.mine")
	app.Put(controller.Routes.Attendance, controller.AttendancePut, session).
		SetName("events.registrations.attendance")
}

func (ctrl *Controller) RegisterPost(c router.Context) error {
	session := auth.LocalSession(c, ctrl.ContextKey)

	payload := RegisterInput{}
	if err := c.Bind(&payload); err != nil {
		ctrl.Logger.Debug("register parse payload", "error", err)
		return auth.WriteError(c, validationFailed(map[string]string{
			"body": "must be a valid JSON or form payload",
		}))
	}

	if ctrl.Debug {
		ctrl.Logger.Debug("register payload", "payload", print.MaybePrettyJSON(payload))
	}

	record, err := ctrl.Service.Register(c.Context(), session, payload)
	if err != nil {
		return auth.WriteError(c, err)
	}

	return c.JSON(http.StatusCreated, record)
}

func (ctrl *Controller) MineGet(c router.Context) error {
	session := auth.LocalSession(c, ctrl.ContextKey)

	records, err := ctrl.Service.ListMine(c.Context(), session)
	if err != nil {
		return auth.WriteError(c, err)
	}

	return c.JSON(router.StatusOK, records)
}

func (ctrl *Controller) AttendancePut(c router.Context) error {
	session := auth.LocalSession(c, ctrl.ContextKey)

	payload := UpdateAttendanceInput{}
	if len(c.Body()) > 0 {
		if err := c.Bind(&payload); err != nil {
			ctrl.Logger.Debug("attendance parse payload", "error", err)
			payload = UpdateAttendanceInput{}
		}
	}

	if ctrl.Debug {
		ctrl.Logger.Debug("attendance payload", "payload", print.MaybePrettyJSON(payload))
	}

	record, err := ctrl.Service.UpdateAttendance(c.Context(), session, payload)
	if err != nil {
		return auth.WriteError(c, err)
	}

	return c.JSON(router.StatusOK, record)
}
