package auth

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// RegisterUserMessage creates a user with a chosen role. It backs the
// seed command, self service sign up is not part of the portal.
type RegisterUserMessage struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	Password  string `json:"password"`
	UseHashid bool   `json:"use_hashid"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

type RegisterUserHandler struct {
	repo   RepositoryManager
	cost   int
	logger Logger
}

func NewRegisterUserHandler(repo RepositoryManager) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:   repo,
		cost:   DefaultBcryptCost,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	h.logger = normalizeLogger(logger)
	return h
}

// WithCost sets the bcrypt cost for new hashes
func (h *RegisterUserHandler) WithCost(cost int) *RegisterUserHandler {
	if cost > 0 {
		h.cost = cost
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	role := RoleMember
	if strings.TrimSpace(event.Role) != "" {
		parsed, ok := ParseRole(event.Role)
		if !ok {
			return nil, ValidationError("invalid user", map[string]string{"role": "unknown role"})
		}
		role = parsed
	}

	if strings.TrimSpace(event.Email) == "" {
		return nil, ValidationError("invalid user", map[string]string{"email": "cannot be blank"})
	}

	hash, err := HashPasswordWithCost(event.Password, h.cost)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user := &User{
		Email:        event.Email,
		PasswordHash: hash,
		Role:         role,
		Name:         getName(event.Name, event.Email),
		Phone:        event.Phone,
	}

	if event.UseHashid {
		if id, err := hashid.NewUUID(strings.ToLower(strings.TrimSpace(event.Email))); err == nil {
			user.ID = id
		}
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var created *User
	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		created, err = h.repo.Users().CreateUserTx(ctx, tx, user)
		return err
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	h.logger.Info("user registered", "user_id", created.ID.String(), "role", created.Role)

	return created, nil
}

func getName(name, email string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}

	if strings.Contains(email, "@") {
		name = strings.TrimSpace(strings.Split(email, "@")[0])
	}

	return name
}
