package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-service/internal/apperr"
	"github.com/iliyamo/user-service/internal/auth"
	"github.com/iliyamo/user-service/internal/middleware"
	"github.com/iliyamo/user-service/internal/model"
	"github.com/iliyamo/user-service/internal/queue"
)

// Success messages returned by the mutation endpoints.
const (
	msgRegistered      = "User registered successfully!"
	msgPasswordChanged = "Password changed successfully!"
	msgUpdated         = "User updated successfully!"
)

// UserStore is the persistence the handlers need. *repository.UserRepo
// satisfies it.
type UserStore interface {
	Login(ctx context.Context, userName string, password *string) (model.User, error)
	Register(ctx context.Context, userName, password string, role int) error
	ChangePassword(ctx context.Context, userName, oldPassword, newPassword string) error
	Delete(ctx context.Context, userID int64, actor string) (string, error)
	Update(ctx context.Context, u model.UserUpdate) error
	List(ctx context.Context) ([]model.User, error)
	GetByID(ctx context.Context, id int64) (model.User, error)
}

// TokenIssuer signs session tokens. *auth.TokenService satisfies it.
type TokenIssuer interface {
	Issue(userName string) (auth.Token, error)
}

// UserHandler bundles dependencies for the user endpoints.
type UserHandler struct {
	Users  UserStore
	Tokens TokenIssuer
	Events queue.Publisher
	Log    *slog.Logger
}

func NewUserHandler(users UserStore, tokens TokenIssuer, events queue.Publisher, log *slog.Logger) *UserHandler {
	if events == nil {
		events = queue.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &UserHandler{Users: users, Tokens: tokens, Events: events, Log: log}
}

type messageResp struct {
	Message string `json:"message"`
}

type tokenResp struct {
	Token string `json:"token"`
}

// Login verifies credentials at the backend and returns a signed token.
func (h *UserHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := decodeJSON(c, &req); err != nil {
		// identity check: errors.Is would also match any malformed body
		if err == errEmptyBody {
			return apperr.Validation(msgEmptyLogin)
		}
		return err
	}
	if err := req.validate(); err != nil {
		return err
	}

	u, err := h.Users.Login(c.Request().Context(), *req.UserName, req.PassWord)
	if err != nil {
		return err
	}
	tok, err := h.Tokens.Issue(u.UserName)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokenResp{Token: tok.Value})
}

// Register creates a user.
func (h *UserHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}
	if err := req.validate(); err != nil {
		return err
	}

	if err := h.Users.Register(c.Request().Context(), *req.UserName, *req.PassWord, *req.UserRole); err != nil {
		return err
	}
	h.publish(c, queue.UserEvent{Type: queue.UserRegistered, UserName: *req.UserName})
	return c.JSON(http.StatusOK, messageResp{Message: msgRegistered})
}

// ChangePassword replaces a user's password when the old one matches.
func (h *UserHandler) ChangePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}
	if err := req.validate(); err != nil {
		return err
	}

	if err := h.Users.ChangePassword(c.Request().Context(), *req.UserName, *req.OldPassword, *req.NewPassword); err != nil {
		return err
	}
	actor, _ := middleware.UserName(c)
	h.publish(c, queue.UserEvent{Type: queue.UserPasswordChanged, UserName: *req.UserName, Actor: actor})
	return c.JSON(http.StatusOK, messageResp{Message: msgPasswordChanged})
}

// Delete removes a user on behalf of the authenticated caller. The caller
// comes from the token, never from the body.
func (h *UserHandler) Delete(c echo.Context) error {
	var req deleteRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}
	if err := req.validate(); err != nil {
		return err
	}
	actor, ok := middleware.UserName(c)
	if !ok {
		return apperr.Auth(middleware.MsgMissingHeader)
	}

	status, err := h.Users.Delete(c.Request().Context(), *req.UserID, actor)
	if err != nil {
		return err
	}
	h.publish(c, queue.UserEvent{Type: queue.UserDeleted, UserID: *req.UserID, Actor: actor})
	return c.JSON(http.StatusOK, messageResp{Message: status})
}

// Update writes a user's optional display fields; absent ones become NULL.
func (h *UserHandler) Update(c echo.Context) error {
	var req updateRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}
	if err := req.validate(); err != nil {
		return err
	}

	err := h.Users.Update(c.Request().Context(), model.UserUpdate{
		UserName: *req.UserName,
		FullName: req.FullName,
		Gender:   req.Gender,
		Phone:    req.Phone,
	})
	if err != nil {
		return err
	}
	actor, _ := middleware.UserName(c)
	h.publish(c, queue.UserEvent{Type: queue.UserUpdated, UserName: *req.UserName, Actor: actor})
	return c.JSON(http.StatusOK, messageResp{Message: msgUpdated})
}

// GetAll lists every user. An empty store yields [] rather than null.
func (h *UserHandler) GetAll(c echo.Context) error {
	users, err := h.Users.List(c.Request().Context())
	if err != nil {
		return err
	}
	if users == nil {
		users = []model.User{}
	}
	return c.JSON(http.StatusOK, users)
}

// GetByID returns one user or 404.
func (h *UserHandler) GetByID(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	u, err := h.Users.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// publish sends ev after a successful mutation. Failures are logged and
// never change the response.
func (h *UserHandler) publish(c echo.Context, ev queue.UserEvent) {
	ev.OccurredAt = time.Now().UTC()
	ev.RequestID = c.Response().Header().Get(echo.HeaderXRequestID)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), 2*time.Second)
	defer cancel()
	if err := h.Events.Publish(ctx, ev); err != nil {
		h.Log.Warn("publish user event failed", "type", ev.Type, "err", err)
	}
}
