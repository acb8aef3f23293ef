package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/iliyamo/user-service/internal/gateway"
	"github.com/iliyamo/user-service/internal/model"
)

// UserRepo maps user operations onto stored-procedure invocations. Every
// method performs exactly one gateway call.
type UserRepo struct{ GW gateway.Gateway }

func NewUserRepo(gw gateway.Gateway) *UserRepo { return &UserRepo{GW: gw} }

// Login asks the backend to match the credentials. It succeeds only when
// exactly one row comes back. A nil password is sent as NULL.
func (r *UserRepo) Login(ctx context.Context, userName string, password *string) (model.User, error) {
	res, err := r.GW.Invoke(ctx, gateway.OpLogin, gateway.Params{
		"UserName": userName,
		"PassWord": nullable(password),
	})
	if err != nil {
		return model.User{}, err
	}
	if len(res.Rows) != 1 {
		return model.User{}, ErrInvalidCredentials
	}
	u := rowToUser(res.Rows[0])
	if u.UserName == "" {
		u.UserName = userName
	}
	return u, nil
}

// Register creates a user. Duplicate names are rejected by the backend.
func (r *UserRepo) Register(ctx context.Context, userName, password string, role int) error {
	_, err := r.GW.Invoke(ctx, gateway.OpRegister, gateway.Params{
		"UserName": userName,
		"PassWord": password,
		"UserRole": int64(role),
	})
	return err
}

// ChangePassword replaces the password when oldPassword matches.
func (r *UserRepo) ChangePassword(ctx context.Context, userName, oldPassword, newPassword string) error {
	_, err := r.GW.Invoke(ctx, gateway.OpChangePassword, gateway.Params{
		"UserName":    userName,
		"OldPassword": oldPassword,
		"NewPassword": newPassword,
	})
	return err
}

// Delete removes userID on behalf of actor and returns the backend's
// status text. Whether actor may delete userID is decided by the backend.
func (r *UserRepo) Delete(ctx context.Context, userID int64, actor string) (string, error) {
	res, err := r.GW.Invoke(ctx, gateway.OpDeleteUser, gateway.Params{
		"UserId":   userID,
		"UserName": actor,
	})
	if err != nil {
		return "", err
	}
	v, ok := res.Scalar()
	if !ok || v == nil {
		return noDeleteStatus, nil
	}
	return fmt.Sprint(v), nil
}

// Update writes the display fields of u.UserName.
func (r *UserRepo) Update(ctx context.Context, u model.UserUpdate) error {
	_, err := r.GW.Invoke(ctx, gateway.OpUpdateUser, gateway.Params{
		"UserName": u.UserName,
		"FullName": nullable(u.FullName),
		"Gender":   nullable(u.Gender),
		"Phone":    nullable(u.Phone),
	})
	return err
}

// List returns every user. The slice is never nil.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	res, err := r.GW.Invoke(ctx, gateway.OpGetAllUsers, nil)
	if err != nil {
		return nil, err
	}
	users := make([]model.User, 0, len(res.Rows))
	for _, row := range res.Rows {
		users = append(users, rowToUser(row))
	}
	return users, nil
}

// GetByID fetches one user. ErrUserNotFound means no row matched.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (model.User, error) {
	res, err := r.GW.Invoke(ctx, gateway.OpGetUserByID, gateway.Params{"UserId": id})
	if err != nil {
		return model.User{}, err
	}
	if len(res.Rows) == 0 {
		return model.User{}, ErrUserNotFound
	}
	u := rowToUser(res.Rows[0])
	u.UserID = id
	return u, nil
}

// nullable returns an untyped nil for a nil pointer so drivers bind NULL.
func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func rowToUser(row gateway.Row) model.User {
	return model.User{
		UserID:   asInt64(row["UserId"]),
		UserName: asString(row["UserName"]),
		FullName: asNullString(row["FullName"]),
		Gender:   asNullString(row["Gender"]),
		Phone:    asNullString(row["Phone"]),
		UserRole: int(asInt64(row["UserRole"])),
	}
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case uint64:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	case []byte:
		if n, err := strconv.ParseInt(string(t), 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func asNullString(v any) *string {
	if v == nil {
		return nil
	}
	s := asString(v)
	return &s
}
