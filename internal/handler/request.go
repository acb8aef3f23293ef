package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-service/internal/apperr"
)

// Validation messages shared by all handlers.
const (
	msgMalformed   = "malformed input"
	msgEmptyLogin  = "Please input Username and Password!"
	msgInvalidID   = "id must be a positive integer"
	missingPrefix  = "missing required field: "
	mismatchPrefix = "invalid value for field: "
)

// errEmptyBody is returned by decodeJSON for an empty or null body so
// callers can pick their own message.
var errEmptyBody = apperr.Validation(msgMalformed)

// Request bodies. Pointer fields distinguish "absent" from the zero value.

type loginRequest struct {
	UserName *string `json:"UserName"`
	PassWord *string `json:"PassWord"`
}

type registerRequest struct {
	UserName *string `json:"UserName"`
	PassWord *string `json:"PassWord"`
	UserRole *int    `json:"UserRole"`
}

type changePasswordRequest struct {
	UserName    *string `json:"UserName"`
	OldPassword *string `json:"OldPassword"`
	NewPassword *string `json:"NewPassword"`
}

type deleteRequest struct {
	UserID *int64 `json:"UserId"`
}

type updateRequest struct {
	UserName *string `json:"UserName"`
	FullName *string `json:"FullName"`
	Gender   *string `json:"Gender"`
	Phone    *string `json:"Phone"`
}

func (r *loginRequest) validate() error {
	return requireFields(field{"UserName", r.UserName != nil})
}

func (r *registerRequest) validate() error {
	return requireFields(
		field{"UserName", r.UserName != nil},
		field{"PassWord", r.PassWord != nil},
		field{"UserRole", r.UserRole != nil},
	)
}

func (r *changePasswordRequest) validate() error {
	return requireFields(
		field{"UserName", r.UserName != nil},
		field{"OldPassword", r.OldPassword != nil},
		field{"NewPassword", r.NewPassword != nil},
	)
}

func (r *deleteRequest) validate() error {
	return requireFields(field{"UserId", r.UserID != nil})
}

func (r *updateRequest) validate() error {
	return requireFields(field{"UserName", r.UserName != nil})
}

type field struct {
	name    string
	present bool
}

// requireFields names the first absent field in declaration order.
func requireFields(fields ...field) error {
	for _, f := range fields {
		if !f.present {
			return apperr.Validation(missingPrefix + f.name)
		}
	}
	return nil
}

// decodeJSON reads the request body into dst. An empty or null body yields
// errEmptyBody, a value of the wrong JSON type names the field, and any
// other syntax problem is reported as malformed input.
func decodeJSON(c echo.Context, dst any) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return apperr.Validation(msgMalformed)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return errEmptyBody
	}
	if err := json.Unmarshal(body, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return apperr.Validation(mismatchPrefix + typeErr.Field)
		}
		return apperr.Validation(msgMalformed)
	}
	return nil
}

// pathID parses the positive integer id path parameter.
func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation(msgInvalidID)
	}
	return id, nil
}
