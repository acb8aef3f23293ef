// Package repository defines error values reused by the user repository.
// They are apperr errors, so handlers translate them into HTTP statuses
// without inspecting messages.
package repository

import "github.com/iliyamo/user-service/internal/apperr"

// ErrInvalidCredentials is returned by Login when the backend does not
// match exactly one user. Handlers translate it into a 400.
var ErrInvalidCredentials = &apperr.Error{Kind: apperr.KindOperation, Message: "invalid credentials"}

// ErrUserNotFound is returned when a lookup by id has no match. Handlers
// translate it into a 404.
var ErrUserNotFound = &apperr.Error{Kind: apperr.KindNotFound, Message: "User not found!"}

// noDeleteStatus is reported when sp_DeleteUser returns no status text.
const noDeleteStatus = "No response from server"
