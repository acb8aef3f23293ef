// Package gateway invokes the backend's named stored procedures.
//
// Callers name an Operation and pass its parameters by name. The gateway
// looks the operation up in a fixed catalog, binds the parameters to
// placeholders in catalog order and returns the rows or scalar the
// procedure produced. Parameter values never become part of the SQL text.
package gateway

import (
	"context"
	"fmt"
	"sort"
)

// Operation names a backend use case.
type Operation string

const (
	OpLogin          Operation = "Login"
	OpRegister       Operation = "Register"
	OpChangePassword Operation = "ChangePassword"
	OpDeleteUser     Operation = "DeleteUser"
	OpUpdateUser     Operation = "UpdateUser"
	OpGetAllUsers    Operation = "GetAllUsers"
	OpGetUserByID    Operation = "GetUserById"
)

// Shape is what a procedure hands back.
type Shape int

const (
	ShapeNone   Shape = iota // side effect only
	ShapeRows                // zero or more rows
	ShapeScalar              // first column of the first row
)

// Procedure describes one stored procedure.
type Procedure struct {
	Name   string
	Params []string // in declaration order
	Shape  Shape
}

// Catalog is the fixed set of procedures the service may call.
var Catalog = map[Operation]Procedure{
	OpLogin:          {Name: "sp_Login", Params: []string{"UserName", "PassWord"}, Shape: ShapeRows},
	OpRegister:       {Name: "sp_Register", Params: []string{"UserName", "PassWord", "UserRole"}, Shape: ShapeNone},
	OpChangePassword: {Name: "sp_ChangePassword", Params: []string{"UserName", "OldPassword", "NewPassword"}, Shape: ShapeNone},
	OpDeleteUser:     {Name: "sp_DeleteUser", Params: []string{"UserId", "UserName"}, Shape: ShapeScalar},
	OpUpdateUser:     {Name: "sp_UpdateUser", Params: []string{"UserName", "FullName", "Gender", "Phone"}, Shape: ShapeNone},
	OpGetAllUsers:    {Name: "sp_GetAllUsers", Shape: ShapeRows},
	OpGetUserByID:    {Name: "sp_GetUserById", Params: []string{"UserId"}, Shape: ShapeRows},
}

// Params carries named parameter values. A nil value binds SQL NULL.
type Params map[string]any

// Row maps column names to values. Text columns are always strings.
type Row map[string]any

// Result is the outcome of one invocation.
type Result struct {
	Rows []Row

	scalar    any
	hasScalar bool
}

// NewScalarResult builds a Result holding a single scalar value.
func NewScalarResult(v any) *Result { return &Result{scalar: v, hasScalar: true} }

// Scalar returns the scalar produced by a ShapeScalar procedure.
func (r *Result) Scalar() (any, bool) {
	if r == nil {
		return nil, false
	}
	return r.scalar, r.hasScalar
}

// Gateway is the boundary to the stored-procedure backend. Every backend
// failure comes back as an apperr operation error carrying the backend's
// message.
type Gateway interface {
	Invoke(ctx context.Context, op Operation, params Params) (*Result, error)
}

// bind orders params by the procedure's declaration. Missing or unknown
// names are rejected so a typo can never silently bind NULL.
func bind(op Operation, proc Procedure, params Params) ([]any, error) {
	args := make([]any, len(proc.Params))
	known := make(map[string]struct{}, len(proc.Params))
	for i, name := range proc.Params {
		v, ok := params[name]
		if !ok {
			return nil, fmt.Errorf("%s: missing parameter %s", op, name)
		}
		args[i] = v
		known[name] = struct{}{}
	}
	var extra []string
	for name := range params {
		if _, ok := known[name]; !ok {
			extra = append(extra, name)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return nil, fmt.Errorf("%s: unknown parameters %v", op, extra)
	}
	return args, nil
}
