// Package gatewaytest provides an in-memory gateway.Gateway for tests.
package gatewaytest

import (
	"context"
	"fmt"
	"sync"

	"github.com/iliyamo/user-service/internal/apperr"
	"github.com/iliyamo/user-service/internal/gateway"
)

// Call records one invocation.
type Call struct {
	Op     gateway.Operation
	Params gateway.Params
}

// HandlerFunc answers one operation.
type HandlerFunc func(params gateway.Params) (*gateway.Result, error)

// Fake dispatches invocations to per-operation handlers and records every
// call. Operations without a handler fail with an operation error.
type Fake struct {
	mu       sync.Mutex
	handlers map[gateway.Operation]HandlerFunc
	calls    []Call
}

func New() *Fake {
	return &Fake{handlers: map[gateway.Operation]HandlerFunc{}}
}

// On registers h for op and returns f for chaining.
func (f *Fake) On(op gateway.Operation, h HandlerFunc) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[op] = h
	return f
}

func (f *Fake) Invoke(_ context.Context, op gateway.Operation, params gateway.Params) (*gateway.Result, error) {
	f.mu.Lock()
	cp := make(gateway.Params, len(params))
	for k, v := range params {
		cp[k] = v
	}
	f.calls = append(f.calls, Call{Op: op, Params: cp})
	h := f.handlers[op]
	f.mu.Unlock()

	if h == nil {
		return nil, apperr.Operation(fmt.Sprintf("no handler for %s", op), nil)
	}
	return h(cp)
}

// Calls returns a copy of the recorded invocations.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Rows is a HandlerFunc returning fixed rows.
func Rows(rows ...gateway.Row) HandlerFunc {
	return func(gateway.Params) (*gateway.Result, error) {
		return &gateway.Result{Rows: append([]gateway.Row{}, rows...)}, nil
	}
}

// Scalar is a HandlerFunc returning a fixed scalar.
func Scalar(v any) HandlerFunc {
	return func(gateway.Params) (*gateway.Result, error) {
		return gateway.NewScalarResult(v), nil
	}
}

// OK is a HandlerFunc for side-effect-only procedures.
func OK() HandlerFunc {
	return func(gateway.Params) (*gateway.Result, error) { return &gateway.Result{}, nil }
}

// Fail is a HandlerFunc returning a backend error with msg.
func Fail(msg string) HandlerFunc {
	return func(gateway.Params) (*gateway.Result, error) {
		return nil, apperr.Operation(msg, nil)
	}
}
