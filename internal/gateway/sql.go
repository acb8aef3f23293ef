package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/user-service/internal/apperr"
)

// Dialect selects how a procedure call is spelled.
type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
)

// statement renders the call text for proc. Only the procedure name and
// placeholders appear in it.
func (d Dialect) statement(proc Procedure) string {
	ph := make([]string, len(proc.Params))
	for i := range ph {
		if d == Postgres {
			ph[i] = fmt.Sprintf("$%d", i+1)
		} else {
			ph[i] = "?"
		}
	}
	args := strings.Join(ph, ", ")

	if d == Postgres {
		switch proc.Shape {
		case ShapeRows:
			return fmt.Sprintf("SELECT * FROM %s(%s)", proc.Name, args)
		case ShapeScalar:
			return fmt.Sprintf("SELECT %s(%s)", proc.Name, args)
		}
	}
	return fmt.Sprintf("CALL %s(%s)", proc.Name, args)
}

// Observer receives one callback per invocation.
type Observer interface {
	ObserveInvoke(op Operation, err error, elapsed time.Duration)
}

// SQLGateway invokes procedures over database/sql.
type SQLGateway struct {
	db       *sql.DB
	dialect  Dialect
	timeout  time.Duration
	catalog  map[Operation]Procedure
	tracer   trace.Tracer
	observer Observer
}

// SQLOption customises an SQLGateway.
type SQLOption func(*SQLGateway)

// WithTimeout bounds each invocation. Zero leaves only the caller's context.
func WithTimeout(d time.Duration) SQLOption { return func(g *SQLGateway) { g.timeout = d } }

// WithObserver registers an invocation observer, typically metrics.
func WithObserver(o Observer) SQLOption { return func(g *SQLGateway) { g.observer = o } }

// WithTracerProvider traces invocations with tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) SQLOption {
	return func(g *SQLGateway) { g.tracer = tp.Tracer(tracerName) }
}

const tracerName = "github.com/iliyamo/user-service/internal/gateway"

// NewSQLGateway returns a gateway on db speaking dialect.
func NewSQLGateway(db *sql.DB, dialect Dialect, opts ...SQLOption) *SQLGateway {
	g := &SQLGateway{
		db:      db,
		dialect: dialect,
		catalog: Catalog,
		tracer:  otel.Tracer(tracerName),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Invoke runs op on a connection taken for this call alone and released
// before returning, whatever the outcome.
func (g *SQLGateway) Invoke(ctx context.Context, op Operation, params Params) (res *Result, err error) {
	start := time.Now()
	proc, ok := g.catalog[op]
	if !ok {
		return nil, apperr.Operation(fmt.Sprintf("unknown operation %q", op), nil)
	}

	ctx, span := g.tracer.Start(ctx, "gateway."+string(op),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", string(g.dialect)),
			attribute.String("db.operation", proc.Name),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if g.observer != nil {
			g.observer.ObserveInvoke(op, err, time.Since(start))
		}
	}()

	args, err := bind(op, proc, params)
	if err != nil {
		return nil, apperr.Operation("", err)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	conn, err := g.db.Conn(ctx)
	if err != nil {
		return nil, backendError(err)
	}
	defer conn.Close()

	stmt := g.dialect.statement(proc)
	if proc.Shape == ShapeNone {
		if _, err := conn.ExecContext(ctx, stmt, args...); err != nil {
			return nil, backendError(err)
		}
		return &Result{}, nil
	}

	rows, err := conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, backendError(err)
	}
	defer rows.Close()

	cols, collected, err := collect(rows)
	if err != nil {
		return nil, backendError(err)
	}

	res = &Result{Rows: collected}
	if proc.Shape == ShapeScalar && len(collected) > 0 && len(cols) > 0 {
		res.scalar, res.hasScalar = collected[0][cols[0]], true
	}
	return res, nil
}

func collect(rows *sql.Rows) ([]string, []Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	out := []Row{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = normalize(vals[i])
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}

// normalize turns driver byte slices into strings so rows never alias
// driver buffers.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// backendError folds every driver failure into one operation error,
// keeping the backend's own message when the driver exposes it.
func backendError(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return apperr.Operation(myErr.Message, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return apperr.Operation(pgErr.Message, err)
	}
	return apperr.Operation("", err)
}
