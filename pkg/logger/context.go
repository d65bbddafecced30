package logger

import (
	"context"

	"github.com/google/uuid"
)

// Context key types, kept distinct so unrelated packages can never collide
// on a bare string key.
type sessionIDKey string
type traceIDKey string
type spanIDKey string
type modelNameKey string
type resourceIRIKey string
type transactionIDKey string

const (
	sessionIDCtxKey     sessionIDKey     = "session_id"
	traceIDCtxKey       traceIDKey       = "trace_id"
	spanIDCtxKey        spanIDKey        = "span_id"
	modelNameCtxKey     modelNameKey     = "model"
	resourceIRICtxKey   resourceIRIKey   = "resource_iri"
	transactionIDCtxKey transactionIDKey = "transaction_id"
)

// contextField describes one correlation field that every handler attaches
// to a log record when present in the context.
type contextField struct {
	Name   string
	Getter func(context.Context) (string, bool)
}

// ContextFieldsRegistry lists every correlation field handlers copy from
// context onto each log record.
var ContextFieldsRegistry = []contextField{
	{Name: "session_id", Getter: GetSessionID},
	{Name: "trace_id", Getter: GetTraceID},
	{Name: "span_id", Getter: GetSpanID},
	{Name: "model", Getter: GetModelName},
	{Name: "resource_iri", Getter: GetResourceIRI},
}

// WithSessionID attaches a session correlation id to ctx, generating one if
// none is present yet. It is idempotent: calling it again on a context that
// already carries an id returns ctx unchanged.
func WithSessionID(ctx context.Context) context.Context {
	if _, ok := GetSessionID(ctx); ok {
		return ctx
	}
	return context.WithValue(ctx, sessionIDCtxKey, uuid.NewString())
}

// GetSessionID retrieves the session correlation id from ctx.
func GetSessionID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDCtxKey).(string)
	return id, ok
}

// WithTraceID attaches a trace id to ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDCtxKey, traceID)
}

// GetTraceID retrieves the trace id from ctx.
func GetTraceID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(traceIDCtxKey).(string)
	return id, ok
}

// WithSpanID attaches a span id to ctx.
func WithSpanID(ctx context.Context, spanID string) context.Context {
	return context.WithValue(ctx, spanIDCtxKey, spanID)
}

// GetSpanID retrieves the span id from ctx.
func GetSpanID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(spanIDCtxKey).(string)
	return id, ok
}

// WithModelName attaches the name of the model an operation concerns.
func WithModelName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, modelNameCtxKey, name)
}

// GetModelName retrieves the model name from ctx.
func GetModelName(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(modelNameCtxKey).(string)
	return name, ok
}

// WithResourceIRI attaches the IRI of the resource an operation concerns.
func WithResourceIRI(ctx context.Context, iri string) context.Context {
	return context.WithValue(ctx, resourceIRICtxKey, iri)
}

// GetResourceIRI retrieves the resource IRI from ctx.
func GetResourceIRI(ctx context.Context) (string, bool) {
	iri, ok := ctx.Value(resourceIRICtxKey).(string)
	return iri, ok
}

// WithTransactionID attaches the backing store's transaction id to ctx, for
// bridging a SQL transaction id into the structured log fields of whatever
// it touches.
func WithTransactionID(ctx context.Context, txID int64) context.Context {
	return context.WithValue(ctx, transactionIDCtxKey, txID)
}

// GetTransactionID retrieves the transaction id from ctx.
func GetTransactionID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(transactionIDCtxKey).(int64)
	return id, ok
}
