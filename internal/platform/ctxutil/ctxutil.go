// Package ctxutil carries per-request values through context.Context.
package ctxutil

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/lexi-backend/internal/domain"
)

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

type (
	traceDataKey   struct{}
	requestDataKey struct{}
)

// TraceData correlates logs, spans and responses for one request.
type TraceData struct {
	TraceID   string
	RequestID string
}

// RequestData identifies the authenticated caller. Role is loaded from the
// principal store, never from the token or the request body.
type RequestData struct {
	PrincipalID uuid.UUID
	Role        types.Role
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(Default(ctx), traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	td, _ := Default(ctx).Value(traceDataKey{}).(*TraceData)
	return td
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(Default(ctx), requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	rd, _ := Default(ctx).Value(requestDataKey{}).(*RequestData)
	return rd
}
