package middleware

import (
	"context"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/metrics"
)

// LoggingInterceptor logs each RPC and records its duration under the
// procedure and Connect code. Install it before RequireAuth so rejected calls
// are recorded too; the caller RequireAuth resolves is still logged. m may
// be nil.
func LoggingInterceptor(m *metrics.Metrics) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			slot := &callerSlot{userID: GetUserID(ctx)}
			start := time.Now()
			resp, err := next(context.WithValue(ctx, callerSlotKey, slot), req)
			elapsed := time.Since(start)

			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
			}
			procedure := req.Spec().Procedure
			m.ObserveRPC(procedure, code, elapsed)

			attrs := []any{
				"procedure", procedure,
				"code", code,
				"user_id", slot.userID,
				"duration_ms", elapsed.Milliseconds(),
			}
			switch {
			case err == nil:
				slog.Info("RPC ok", attrs...)
			case isServerFault(connect.CodeOf(err)):
				slog.Error("RPC failed", append(attrs, "error", err)...)
			default:
				slog.Warn("RPC rejected", append(attrs, "error", err)...)
			}

			return resp, err
		}
	}
}

func isServerFault(code connect.Code) bool {
	switch code {
	case connect.CodeInternal, connect.CodeUnknown, connect.CodeDataLoss, connect.CodeUnavailable:
		return true
	}
	return false
}
