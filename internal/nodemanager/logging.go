package nodemanager

import (
	"context"
	"errors"
	"log/slog"

	"github.com/starford/storygraph/internal/apperr"
)

// LogObserver logs every Manager call. Client errors are logged at Warn,
// everything else that failed at Error.
func LogObserver(logger *slog.Logger) Observer {
	return ObserverFunc(func(ctx context.Context, call Call) {
		attrs := []slog.Attr{
			slog.String("op", string(call.Op)),
			slog.Duration("duration", call.Duration),
		}
		if call.ID != "" {
			attrs = append(attrs, slog.String("id", call.ID))
		}
		if call.Title != "" {
			attrs = append(attrs, slog.String("title", call.Title))
		}
		switch {
		case call.Node != nil:
			attrs = append(attrs, slog.String("node_id", call.Node.ID.String()))
		case call.Edge != nil:
			attrs = append(attrs,
				slog.String("edge_id", call.Edge.ID.String()),
				slog.String("child_id", call.Edge.Child.ID.String()))
		}

		if call.Err == nil {
			if call.Op == OpFindByTitle || call.Op == OpChildren || call.Op == OpParents {
				attrs = append(attrs, slog.Int("results", call.Results))
			}
			logger.LogAttrs(ctx, slog.LevelInfo, "node manager call", attrs...)
			return
		}

		attrs = append(attrs, slog.String("error", call.Err.Error()))
		level := slog.LevelError
		if errors.Is(call.Err, apperr.ErrNotFound) || errors.Is(call.Err, apperr.ErrInvalidArgument) {
			level = slog.LevelWarn
		}
		logger.LogAttrs(ctx, level, "node manager call failed", attrs...)
	})
}
