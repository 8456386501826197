package middleware

import (
	"context"
	"log/slog"
	"time"

	"reservations/internal/app/apperr"
	"reservations/internal/app/commands"
	"reservations/internal/app/queries"
)

// Logging records every dispatched command with its outcome. Client errors
// are logged at info, internal failures at error.
func Logging(logger *slog.Logger) CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		if logger == nil {
			return nextFn
		}
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := nextFn(ctx, cmd)
			logOutcome(ctx, logger, "command", cmd.Key(), time.Since(start), err)
			return res, err
		})
	}
}

func QueryLogging(logger *slog.Logger) QueryMiddleware {
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		if logger == nil {
			return nextFn
		}
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			start := time.Now()
			res, err := nextFn(ctx, q)
			logOutcome(ctx, logger, "query", q.Key(), time.Since(start), err)
			return res, err
		})
	}
}

func logOutcome(ctx context.Context, logger *slog.Logger, kind, key string, took time.Duration, err error) {
	if err == nil {
		logger.DebugContext(ctx, kind+" handled", "key", key, "duration", took)
		return
	}
	errKind := apperr.KindOf(err)
	level := slog.LevelInfo
	if errKind == apperr.KindInternal {
		level = slog.LevelError
	}
	logger.Log(ctx, level, kind+" failed", "key", key, "duration", took, "kind", string(errKind), "error", err)
}
