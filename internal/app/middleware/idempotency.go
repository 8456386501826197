package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"reflect"
	"time"

	"reservations/internal/app/apperr"
	"reservations/internal/app/commands"
)

// IdempotentCommand must be implemented by commands that want idempotency guarantees.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any // should match the handler result type
}

type IdempotencyRecord struct {
	Key        string
	Payload    []byte
	Error      string
	ErrorKind  apperr.Kind
	OccurredAt time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONResultCodec) Decode(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

var (
	errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")
)

// Idempotency replays the stored outcome of a command that carries a known key.
// Conflicts and internal failures are not stored so a retry can still succeed.
// Once the handler has run, its outcome is returned even if recording it fails.
func Idempotency(store IdempotencyStore, codec ResultCodec, logger *slog.Logger) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok {
				return nextFn(ctx, cmd)
			}
			key := idCmd.IdempotencyKey()
			if key == "" {
				return nextFn(ctx, cmd)
			}
			rec, found, err := store.Get(ctx, key)
			if err != nil {
				return nil, apperr.Internal(err)
			}
			if found {
				if rec.Error != "" {
					return nil, apperr.New(replayKind(rec.ErrorKind), rec.Error)
				}
				proto := idCmd.ResultPrototype()
				if proto == nil {
					return nil, apperr.Internal(errMissingPrototype)
				}
				if err := codec.Decode(rec.Payload, proto); err != nil {
					return nil, apperr.Internal(err)
				}
				return normalizePrototype(proto), nil
			}
			result, err := nextFn(ctx, cmd)
			record := IdempotencyRecord{
				Key:        key,
				OccurredAt: time.Now().UTC(),
			}
			if err != nil {
				kind := apperr.KindOf(err)
				if !storableFailure(kind) {
					return nil, err
				}
				record.Error = apperr.MessageOf(err)
				record.ErrorKind = kind
				if saveErr := store.Save(ctx, record); saveErr != nil {
					logger.WarnContext(ctx, "idempotency record save failed", "command", cmd.Key(), "error", saveErr)
				}
				return nil, err
			}
			if result != nil {
				payload, encErr := codec.Encode(result)
				if encErr != nil {
					logger.WarnContext(ctx, "idempotency result encode failed", "command", cmd.Key(), "error", encErr)
					return result, nil
				}
				record.Payload = payload
			}
			if saveErr := store.Save(ctx, record); saveErr != nil {
				logger.WarnContext(ctx, "idempotency record save failed", "command", cmd.Key(), "error", saveErr)
			}
			return result, nil
		})
	}
}

func storableFailure(kind apperr.Kind) bool {
	switch kind {
	case apperr.KindBadRequest, apperr.KindForbidden, apperr.KindNotFound:
		return true
	}
	return false
}

func replayKind(kind apperr.Kind) apperr.Kind {
	if kind == "" {
		return apperr.KindInternal
	}
	return kind
}

func normalizePrototype(proto any) any {
	rv := reflect.ValueOf(proto)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return rv.Interface()
	}
	return proto
}
