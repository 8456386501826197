package middleware

import (
	"context"

	"reservations/internal/app/apperr"
	"reservations/internal/app/commands"
	"reservations/internal/app/queries"
)

type Validator interface {
	Validate(ctx context.Context, message any) error
}

// SelfValidating is a Validator for messages exposing Validate() error.
// A failure that is not already classified becomes a bad request.
type SelfValidating struct{}

func (SelfValidating) Validate(_ context.Context, message any) error {
	v, ok := message.(interface{ Validate() error })
	if !ok {
		return nil
	}
	err := v.Validate()
	if err == nil {
		return nil
	}
	if apperr.KindOf(err) == apperr.KindInternal {
		return apperr.Wrap(apperr.KindBadRequest, err.Error(), err)
	}
	return err
}

func Validation(v Validator) CommandMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := v.Validate(ctx, cmd); err != nil {
				return nil, err
			}
			return nextFn(ctx, cmd)
		})
	}
}

func QueryValidation(v Validator) QueryMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := v.Validate(ctx, q); err != nil {
				return nil, err
			}
			return nextFn(ctx, q)
		})
	}
}
