package middleware

import "context"

type Validator interface {
	Validate(ctx context.Context, message any) error
}

// SelfValidating messages check their own shape before any store is touched.
type SelfValidating interface {
	Validate() error
}

// MessageValidator defers to SelfValidating messages and accepts everything else.
type MessageValidator struct{}

func (MessageValidator) Validate(_ context.Context, message any) error {
	if v, ok := message.(SelfValidating); ok {
		return v.Validate()
	}
	return nil
}

func Validation(v Validator) CommandMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return precheck(v.Validate).commands()
}

func QueryValidation(v Validator) QueryMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return precheck(v.Validate).queries()
}

var _ Validator = MessageValidator{}
