package auth

import "context"

type ctxKey string

const ctxKeyOperator ctxKey = "operator"

func WithOperator(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ctxKeyOperator, name)
}

func OperatorFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxKeyOperator); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
