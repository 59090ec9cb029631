package log

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"

	scierrors "github.com/YuminosukeSato/scitune/pkg/errors"
)

// ErrFmtHandler decorates records that carry an error attribute with the
// error's stacktrace and, for the search engine's typed errors, an error code.
type ErrFmtHandler struct {
	handler slog.Handler
}

// WrapByErrFmtHandler wraps handler so error records gain StacktraceAttrKey
// and ErrorCodeKey attributes.
func WrapByErrFmtHandler(handler slog.Handler) slog.Handler {
	return &ErrFmtHandler{handler: handler}
}

func (eh *ErrFmtHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return eh.handler.Enabled(ctx, l)
}

func (eh *ErrFmtHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	hasCode := false
	r.Attrs(func(attr slog.Attr) bool {
		switch attr.Key {
		case ErrAttrKey:
			if e, ok := attr.Value.Any().(error); ok && err == nil {
				err = e
			}
		case ErrorCodeKey:
			hasCode = true
		}
		return true
	})
	if err == nil {
		return eh.handler.Handle(ctx, r)
	}

	if st := extractStacktrace(err); st != "" {
		r.AddAttrs(slog.String(StacktraceAttrKey, st))
	}
	if code := ErrorCode(err); code != "" && !hasCode {
		r.AddAttrs(slog.String(ErrorCodeKey, code))
	}
	return eh.handler.Handle(ctx, r)
}

func (eh *ErrFmtHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithAttrs(attrs)}
}

func (eh *ErrFmtHandler) WithGroup(g string) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithGroup(g)}
}

// ErrorCode maps the search engine's error types to the Error* codes. It
// returns "" for errors outside that taxonomy.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.HasType(err, (*scierrors.NoViableConfigurationError)(nil)):
		return ErrorNoViableConfig
	case errors.HasType(err, (*scierrors.MetricUndefinedError)(nil)):
		return ErrorMetricUndefined
	case errors.HasType(err, (*scierrors.TrainingFailedError)(nil)):
		return ErrorTrainingFailed
	case errors.HasType(err, (*scierrors.UnknownColumnError)(nil)):
		return ErrorUnknownColumn
	case errors.HasType(err, (*scierrors.EmptySpaceError)(nil)):
		return ErrorEmptySpace
	case errors.HasType(err, (*scierrors.InvalidFractionError)(nil)),
		errors.HasType(err, (*scierrors.InvalidFoldCountError)(nil)),
		errors.HasType(err, (*scierrors.ValidationError)(nil)):
		return ErrorInvalidConfig
	}
	return ""
}

func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}
