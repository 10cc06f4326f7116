package log

import (
	"github.com/YuminosukeSato/glsfit/pkg/errors"
	crdb "github.com/cockroachdb/errors"
)

// extractStacktrace returns the first safe detail recorded by
// cockroachdb/errors.WithStack, which holds the formatted stack.
func extractStacktrace(err error) string {
	safeDetails := crdb.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}

// ErrorCode maps an error onto the standard error code values.
// Unknown errors yield an empty string.
func ErrorCode(err error) string {
	var dimErr *errors.DimensionError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &dimErr):
		return ErrorDimensionMismatch
	case errors.Is(err, errors.ErrSingularMatrix):
		return ErrorSingularMatrix
	case errors.Is(err, errors.ErrNumerical):
		return ErrorNumerical
	case errors.Is(err, errors.ErrDegenerateModel):
		return ErrorDegenerateModel
	case errors.Is(err, errors.ErrInvalidArgument):
		return ErrorInvalidArgument
	default:
		return ""
	}
}
