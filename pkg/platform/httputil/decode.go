package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	dErrors "shieldgate/pkg/domain-errors"
)

// maxDecodeBytes bounds admin request bodies.
const maxDecodeBytes = 64 << 10

var validate = validator.New(validator.WithRequiredStructEnabled())

// Normalizable is implemented by request types that trim or canonicalize input
// before validation.
type Normalizable interface {
	Normalize()
}

// DecodeAndValidate decodes a JSON request body into T, normalizes it and
// validates its `validate` struct tags.
// On failure it writes an error response and returns nil, false.
//
// Usage:
//
//	req, ok := httputil.DecodeAndValidate[models.BlockRequest](ctx, w, r, h.logger)
//	if !ok {
//	    return
//	}
func DecodeAndValidate[T any](ctx context.Context, w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	var req T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxDecodeBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		logger.WarnContext(ctx, "failed to decode request body", "error", err)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}

	if n, ok := any(&req).(Normalizable); ok {
		n.Normalize()
	}

	if err := validate.Struct(&req); err != nil {
		logger.WarnContext(ctx, "invalid request", "error", err)
		WriteError(w, dErrors.New(dErrors.CodeValidation, validationMessage(err)))
		return nil, false
	}
	return &req, true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fe.Field() + " failed " + fe.Tag() + " validation"
	}
	return err.Error()
}
