package translate

import (
	"errors"
	"fmt"

	"github.com/namesmt/lambda-adapter/adapter/envelope"
)

// ErrUnsupportedVariant is returned for a variant with no registered translator.
var ErrUnsupportedVariant = errors.New("unsupported envelope variant")

// ErrNilEnvelope is returned when a nil envelope is translated.
var ErrNilEnvelope = errors.New("nil envelope")

// TranslateError reports a failure converting between an envelope and the
// canonical request or response.
type TranslateError struct {
	Variant envelope.Variant
	Op      string
	Cause   error
}

func (e *TranslateError) Error() string {
	return fmt.Sprintf("translate %s %s: %v", e.Variant, e.Op, e.Cause)
}

func (e *TranslateError) Unwrap() error {
	return e.Cause
}

func newError(variant envelope.Variant, op string, cause error) *TranslateError {
	return &TranslateError{Variant: variant, Op: op, Cause: cause}
}
