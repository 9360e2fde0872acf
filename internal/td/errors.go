package td

import "github.com/pkg/errors"

// ErrPrecondition marks a caller contract violation, such as selecting from an
// empty action set or sampling more transitions than the memory holds.
var ErrPrecondition = errors.New("precondition violated")

// ErrDeserialization marks persisted model data that does not match either the
// wrapped or the bare table shape.
var ErrDeserialization = errors.New("malformed model data")
