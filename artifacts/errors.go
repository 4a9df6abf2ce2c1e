package artifacts

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupportedType   = errors.New("unsupported object type")
	ErrUnknownTag        = errors.New("unknown type tag")
	ErrInvalidKind       = errors.New("invalid artifact kind")
	ErrDestinationExists = errors.New("destination already exists")
	ErrNeedsOSFs         = errors.New("model writes its own files and needs an OS filesystem")
)

// UnsupportedTypeError reports a value that matched none of the accepted tags.
type UnsupportedTypeError struct {
	Type string
	Tags []TypeTag
}

func (e *UnsupportedTypeError) Error() string {
	tags := make([]string, len(e.Tags))
	for i, t := range e.Tags {
		tags[i] = string(t)
	}
	return fmt.Sprintf("unexpected object type %s (expected: %s)", e.Type, strings.Join(tags, ", "))
}

func (e *UnsupportedTypeError) Unwrap() error {
	return ErrUnsupportedType
}
