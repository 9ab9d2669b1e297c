package model

import (
	"errors"
	"fmt"

	apperrors "github.com/yanqian/transcript2minutes/pkg/errors"
)

// ErrModelLoad matches any failure to produce a Handle.
var ErrModelLoad = errors.New("model load failed")

// LoadError records every attempt made before giving up.
type LoadError struct {
	Attempts []Attempt
}

// Attempt is one reference tried by the loader.
type Attempt struct {
	Ref string
	Err error
}

func (e *LoadError) Error() string {
	msg := ErrModelLoad.Error()
	for _, a := range e.Attempts {
		msg += fmt.Sprintf("; %s: %v", a.Ref, a.Err)
	}
	return msg
}

// Unwrap exposes the sentinel, the app code and each attempt's cause.
func (e *LoadError) Unwrap() []error {
	errs := []error{ErrModelLoad, apperrors.Wrap(apperrors.CodeModelLoad, "model load failed", nil)}
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}
