// Package errors defines the bridge's error taxonomy. These are sentinel
// classes, not exhaustive types: callers wrap them with Wrap to attach
// context, mirroring the teacher's pkg/utils.Wrap convention.
package errors

import (
	stderrors "errors"
	"fmt"
)

type Class string

const (
	ClassConfig      Class = "config"
	ClassStore       Class = "store"
	ClassTransient   Class = "adapter_transient"
	ClassAuth        Class = "adapter_auth"
	ClassValidation  Class = "validation"
	ClassMirrorBuild Class = "mirror_build"
	ClassMirrorSubmit Class = "mirror_submit"
)

// BridgeError carries a Class alongside the wrapped cause so the
// supervisor and logs can branch on failure kind without string matching.
type BridgeError struct {
	Class Class
	Msg   string
	Err   error
}

func (e *BridgeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Class, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Class, e.Msg)
}

func (e *BridgeError) Unwrap() error { return e.Err }

// Wrap adds context to err tagged with the given class. Returns nil if err
// is nil, matching the teacher's utils.Wrap semantics.
func Wrap(class Class, err error, message string) error {
	if err == nil {
		return nil
	}
	return &BridgeError{Class: class, Msg: message, Err: err}
}

func New(class Class, message string) error {
	return &BridgeError{Class: class, Msg: message}
}

// Is reports whether err (or something it wraps) is a BridgeError of the
// given class.
func Is(err error, class Class) bool {
	for err != nil {
		if be, ok := err.(*BridgeError); ok && be.Class == class {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}
