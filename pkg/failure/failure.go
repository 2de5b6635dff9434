// Package failure classifies the per-file and per-pair errors a run can
// produce so that every skip or failure in a report names its cause.
package failure

import (
	"fmt"
	"io/fs"

	"github.com/pkg/errors"
)

type Kind string

const (
	KindUnknown         Kind = "unknown"
	KindUnreadable      Kind = "io_unreadable"
	KindCrossDevice     Kind = "cross_device"
	KindDigestCollision Kind = "digest_collision"
	KindLinkFailed      Kind = "link_failed"
	KindChanged         Kind = "changed"
	KindAborted         Kind = "aborted"
)

// ErrAborted is returned when a run is cancelled before linking could start.
var ErrAborted = errors.New("run aborted")

type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, path string, err error) error {
	if err == nil {
		err = errors.New(string(kind))
	}
	return &Error{Kind: kind, Path: path, Err: err}
}

// Unreadable wraps an I/O error hit while reading path.
func Unreadable(path string, err error, msg string) error {
	return New(KindUnreadable, path, errors.Wrap(err, msg))
}

func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, ErrAborted) {
		return KindAborted
	}
	if errors.Is(err, fs.ErrPermission) {
		return KindUnreadable
	}
	return KindUnknown
}

// Reason returns the error text without the kind prefix.
func Reason(err error) string {
	if err == nil {
		return ""
	}

	var fe *Error
	if errors.As(err, &fe) && fe.Err != nil {
		return fe.Err.Error()
	}
	return err.Error()
}
