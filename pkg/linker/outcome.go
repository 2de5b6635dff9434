package linker

import (
	"fmt"

	"github.com/autobrr/linkdupe/pkg/failure"
)

type Status int

const (
	Linked Status = iota + 1
	SkippedCrossDevice
	SkippedAlreadySame
	Failed
)

func (s Status) String() string {
	switch s {
	case Linked:
		return "linked"
	case SkippedCrossDevice:
		return "skipped_cross_device"
	case SkippedAlreadySame:
		return "skipped_already_same"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome is the result of replacing one path. It is created once and not
// modified afterwards.
type Outcome struct {
	Path   string       `json:"path"`
	Status Status       `json:"status"`
	Kind   failure.Kind `json:"kind,omitempty"`
	Reason string       `json:"reason,omitempty"`
}

func outcome(path string, status Status) Outcome {
	return Outcome{Path: path, Status: status}
}

func failed(path string, err error) Outcome {
	return Outcome{
		Path:   path,
		Status: Failed,
		Kind:   failure.KindOf(err),
		Reason: failure.Reason(err),
	}
}

// Failed builds a Failed outcome for a pair excluded before linking.
func FailedOutcome(path string, err error) Outcome {
	return failed(path, err)
}
