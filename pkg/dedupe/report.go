package dedupe

import (
	"time"

	"github.com/autobrr/linkdupe/pkg/catalog"
	"github.com/autobrr/linkdupe/pkg/failure"
	"github.com/autobrr/linkdupe/pkg/hasher"
	"github.com/autobrr/linkdupe/pkg/linker"
)

type Status string

const (
	StatusComplete   Status = "complete"
	StatusIncomplete Status = "incomplete"
)

type Stage string

const (
	StageCatalog   Stage = "catalog"
	StageSignature Stage = "signature"
	StageHash      Stage = "hash"
	StageVerify    Stage = "verify"
)

// Report is the outcome of one run. It only defines fields; formatting is up
// to the caller.
type Report struct {
	Status Status `json:"status"`
	DryRun bool   `json:"dry_run"`

	// Scanned counts every entry the source supplied.
	Scanned       int                        `json:"scanned_count"`
	Added         int                        `json:"added_count"`
	Skipped       map[catalog.SkipReason]int `json:"skipped"`
	Hardlinks     int                        `json:"hardlink_count"`
	Candidates    int                        `json:"candidate_count"`
	Hashed        int                        `json:"hashed_count"`
	AlreadyLinked int                        `json:"already_linked_groups"`

	DuplicateGroups int   `json:"duplicate_group_count"`
	Linked          int   `json:"linked_count"`
	BytesReclaimed  int64 `json:"bytes_reclaimed"`

	Groups    []GroupReport `json:"groups"`
	Failures  []Failure     `json:"failures,omitempty"`
	Anomalies []Anomaly     `json:"anomalies,omitempty"`

	Duration time.Duration `json:"duration"`
}

type GroupReport struct {
	Size      int64         `json:"size"`
	Digest    hasher.Digest `json:"digest"`
	Canonical string        `json:"canonical_path"`
	// DeviceCanonicals are members kept on devices other than Canonical's;
	// later members on the same device are linked to them.
	DeviceCanonicals []string         `json:"device_canonical_paths,omitempty"`
	Replaced         []string         `json:"replaced_paths"`
	Outcomes         []linker.Outcome `json:"outcome_per_path"`
	BytesReclaimed   int64            `json:"bytes_reclaimed"`
}

// Failure is a file excluded from processing before linking.
type Failure struct {
	Path   string       `json:"path"`
	Stage  Stage        `json:"stage"`
	Kind   failure.Kind `json:"kind"`
	Reason string       `json:"reason"`
}

// Anomaly is a pair that matched by digest but not by content.
type Anomaly struct {
	Kind      failure.Kind `json:"kind"`
	Canonical string       `json:"canonical_path"`
	Path      string       `json:"path"`
	Reason    string       `json:"reason"`
}

func newReport(dryRun bool) *Report {
	return &Report{
		Status:  StatusComplete,
		DryRun:  dryRun,
		Skipped: make(map[catalog.SkipReason]int),
	}
}

func (r *Report) fail(path string, stage Stage, err error) {
	r.Failures = append(r.Failures, Failure{
		Path:   path,
		Stage:  stage,
		Kind:   failure.KindOf(err),
		Reason: failure.Reason(err),
	})
}

// Outcomes counts outcomes by status over every group.
func (r *Report) Outcomes() map[linker.Status]int {
	counts := make(map[linker.Status]int)
	for _, g := range r.Groups {
		for _, o := range g.Outcomes {
			counts[o.Status]++
		}
	}
	return counts
}
