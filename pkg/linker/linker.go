package linker

import (
	"crypto/rand"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/autobrr/linkdupe/pkg/catalog"
	"github.com/autobrr/linkdupe/pkg/failure"
	"github.com/autobrr/linkdupe/pkg/hardlinkfilemap"
	"github.com/autobrr/linkdupe/pkg/logger"
)

const (
	// temporary names are tempPrefix plus 12 hex characters, independent of
	// the target's name length
	tempPrefix   = ".linkdupe-"
	tempAttempts = 5
)

// Transaction replaces duplicate paths with hardlinks to a canonical file. It
// is the only component that mutates the tree, and it only ever links and
// renames.
type Transaction struct {
	dryRun bool
	log    *logrus.Entry

	// beforeRename runs between creating the temporary link and renaming it
	// over the target. Tests use it to inject failures.
	beforeRename func(tmp, target string) error
}

func New(dryRun bool) *Transaction {
	return &Transaction{
		dryRun: dryRun,
		log:    logger.GetLogger("linker"),
	}
}

// Replace makes target's path a hardlink to canonical's data. The target path
// resolves to either its old content or the canonical content at every point,
// and nothing is left behind when it fails.
func (t *Transaction) Replace(canonical, target catalog.FileRecord) Outcome {
	if !canonical.ID.SameDevice(target.ID) {
		t.log.Debugf("Skipping cross-device duplicate %q (device %d) of %q (device %d)", target.Path,
			target.ID.Device, canonical.Path, canonical.ID.Device)
		return outcome(target.Path, SkippedCrossDevice)
	}
	if canonical.ID.Equal(target.ID) {
		return outcome(target.Path, SkippedAlreadySame)
	}

	if err := unchanged(canonical); err != nil {
		t.log.WithError(err).Warnf("Canonical changed since scan, skipping %q", target.Path)
		return failed(target.Path, err)
	}
	// an earlier run or another process may already have linked it
	liveID, err := liveTarget(target)
	if liveID.Equal(canonical.ID) {
		return outcome(target.Path, SkippedAlreadySame)
	}
	if err != nil {
		t.log.WithError(err).Warnf("Target changed since scan, skipping %q", target.Path)
		return failed(target.Path, err)
	}

	if t.dryRun {
		t.log.Infof("Dry-run enabled, skipping link: %q -> %q", target.Path, canonical.Path)
		return outcome(target.Path, Linked)
	}

	if err := t.link(canonical.Path, target.Path); err != nil {
		t.log.WithError(err).Errorf("Failed linking %q -> %q", target.Path, canonical.Path)
		return failed(target.Path, err)
	}

	t.log.Infof("Linked %q -> %q", target.Path, canonical.Path)
	return outcome(target.Path, Linked)
}

func (t *Transaction) link(source, target string) (err error) {
	tmp, err := t.createTempLink(source, target)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			if rmErr := os.Remove(tmp); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				t.log.WithError(rmErr).Errorf("Failed removing temporary link %q", tmp)
			}
		}
	}()

	if t.beforeRename != nil {
		if err = t.beforeRename(tmp, target); err != nil {
			return failure.New(failure.KindLinkFailed, target, errors.Wrap(err, "interrupted before rename"))
		}
	}

	if err = os.Rename(tmp, target); err != nil {
		return failure.New(failure.KindLinkFailed, target, errors.Wrap(err, "rename temporary link over target"))
	}
	return nil
}

// createTempLink links source to an unused name in target's directory. link(2)
// never overwrites, so a taken name is retried with a new suffix.
func (t *Transaction) createTempLink(source, target string) (string, error) {
	dir := filepath.Dir(target)

	var lastErr error
	for range tempAttempts {
		suffix, err := randomSuffix()
		if err != nil {
			return "", failure.New(failure.KindLinkFailed, target, err)
		}

		tmp := filepath.Join(dir, tempPrefix+suffix)
		err = os.Link(source, tmp)
		if err == nil {
			return tmp, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", failure.New(failure.KindLinkFailed, target, errors.Wrap(err, "create temporary link"))
		}
		lastErr = err
	}

	return "", failure.New(failure.KindLinkFailed, target,
		errors.Wrapf(lastErr, "no free temporary name after %d attempts", tempAttempts))
}

func randomSuffix() (string, error) {
	var b [6]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", errors.Wrap(err, "generate temporary name")
	}
	return hex.EncodeToString(b[:]), nil
}

// unchanged checks that the record still describes what is on disk.
func unchanged(rec catalog.FileRecord) error {
	_, err := liveTarget(rec)
	return err
}

func liveTarget(rec catalog.FileRecord) (hardlinkfilemap.FileID, error) {
	fi, err := os.Lstat(rec.Path)
	if err != nil {
		return hardlinkfilemap.FileID{}, failure.New(failure.KindChanged, rec.Path, errors.Wrap(err, "stat"))
	}
	if !fi.Mode().IsRegular() {
		return hardlinkfilemap.FileID{}, failure.New(failure.KindChanged, rec.Path,
			errors.Errorf("no longer a regular file (%s)", fi.Mode().Type()))
	}

	id, _, err := hardlinkfilemap.LinkInfo(rec.Path, fi)
	if err != nil {
		return hardlinkfilemap.FileID{}, failure.New(failure.KindChanged, rec.Path, err)
	}

	switch {
	case !id.Equal(rec.ID):
		return id, failure.New(failure.KindChanged, rec.Path, errors.Errorf("inode changed from %s to %s", rec.ID, id))
	case fi.Size() != rec.Size:
		return id, failure.New(failure.KindChanged, rec.Path, errors.Errorf("size changed from %d to %d", rec.Size, fi.Size()))
	case !fi.ModTime().Equal(rec.ModTime):
		return id, failure.New(failure.KindChanged, rec.Path, errors.New("modified since scan"))
	}
	return id, nil
}
