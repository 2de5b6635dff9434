package paths

import (
	"io/fs"
	"iter"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/dlclark/regexp2"
	"github.com/pkg/errors"

	"github.com/autobrr/linkdupe/pkg/catalog"
	"github.com/autobrr/linkdupe/pkg/hardlinkfilemap"
	"github.com/autobrr/linkdupe/pkg/logger"
)

/* Structs */

type Options struct {
	// ExcludePaths are regular expressions matched against the full path.
	// Matching directories are not descended into.
	ExcludePaths []string
	NumWorkers   int
}

type walker struct {
	excludes []*regexp2.Regexp

	mu      sync.Mutex
	entries []catalog.Entry
}

/* Vars */

var (
	log = logger.GetLogger("paths")
)

/* Public */

// CompileExcludes compiles exclusion patterns, reporting the first invalid one.
func CompileExcludes(patterns []string) ([]*regexp2.Regexp, error) {
	out := make([]*regexp2.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp2.Compile(p, regexp2.None)
		if err != nil {
			return nil, errors.Wrapf(err, "compile exclude pattern %q", p)
		}
		out = append(out, re)
	}
	return out, nil
}

// Walk lists every entry below roots without following symlinks. Entries are
// yielded sorted by path once all roots were walked. Per-entry stat errors are
// carried on the entry, a root that cannot be walked ends the sequence with
// an error.
func Walk(roots []string, opts Options) iter.Seq2[catalog.Entry, error] {
	return func(yield func(catalog.Entry, error) bool) {
		excludes, err := CompileExcludes(opts.ExcludePaths)
		if err != nil {
			yield(catalog.Entry{}, err)
			return
		}

		w := &walker{excludes: excludes}
		conf := &fastwalk.Config{
			Follow:     false,
			NumWorkers: opts.NumWorkers,
		}

		for _, root := range roots {
			root = filepath.Clean(root)
			log.Debugf("Walking %q", root)

			if err := fastwalk.Walk(conf, root, w.visit); err != nil {
				yield(catalog.Entry{}, errors.Wrapf(err, "walk %q", root))
				return
			}
		}

		slices.SortFunc(w.entries, func(a, b catalog.Entry) int {
			return strings.Compare(a.Path, b.Path)
		})
		log.Debugf("Found %d entries below %d roots", len(w.entries), len(roots))

		for _, e := range w.entries {
			if !yield(e, nil) {
				return
			}
		}
	}
}

/* Private */

// visit is called concurrently by fastwalk.
func (w *walker) visit(path string, d fs.DirEntry, err error) error {
	if err != nil {
		if d == nil {
			// the root itself could not be read
			return err
		}
		log.WithError(err).Warnf("Failed reading %q", path)
		w.add(catalog.Entry{Path: path, Err: err})
		return nil
	}

	excluded, err := w.excluded(path)
	if err != nil {
		return err
	}
	if excluded {
		log.Tracef("Skipping excluded path: %s", path)
		if d.IsDir() {
			return fastwalk.SkipDir
		}
		return nil
	}

	if d.IsDir() {
		return nil
	}

	w.add(entryFromDir(path, d))
	return nil
}

func (w *walker) excluded(path string) (bool, error) {
	for _, re := range w.excludes {
		match, err := re.MatchString(path)
		if err != nil {
			return false, errors.Wrapf(err, "match exclude pattern %q", re.String())
		}
		if match {
			return true, nil
		}
	}
	return false, nil
}

func (w *walker) add(e catalog.Entry) {
	w.mu.Lock()
	w.entries = append(w.entries, e)
	w.mu.Unlock()
}

func entryFromDir(path string, d fs.DirEntry) catalog.Entry {
	info, err := d.Info()
	if err != nil {
		return catalog.Entry{Path: path, Err: err}
	}
	return EntryFromInfo(path, info)
}

// EntryFromInfo builds a catalog entry from an lstat result.
func EntryFromInfo(path string, info fs.FileInfo) catalog.Entry {
	e := catalog.Entry{
		Path:      path,
		Size:      info.Size(),
		Mode:      info.Mode(),
		ModTime:   info.ModTime(),
		BlockSize: hardlinkfilemap.BlockSize(info),
	}
	if !info.Mode().IsRegular() {
		return e
	}

	id, links, err := hardlinkfilemap.LinkInfo(path, info)
	if err != nil {
		e.Err = errors.Wrap(err, "read file identifier")
		return e
	}
	e.ID = id
	e.Links = links
	return e
}
