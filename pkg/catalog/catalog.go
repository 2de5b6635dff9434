package catalog

import (
	"io/fs"
	"time"

	"github.com/scylladb/go-set/strset"
	"github.com/sirupsen/logrus"

	"github.com/autobrr/linkdupe/pkg/failure"
	"github.com/autobrr/linkdupe/pkg/hardlinkfilemap"
	"github.com/autobrr/linkdupe/pkg/logger"
)

// Entry is one directory entry as supplied by a traversal source.
type Entry struct {
	Path      string
	Size      int64
	Mode      fs.FileMode
	ModTime   time.Time
	ID        hardlinkfilemap.FileID
	Links     uint64
	BlockSize int64
	// Err is set when the entry could not be stat'ed or opened.
	Err error
}

// FileRecord is an accepted, immutable catalog entry.
type FileRecord struct {
	Index   int                    `json:"-"`
	Path    string                 `json:"path"`
	Size    int64                  `json:"size"`
	ID      hardlinkfilemap.FileID `json:"id"`
	ModTime time.Time              `json:"mod_time"`
	Links   uint64                 `json:"links"`
}

type SkipReason string

const (
	SkipUnreadable     SkipReason = "unreadable"
	SkipNotRegular     SkipReason = "not_regular"
	SkipEmpty          SkipReason = "empty"
	SkipBelowMinSize   SkipReason = "below_min_size"
	SkipBelowBlockSize SkipReason = "below_block_size"
	SkipDuplicatePath  SkipReason = "duplicate_path"
	SkipExcluded       SkipReason = "excluded"
)

// Filter rejects entries the caller does not want considered, returning the
// matching rule.
type Filter interface {
	Excluded(Entry) (bool, string, error)
}

type Options struct {
	MinSize int64
	// IgnoreSmall skips files smaller than one filesystem block.
	IgnoreSmall bool
	Filter      Filter
}

// Unreadable describes an entry rejected because it could not be read.
type Unreadable struct {
	Path string
	Err  error
}

type Stats struct {
	Added     int
	Hardlinks int
	Skipped   map[SkipReason]int
}

func (s Stats) SkippedTotal() int {
	total := 0
	for _, n := range s.Skipped {
		total += n
	}
	return total
}

type Catalog struct {
	opts       Options
	log        *logrus.Entry
	records    []FileRecord
	paths      *strset.Set
	inodes     *hardlinkfilemap.Index
	unreadable []Unreadable
	stats      Stats
}

func New(opts Options) *Catalog {
	return &Catalog{
		opts:   opts,
		log:    logger.GetLogger("catalog"),
		paths:  strset.New(),
		inodes: hardlinkfilemap.New(),
		stats:  Stats{Skipped: make(map[SkipReason]int)},
	}
}

// Ingest normalises e into a FileRecord, or skips it with a logged reason.
func (c *Catalog) Ingest(e Entry) (FileRecord, bool) {
	if reason, ok := c.reject(e); ok {
		c.stats.Skipped[reason]++
		return FileRecord{}, false
	}

	rec := FileRecord{
		Index:   len(c.records),
		Path:    e.Path,
		Size:    e.Size,
		ID:      e.ID,
		ModTime: e.ModTime,
		Links:   e.Links,
	}
	if rec.Links == 0 {
		rec.Links = 1
	}

	c.records = append(c.records, rec)
	c.paths.Add(e.Path)
	if !c.inodes.Add(rec.ID, rec.Index) {
		c.stats.Hardlinks++
		c.log.Tracef("Path shares inode %s with an earlier path: %q", rec.ID, rec.Path)
	}
	c.stats.Added++

	return rec, true
}

func (c *Catalog) reject(e Entry) (SkipReason, bool) {
	if e.Err != nil {
		c.log.WithError(e.Err).Warnf("Skipping unreadable path: %q", e.Path)
		c.unreadable = append(c.unreadable, Unreadable{
			Path: e.Path,
			Err:  failure.New(failure.KindUnreadable, e.Path, e.Err),
		})
		return SkipUnreadable, true
	}

	switch {
	case !e.Mode.IsRegular():
		c.log.Tracef("Skipping non-regular file: %q (%s)", e.Path, e.Mode.Type())
		return SkipNotRegular, true
	case e.Size == 0:
		c.log.Tracef("Skipping empty file: %q", e.Path)
		return SkipEmpty, true
	case e.Size < c.opts.MinSize:
		c.log.Tracef("Skipping file below min size (%d < %d): %q", e.Size, c.opts.MinSize, e.Path)
		return SkipBelowMinSize, true
	case c.opts.IgnoreSmall && e.BlockSize > 0 && e.Size < e.BlockSize:
		c.log.Tracef("Skipping file smaller than a filesystem block (%d < %d): %q", e.Size, e.BlockSize, e.Path)
		return SkipBelowBlockSize, true
	case c.paths.Has(e.Path):
		c.log.Debugf("Skipping path supplied twice: %q", e.Path)
		return SkipDuplicatePath, true
	}

	if c.opts.Filter != nil {
		excluded, rule, err := c.opts.Filter.Excluded(e)
		if err != nil {
			c.log.WithError(err).Warnf("Failed evaluating filter, keeping path: %q", e.Path)
		} else if excluded {
			c.log.Debugf("Skipping path matching filter %q: %q", rule, e.Path)
			return SkipExcluded, true
		}
	}

	return "", false
}

func (c *Catalog) Records() []FileRecord {
	return c.records
}

func (c *Catalog) Record(idx int) FileRecord {
	return c.records[idx]
}

func (c *Catalog) Len() int {
	return len(c.records)
}

func (c *Catalog) Inodes() *hardlinkfilemap.Index {
	return c.inodes
}

// Unreadable returns the entries rejected because they could not be read.
func (c *Catalog) Unreadable() []Unreadable {
	return c.unreadable
}

func (c *Catalog) Stats() Stats {
	return c.stats
}
