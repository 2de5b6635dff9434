package dedupe

import (
	"context"
	"iter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"

	"github.com/autobrr/linkdupe/pkg/catalog"
	"github.com/autobrr/linkdupe/pkg/failure"
	"github.com/autobrr/linkdupe/pkg/grouper"
	"github.com/autobrr/linkdupe/pkg/hardlinkfilemap"
	"github.com/autobrr/linkdupe/pkg/hasher"
	"github.com/autobrr/linkdupe/pkg/linker"
	"github.com/autobrr/linkdupe/pkg/logger"
	"github.com/autobrr/linkdupe/pkg/signature"
)

// Engine drives one deduplication run: catalog, size buckets, quick
// signatures, full digests, grouping and linking.
// replacer links a target path to a canonical record.
type replacer interface {
	Replace(canonical, target catalog.FileRecord) linker.Outcome
}

type Engine struct {
	opts    Options
	log     *logrus.Entry
	limiter ratelimit.Limiter
	tx      replacer

	hashFile func(path string) (hasher.Digest, error)
}

func New(opts Options) *Engine {
	opts = opts.withDefaults()

	limiter := ratelimit.NewUnlimited()
	if opts.OpenRate > 0 {
		limiter = ratelimit.New(opts.OpenRate, ratelimit.WithoutSlack)
	}

	return &Engine{
		opts:    opts,
		log:     logger.GetLogger("dedupe"),
		limiter: limiter,
		tx:      linker.New(opts.DryRun),

		hashFile: hasher.HashFile,
	}
}

// Run consumes source and deduplicates it. The returned report is never nil.
// A source error or cancellation before linking starts yields an incomplete
// report, no filesystem changes and a non-nil error. Cancellation during
// linking keeps the outcomes produced so far.
func (e *Engine) Run(ctx context.Context, source iter.Seq2[catalog.Entry, error]) (*Report, error) {
	start := time.Now()
	rep := newReport(e.opts.DryRun)
	defer func() {
		rep.Duration = time.Since(start)
	}()

	cat := catalog.New(catalog.Options{
		MinSize:     e.opts.MinSize,
		IgnoreSmall: e.opts.IgnoreSmall,
		Filter:      e.opts.Filter,
	})

	for entry, err := range source {
		if err != nil {
			return e.abort(rep, errors.Wrap(err, "read catalog source"))
		}
		if ctx.Err() != nil {
			return e.abort(rep, errors.Wrap(failure.ErrAborted, "cataloging"))
		}
		rep.Scanned++
		cat.Ingest(entry)
	}
	e.collectCatalog(rep, cat)

	e.log.Infof("Catalogued %d files on %d inodes (%d skipped, %d extra hardlinks)", rep.Added,
		cat.Inodes().Length(), cat.Stats().SkippedTotal(), rep.Hardlinks)

	candidates, err := e.prune(ctx, rep, cat)
	if err != nil {
		return e.abort(rep, err)
	}

	digests, err := e.hash(ctx, rep, cat, candidates)
	if err != nil {
		return e.abort(rep, err)
	}

	// every dispatched hash has finished here, grouping sees complete data
	groups, alreadyLinked := grouper.New(e.opts.Order).Build(cat.Records(), digests)
	rep.AlreadyLinked = alreadyLinked
	rep.DuplicateGroups = len(groups)
	e.log.Infof("Found %d duplicate groups (%d already fully linked)", len(groups), alreadyLinked)

	verified, err := e.verify(ctx, groups)
	if err != nil {
		return e.abort(rep, err)
	}
	for gi, g := range groups {
		for mi, m := range g.Replaceable {
			if err := verified[pair{gi, mi}]; err != nil && failure.KindOf(err) != failure.KindDigestCollision {
				rep.fail(m.Path, StageVerify, err)
			}
		}
	}

	if err := e.link(ctx, rep, groups, verified); err != nil {
		rep.Status = StatusIncomplete
		return rep, err
	}

	e.log.WithField("reclaimable_space", humanize.IBytes(uint64(rep.BytesReclaimed))).
		Infof("Finished: %d linked across %d groups", rep.Linked, rep.DuplicateGroups)
	return rep, nil
}

func (e *Engine) abort(rep *Report, err error) (*Report, error) {
	rep.Status = StatusIncomplete
	e.log.WithError(err).Error("Run aborted before linking, no files were changed")
	return rep, err
}

func (e *Engine) collectCatalog(rep *Report, cat *catalog.Catalog) {
	stats := cat.Stats()
	rep.Added = stats.Added
	rep.Hardlinks = stats.Hardlinks
	for reason, n := range stats.Skipped {
		rep.Skipped[reason] = n
	}
	for _, u := range cat.Unreadable() {
		rep.fail(u.Path, StageCatalog, u.Err)
	}
}

// representatives returns one record index per distinct FileID among indices,
// in order of first appearance.
func representatives(cat *catalog.Catalog, indices []int) []int {
	seen := make(map[hardlinkfilemap.FileID]struct{}, len(indices))
	reps := make([]int, 0, len(indices))
	for _, idx := range indices {
		id := cat.Record(idx).ID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		rep, _ := cat.Inodes().Representative(id)
		reps = append(reps, rep)
	}
	return reps
}

// prune computes quick signatures for every multi-member size bucket and
// returns the record indices whose signature matches at least one other inode.
func (e *Engine) prune(ctx context.Context, rep *Report, cat *catalog.Catalog) ([]int, error) {
	buckets := cat.Buckets()

	var bucketed []int
	for _, b := range buckets {
		bucketed = append(bucketed, b.Indices...)
	}
	reps := representatives(cat, bucketed)

	sigs := make([]signature.Signature, cat.Len())
	sigErrs := make([]error, cat.Len())

	e.log.Debugf("Sampling %d inodes in %d size buckets (%s)", len(reps), len(buckets), e.opts.Sampler.Name())
	err := runPool(ctx, reps, e.opts.Workers, func(idx int) {
		rec := cat.Record(idx)
		e.limiter.Take()
		sigs[idx], sigErrs[idx] = signature.Compute(rec.Path, rec.Size, e.opts.Sampler)
	})
	if err != nil {
		return nil, errors.Wrap(failure.ErrAborted, "sampling")
	}

	var candidates []int
	for _, b := range buckets {
		bySig := make(map[int]signature.Signature, len(b.Indices))
		for _, idx := range b.Indices {
			rec := cat.Record(idx)
			r, _ := cat.Inodes().Representative(rec.ID)
			if sigErrs[r] != nil {
				e.log.WithError(sigErrs[r]).Warnf("Failed sampling, excluding: %q", rec.Path)
				rep.fail(rec.Path, StageSignature, sigErrs[r])
				continue
			}
			bySig[idx] = sigs[r]
		}

		for _, subset := range signature.Partition(b.Indices, bySig) {
			if distinctIDs(cat, subset) < 2 {
				continue
			}
			candidates = append(candidates, subset...)
		}
	}

	rep.Candidates = len(candidates)
	e.log.Debugf("%d of %d bucketed files survived quick signatures", len(candidates), len(bucketed))
	return candidates, nil
}

func distinctIDs(cat *catalog.Catalog, indices []int) int {
	ids := make([]hardlinkfilemap.FileID, len(indices))
	for i, idx := range indices {
		ids[i] = cat.Record(idx).ID
	}
	return hardlinkfilemap.Distinct(ids)
}

// hash computes one full digest per inode among candidates and fans it out to
// every candidate path of that inode.
func (e *Engine) hash(ctx context.Context, rep *Report, cat *catalog.Catalog, candidates []int) (map[int]hasher.Digest, error) {
	reps := representatives(cat, candidates)

	digests := make([]hasher.Digest, cat.Len())
	hashErrs := make([]error, cat.Len())

	e.log.Infof("Hashing %d candidate inodes", len(reps))
	err := runPool(ctx, reps, e.opts.Workers, func(idx int) {
		rec := cat.Record(idx)
		e.limiter.Take()
		digests[idx], hashErrs[idx] = e.hashFile(rec.Path)
		if hashErrs[idx] == nil {
			e.log.Tracef("Hashed %q: %s", rec.Path, digests[idx])
		}
	})
	if err != nil {
		return nil, errors.Wrap(failure.ErrAborted, "hashing")
	}

	byIndex := make(map[int]hasher.Digest, len(candidates))
	for _, idx := range candidates {
		rec := cat.Record(idx)
		r, _ := cat.Inodes().Representative(rec.ID)
		if hashErrs[r] != nil {
			e.log.WithError(hashErrs[r]).Warnf("Failed hashing, excluding: %q", rec.Path)
			rep.fail(rec.Path, StageHash, hashErrs[r])
			continue
		}
		byIndex[idx] = digests[r]
	}
	for _, r := range reps {
		if hashErrs[r] == nil {
			rep.Hashed++
		}
	}

	return byIndex, nil
}

type pair struct {
	group  int
	member int
}

// verify byte-compares each replaceable inode against its canonical when
// enabled. The result maps a pair to its verification error, nil entries
// passed.
func (e *Engine) verify(ctx context.Context, groups []grouper.Group) (map[pair]error, error) {
	if !e.opts.VerifyContent {
		return nil, nil
	}

	type check struct {
		pair
		canonical, path string
	}

	var checks []check
	for gi, g := range groups {
		seen := make(map[hardlinkfilemap.FileID]struct{})
		for mi, m := range g.Replaceable {
			if _, ok := seen[m.ID]; ok {
				continue
			}
			seen[m.ID] = struct{}{}
			checks = append(checks, check{pair: pair{gi, mi}, canonical: g.Canonical.Path, path: m.Path})
		}
	}

	results := make([]error, len(checks))
	e.log.Infof("Verifying %d pairs byte for byte", len(checks))
	err := runPool(ctx, indexes(len(checks)), e.opts.Workers, func(i int) {
		e.limiter.Take()
		results[i] = grouper.Verify(checks[i].canonical, checks[i].path)
	})
	if err != nil {
		return nil, errors.Wrap(failure.ErrAborted, "verifying")
	}

	verified := make(map[pair]error, len(checks))
	for i, c := range checks {
		verified[c.pair] = results[i]
	}

	// members sharing an inode share the verdict of the one that was compared
	for gi, g := range groups {
		byID := make(map[hardlinkfilemap.FileID]error)
		for mi, m := range g.Replaceable {
			if res, ok := verified[pair{gi, mi}]; ok {
				byID[m.ID] = res
				continue
			}
			verified[pair{gi, mi}] = byID[m.ID]
		}
	}
	return verified, nil
}

func indexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
