package dedupe

import (
	"context"

	"github.com/pkg/errors"

	"github.com/autobrr/linkdupe/pkg/catalog"
	"github.com/autobrr/linkdupe/pkg/failure"
	"github.com/autobrr/linkdupe/pkg/grouper"
	"github.com/autobrr/linkdupe/pkg/hardlinkfilemap"
	"github.com/autobrr/linkdupe/pkg/linker"
)

// lanes partitions groups by the device of their canonical file, in order of
// first appearance. Lanes run concurrently, the groups inside one lane run one
// after another.
func lanes(groups []grouper.Group) [][]int {
	pos := make(map[uint64]int)
	var out [][]int
	for gi, g := range groups {
		dev := g.Canonical.ID.Device
		p, ok := pos[dev]
		if !ok {
			p = len(out)
			pos[dev] = p
			out = append(out, nil)
		}
		out[p] = append(out[p], gi)
	}
	return out
}

func (e *Engine) link(ctx context.Context, rep *Report, groups []grouper.Group, verified map[pair]error) error {
	results := make([]*GroupReport, len(groups))

	err := runPool(ctx, lanes(groups), e.opts.Workers, func(lane []int) {
		for _, gi := range lane {
			if ctx.Err() != nil {
				return
			}
			results[gi] = e.linkGroup(ctx, gi, groups[gi], verified)
		}
	})

	for gi, g := range groups {
		gr := results[gi]
		if gr == nil {
			continue
		}
		gr.BytesReclaimed = reclaimed(g, gr.Outcomes)
		rep.Groups = append(rep.Groups, *gr)
		rep.BytesReclaimed += gr.BytesReclaimed
		for _, o := range gr.Outcomes {
			switch {
			case o.Status == linker.Linked:
				rep.Linked++
			case o.Kind == failure.KindDigestCollision:
				rep.Anomalies = append(rep.Anomalies, Anomaly{
					Kind:      o.Kind,
					Canonical: gr.Canonical,
					Path:      o.Path,
					Reason:    o.Reason,
				})
			}
		}
	}

	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		e.log.WithError(err).Warnf("Linking interrupted after %d of %d groups", len(rep.Groups), len(groups))
		return errors.Wrap(failure.ErrAborted, "linking")
	}
	return nil
}

func (e *Engine) linkGroup(ctx context.Context, gi int, g grouper.Group, verified map[pair]error) *GroupReport {
	gr := &GroupReport{
		Size:      g.Size,
		Digest:    g.Digest,
		Canonical: g.Canonical.Path,
	}

	for _, l := range g.Links() {
		gr.Outcomes = append(gr.Outcomes, e.tx.Replace(g.Canonical, l))
	}

	// first usable member per foreign device, the other members on that
	// device are linked to it
	local := make(map[uint64]catalog.FileRecord)

	for mi, m := range g.Replaceable {
		if ctx.Err() != nil {
			break
		}

		if err := verified[pair{gi, mi}]; err != nil {
			if failure.KindOf(err) == failure.KindDigestCollision {
				e.log.WithError(err).Errorf("Digest collision, not linking %q to %q", m.Path, g.Canonical.Path)
			} else {
				e.log.WithError(err).Warnf("Verification failed, not linking %q", m.Path)
			}
			gr.Outcomes = append(gr.Outcomes, linker.FailedOutcome(m.Path, err))
			continue
		}

		canonical := g.Canonical
		if !m.ID.SameDevice(g.Canonical.ID) {
			dc, ok := local[m.ID.Device]
			if !ok {
				local[m.ID.Device] = m
				gr.DeviceCanonicals = append(gr.DeviceCanonicals, m.Path)
				gr.Outcomes = append(gr.Outcomes, e.tx.Replace(g.Canonical, m))
				continue
			}
			canonical = dc
		}

		out := e.tx.Replace(canonical, m)
		if out.Status == linker.Linked {
			gr.Replaced = append(gr.Replaced, m.Path)
		}
		gr.Outcomes = append(gr.Outcomes, out)
	}

	return gr
}

// reclaimed counts the size of each replaceable inode that had at least one
// path linked. Paths sharing an inode are counted once.
func reclaimed(g grouper.Group, outcomes []linker.Outcome) int64 {
	linked := make(map[string]struct{}, len(outcomes))
	for _, o := range outcomes {
		if o.Status == linker.Linked {
			linked[o.Path] = struct{}{}
		}
	}

	counted := make(map[hardlinkfilemap.FileID]struct{})
	var total int64
	for _, m := range g.Replaceable {
		if _, ok := linked[m.Path]; !ok {
			continue
		}
		if _, ok := counted[m.ID]; ok {
			continue
		}
		counted[m.ID] = struct{}{}
		total += g.Size
	}
	return total
}
