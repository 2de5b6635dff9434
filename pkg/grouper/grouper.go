package grouper

import (
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/autobrr/linkdupe/pkg/catalog"
	"github.com/autobrr/linkdupe/pkg/hardlinkfilemap"
	"github.com/autobrr/linkdupe/pkg/hasher"
	"github.com/autobrr/linkdupe/pkg/logger"
)

// Group is a set of records with equal size and digest.
type Group struct {
	Size      int64
	Digest    hasher.Digest
	Canonical catalog.FileRecord
	// Members holds every record, canonical first, in canonical order.
	Members []catalog.FileRecord
	// Replaceable holds the members on a different inode than Canonical.
	Replaceable []catalog.FileRecord
}

// Links returns the members that already share the canonical inode.
func (g Group) Links() []catalog.FileRecord {
	var links []catalog.FileRecord
	for _, m := range g.Members[1:] {
		if m.ID.Equal(g.Canonical.ID) {
			links = append(links, m)
		}
	}
	return links
}

type key struct {
	size   int64
	digest hasher.Digest
}

type Grouper struct {
	order Order
	log   *logrus.Entry
}

func New(order Order) *Grouper {
	if len(order) == 0 {
		order = DefaultOrder
	}
	return &Grouper{
		order: order,
		log:   logger.GetLogger("grouper"),
	}
}

// Build groups records by (size, digest). Records without a digest are
// ignored. Groups whose members all share one inode need no work and are
// dropped; AlreadyLinked counts them. The result is sorted by canonical path
// so that it does not depend on hashing completion order.
func (g *Grouper) Build(records []catalog.FileRecord, digests map[int]hasher.Digest) (groups []Group, alreadyLinked int) {
	byKey := make(map[key][]catalog.FileRecord)
	for _, rec := range records {
		d, ok := digests[rec.Index]
		if !ok {
			continue
		}
		k := key{size: rec.Size, digest: d}
		byKey[k] = append(byKey[k], rec)
	}

	for k, members := range byKey {
		ids := make([]hardlinkfilemap.FileID, len(members))
		for i, m := range members {
			ids[i] = m.ID
		}
		if hardlinkfilemap.Distinct(ids) < 2 {
			if len(members) > 1 {
				alreadyLinked++
				g.log.Tracef("Skipping group of %d paths already sharing inode %s", len(members), members[0].ID)
			}
			continue
		}

		slices.SortFunc(members, g.order.Compare)
		group := Group{
			Size:      k.size,
			Digest:    k.digest,
			Canonical: members[0],
			Members:   members,
		}
		for _, m := range members[1:] {
			if !m.ID.Equal(group.Canonical.ID) {
				group.Replaceable = append(group.Replaceable, m)
			}
		}

		g.log.Debugf("Duplicate group %s: canonical %q, %d replaceable", k.digest.String()[:12], group.Canonical.Path,
			len(group.Replaceable))
		groups = append(groups, group)
	}

	slices.SortFunc(groups, func(a, b Group) int {
		return strings.Compare(a.Canonical.Path, b.Canonical.Path)
	})
	return groups, alreadyLinked
}
