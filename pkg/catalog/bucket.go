package catalog

import (
	"github.com/autobrr/linkdupe/pkg/hardlinkfilemap"
)

// Bucket holds the record indices sharing one exact byte size, in
// ingestion order.
type Bucket struct {
	Size    int64
	Indices []int
}

// Buckets partitions the catalog by size. Sizes with a single member, or whose
// members are all links of one inode, cannot hold duplicates and are dropped.
// Buckets are returned in the order their size was first seen.
func (c *Catalog) Buckets() []Bucket {
	bySize := make(map[int64]int)
	var buckets []Bucket

	for _, rec := range c.records {
		pos, exists := bySize[rec.Size]
		if !exists {
			pos = len(buckets)
			bySize[rec.Size] = pos
			buckets = append(buckets, Bucket{Size: rec.Size})
		}
		buckets[pos].Indices = append(buckets[pos].Indices, rec.Index)
	}

	kept := buckets[:0]
	for _, b := range buckets {
		if len(b.Indices) < 2 {
			continue
		}
		if c.distinctIDs(b.Indices) < 2 {
			c.log.Tracef("Dropping size bucket %d: all %d paths already share one inode", b.Size, len(b.Indices))
			continue
		}
		kept = append(kept, b)
	}

	c.log.Debugf("Bucketed %d records into %d candidate sizes", len(c.records), len(kept))
	return kept
}

func (c *Catalog) distinctIDs(indices []int) int {
	ids := make([]hardlinkfilemap.FileID, len(indices))
	for i, idx := range indices {
		ids[i] = c.records[idx].ID
	}
	return hardlinkfilemap.Distinct(ids)
}
