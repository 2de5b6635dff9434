package grouper

import (
	"fmt"
	"slices"
	"strings"

	"github.com/autobrr/linkdupe/pkg/catalog"
)

type Criterion string

const (
	// ByLinks prefers the record whose inode already has the most links.
	ByLinks Criterion = "links"
	// ByModTime prefers the oldest record.
	ByModTime Criterion = "mtime"
	// ByPath prefers the lexicographically smallest path.
	ByPath Criterion = "path"
)

// Order is the precedence of criteria used to pick a group's canonical
// record. ByPath is always applied last so the order is total.
type Order []Criterion

var DefaultOrder = Order{ByLinks, ByModTime, ByPath}

func ParseOrder(names []string) (Order, error) {
	if len(names) == 0 {
		return DefaultOrder, nil
	}

	order := make(Order, 0, len(names)+1)
	for _, n := range names {
		c := Criterion(strings.ToLower(strings.TrimSpace(n)))
		switch c {
		case ByLinks, ByModTime, ByPath:
		default:
			return nil, fmt.Errorf("unknown canonical order criterion: %q", n)
		}
		if slices.Contains(order, c) {
			return nil, fmt.Errorf("duplicate canonical order criterion: %q", n)
		}
		order = append(order, c)
	}

	if !slices.Contains(order, ByPath) {
		order = append(order, ByPath)
	}
	return order, nil
}

// Compare returns a negative number when a should be preferred over b as
// canonical.
func (o Order) Compare(a, b catalog.FileRecord) int {
	for _, c := range o {
		if r := compareBy(c, a, b); r != 0 {
			return r
		}
	}
	return compareBy(ByPath, a, b)
}

func compareBy(c Criterion, a, b catalog.FileRecord) int {
	switch c {
	case ByLinks:
		switch {
		case a.Links > b.Links:
			return -1
		case a.Links < b.Links:
			return 1
		}
	case ByModTime:
		return a.ModTime.Compare(b.ModTime)
	case ByPath:
		return strings.Compare(a.Path, b.Path)
	}
	return 0
}
