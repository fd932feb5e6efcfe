// Package ancestry provides materialized ancestry paths of taxa and the
// consensus computation over a set of such paths.
package ancestry

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Separator divides IDs in the string form of a path.
const Separator = "/"

// Path is an ordered list of ancestor IDs, from the root to the immediate
// parent. A root taxon has an empty path.
type Path []int64

// Parse converts "1/2/3" into a Path. An empty string is an empty path.
func Parse(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Path{}, nil
	}
	parts := strings.Split(s, Separator)
	res := make(Path, len(parts))
	for i, v := range parts {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("bad ancestry element %q in %q", v, s)
		}
		res[i] = id
	}
	return res, nil
}

// String returns the materialized form of the path, "1/2/3".
func (p Path) String() string {
	if len(p) == 0 {
		return ""
	}
	ss := make([]string, len(p))
	for i, v := range p {
		ss[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(ss, Separator)
}

// Child returns the path of a child of the node with the given id, where p
// is the path of that node.
func (p Path) Child(id int64) Path {
	res := make(Path, len(p), len(p)+1)
	copy(res, p)
	return append(res, id)
}

// Parent returns the ID of the immediate parent or false for roots.
func (p Path) Parent() (int64, bool) {
	if len(p) == 0 {
		return 0, false
	}
	return p[len(p)-1], true
}

// Contains checks if the id is among ancestors.
func (p Path) Contains(id int64) bool {
	return slices.Contains(p, id)
}

// HasPrefix checks if the path starts with all elements of the prefix.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	return slices.Equal(p[:len(prefix)], prefix)
}

// Depth is the number of ancestors.
func (p Path) Depth() int {
	return len(p)
}

// Reversed returns ancestors from the nearest to the farthest.
func (p Path) Reversed() Path {
	res := slices.Clone(p)
	slices.Reverse(res)
	return res
}

// Join returns ancestor IDs separated by a separator, for example
// for listed taxa caches.
func (p Path) Join(sep string) string {
	return strings.ReplaceAll(p.String(), Separator, sep)
}
