package taxon

import (
	"cmp"
	"slices"

	"github.com/gnames/gntree/pkg/schema"
)

// SortByAncestry orders taxa depth first: every taxon is followed by its
// subtree and siblings go by name. Taxa whose parents are not in the list
// are treated as roots of the listing. The input is not modified.
func SortByAncestry(taxa []schema.Taxon) []schema.Taxon {
	ids := make(map[int64]bool, len(taxa))
	for _, v := range taxa {
		ids[v.ID] = true
	}

	children := make(map[int64][]schema.Taxon)
	var roots []schema.Taxon
	for _, v := range taxa {
		parent, ok := nearestListed(v, ids)
		if !ok {
			roots = append(roots, v)
			continue
		}
		children[parent] = append(children[parent], v)
	}

	byName := func(a, b schema.Taxon) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	}

	res := make([]schema.Taxon, 0, len(taxa))
	var walk func(level []schema.Taxon)
	walk = func(level []schema.Taxon) {
		slices.SortFunc(level, byName)
		for _, v := range level {
			res = append(res, v)
			walk(children[v.ID])
		}
	}
	walk(roots)
	return res
}

func nearestListed(t schema.Taxon, ids map[int64]bool) (int64, bool) {
	for _, id := range Path(&t).Reversed() {
		if ids[id] {
			return id, true
		}
	}
	return 0, false
}
