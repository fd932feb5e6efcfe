package taxon

import (
	"strings"
	"unicode/utf8"

	"github.com/gnames/gntree/pkg/ancestry"
	"github.com/gnames/gntree/pkg/rank"
	"github.com/gnames/gntree/pkg/schema"
)

// MaxNameLength is the longest allowed taxon name.
const MaxNameLength = 255

// Normalize brings name and rank of a taxon to their canonical form and
// derives rank level from the rank. Unranked or empty ranks become empty
// with no level; unknown ranks are kept but have no level.
func Normalize(t *schema.Taxon) {
	t.Name = strings.Join(strings.Fields(t.Name), " ")
	t.Name = rank.Capitalize(rank.RemoveFromName(t.Name))
	t.WikipediaTitle = strings.TrimSpace(t.WikipediaTitle)

	r, ok := rank.Normalize(t.Rank)
	if !ok {
		t.Rank = ""
		t.RankLevel = nil
		return
	}
	t.Rank = r
	t.RankLevel = nil
	if lvl, ok := rank.Level(r); ok {
		t.RankLevel = &lvl
	}
}

// ValidateFields checks constraints that do not need stored data.
func ValidateFields(t *schema.Taxon) *ValidationError {
	res := &ValidationError{}
	if t.Name == "" {
		res.Add("name", "can't be blank")
	}
	if utf8.RuneCountInString(t.Name) > MaxNameLength {
		res.Add("name", "is too long (maximum is %d characters)", MaxNameLength)
	}
	if t.ParentID != nil && t.ID != 0 && *t.ParentID == t.ID {
		res.Add("parent", "can't be the taxon itself")
	}
	return res
}

// Path returns ancestors of a taxon as a Path. Broken ancestry strings
// give an empty path.
func Path(t *schema.Taxon) ancestry.Path {
	p, err := ancestry.Parse(t.Ancestry)
	if err != nil {
		return ancestry.Path{}
	}
	return p
}

// SubtreePrefix is the ancestry of children of a taxon.
func SubtreePrefix(t *schema.Taxon) string {
	return Path(t).Child(t.ID).String()
}

// IsDescendant checks if t is somewhere in the subtree of ancestorID.
func IsDescendant(t *schema.Taxon, ancestorID int64) bool {
	return Path(t).Contains(ancestorID)
}

// IconicFor finds the iconic taxon of t: t itself if flagged, otherwise
// the nearest flagged ancestor, otherwise nil. Ancestors may come in any
// order; the ancestry of t defines which one is nearest.
func IconicFor(t *schema.Taxon, ancestors []schema.Taxon) *int64 {
	if t.IsIconic && t.ID != 0 {
		id := t.ID
		return &id
	}
	iconic := make(map[int64]bool, len(ancestors))
	for _, v := range ancestors {
		iconic[v.ID] = v.IsIconic
	}
	for _, id := range Path(t).Reversed() {
		if iconic[id] {
			res := id
			return &res
		}
	}
	return nil
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
