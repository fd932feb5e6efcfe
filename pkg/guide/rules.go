package guide

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gnames/gntree/pkg/ancestry"
	"github.com/gnames/gntree/pkg/schema"
	"github.com/gnames/gntree/pkg/taxon"
	"golang.org/x/text/unicode/norm"
)

const (
	MinTitle = 3
	MaxTitle = 255
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// ValidateTitle checks the length of a guide title.
func ValidateTitle(title string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(title))
	if n < MinTitle || n > MaxTitle {
		verr := &taxon.ValidationError{}
		verr.Add("title", "is the wrong length (should be %d to %d characters)",
			MinTitle, MaxTitle)
		return verr
	}
	return nil
}

// Parameterize turns a title into a lowercase ASCII slug: "Birds of
// Zürich" becomes "birds-of-zurich".
func Parameterize(title string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(title) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	res := nonSlug.ReplaceAllString(b.String(), "-")
	res = strings.Trim(res, "-")
	if res == "" {
		return "guide"
	}
	return res
}

// BundleKey is the storage key of a guide bundle.
func BundleKey(id int64) string {
	return fmt.Sprintf("guides/%d.ngz", id)
}

// BundleAction is what a guide update means for its bundle.
type BundleAction int

const (
	BundleKeep BundleAction = iota
	BundleGenerate
	BundleDiscard
)

// BundleActionFor compares states of a guide before and after an update.
// Only changes of title, description, downloadable or published date
// touch the bundle.
func BundleActionFor(before, after *schema.Guide) BundleAction {
	changed := before.Title != after.Title ||
		before.Description != after.Description ||
		before.Downloadable != after.Downloadable ||
		!sameTime(before, after)
	if !changed {
		return BundleKeep
	}
	if after.Downloadable {
		return BundleGenerate
	}
	return BundleDiscard
}

func sameTime(a, b *schema.Guide) bool {
	if a.PublishedAt == nil || b.PublishedAt == nil {
		return a.PublishedAt == nil && b.PublishedAt == nil
	}
	return a.PublishedAt.Equal(*b.PublishedAt)
}

// ConsensusTaxon finds the deepest taxon that is an ancestor of all given
// ancestries. Duplicated ancestries count once.
func ConsensusTaxon(ancestries []string) (*int64, error) {
	uniq := slices.Clone(ancestries)
	slices.Sort(uniq)
	uniq = slices.Compact(uniq)
	id, ok, err := ancestry.ConsensusStrings(uniq)
	if err != nil || !ok {
		return nil, err
	}
	return &id, nil
}

// OrderEntries puts entries without taxa first, keeping their order, then
// entries with taxa sorted depth first with siblings by name. Entries must
// come in their current order; taxa maps taxon IDs to taxa.
func OrderEntries(
	entries []schema.GuideTaxon,
	taxa map[int64]schema.Taxon,
) []schema.GuideTaxon {
	res := make([]schema.GuideTaxon, 0, len(entries))
	byTaxon := make(map[int64][]schema.GuideTaxon)
	var members []schema.Taxon
	for _, v := range entries {
		if v.TaxonID == nil {
			res = append(res, v)
			continue
		}
		t, ok := taxa[*v.TaxonID]
		if !ok {
			res = append(res, v)
			continue
		}
		if _, seen := byTaxon[t.ID]; !seen {
			members = append(members, t)
		}
		byTaxon[t.ID] = append(byTaxon[t.ID], v)
	}
	for _, t := range taxon.SortByAncestry(members) {
		res = append(res, byTaxon[t.ID]...)
	}
	for i := range res {
		res[i].Position = i + 1
	}
	return res
}

// ImageSizes are sizes of guide media copied into bundles.
var ImageSizes = []string{"thumb", "small", "medium"}

// MediaURL returns the URL of a media asset in the given size, empty if
// there is none.
func MediaURL(p schema.GuidePhoto, size string) string {
	switch size {
	case "thumb":
		return p.ThumbURL
	case "small":
		return p.SmallURL
	case "medium":
		return p.MediumURL
	}
	return ""
}

// AssetFilename is the name of a downloaded media asset inside a bundle,
// for example "photo-12-thumb.jpg".
func AssetFilename(p schema.GuidePhoto, size string) string {
	kind := p.Kind
	if kind == "" {
		kind = schema.PhotoKind
	}
	ext := strings.ToLower(path.Ext(urlPath(MediaURL(p, size))))
	if ext == "" || len(ext) > 5 {
		ext = ".jpg"
	}
	return fmt.Sprintf("%s-%d-%s%s", kind, p.ID, size, ext)
}

func urlPath(s string) string {
	if u, err := url.Parse(s); err == nil {
		return u.Path
	}
	return s
}
