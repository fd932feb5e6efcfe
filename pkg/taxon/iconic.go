package taxon

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gnames/gntree/pkg/schema"
	"github.com/gnames/gntree/pkg/templates"
	"gopkg.in/yaml.v3"
)

type iconicTable struct {
	IconicTaxa []struct {
		Name        string `yaml:"name"`
		DisplayName string `yaml:"display_name"`
	} `yaml:"iconic_taxa"`
}

var (
	displayOnce  sync.Once
	displayNames map[string]string
)

func loadDisplayNames() {
	displayNames = make(map[string]string)
	var tbl iconicTable
	if err := yaml.Unmarshal([]byte(templates.IconicYAML), &tbl); err != nil {
		return
	}
	for _, v := range tbl.IconicTaxa {
		displayNames[strings.ToLower(v.Name)] = v.DisplayName
	}
}

// DisplayName returns a common name of an iconic taxon, for example
// "Birds" for "Aves". Unknown names are returned unchanged.
func DisplayName(name string) string {
	displayOnce.Do(loadDisplayNames)
	if res, ok := displayNames[strings.ToLower(name)]; ok {
		return res
	}
	return name
}

// IconicIndex is a read-through cache of iconic taxa keyed by ID.
// It loads lazily and reloads after Invalidate or when its TTL expires.
type IconicIndex struct {
	mu       sync.RWMutex
	load     func(ctx context.Context) ([]schema.Taxon, error)
	ttl      time.Duration
	loaded   bool
	gen      int
	loadedAt time.Time
	byID     map[int64]schema.Taxon
}

// NewIconicIndex creates an index that reads iconic taxa from the store.
// Zero ttl keeps data until Invalidate is called.
func NewIconicIndex(s Store, ttl time.Duration) *IconicIndex {
	return &IconicIndex{load: s.IconicTaxa, ttl: ttl}
}

// Invalidate drops cached data.
func (ix *IconicIndex) Invalidate() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.loaded = false
	ix.gen++
}

// Get returns an iconic taxon by ID.
func (ix *IconicIndex) Get(ctx context.Context, id int64) (schema.Taxon, bool, error) {
	if err := ix.ensure(ctx); err != nil {
		return schema.Taxon{}, false, err
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	res, ok := ix.byID[id]
	return res, ok, nil
}

// All returns iconic taxa, shallow ones first, then by name.
func (ix *IconicIndex) All(ctx context.Context) ([]schema.Taxon, error) {
	if err := ix.ensure(ctx); err != nil {
		return nil, err
	}
	ix.mu.RLock()
	res := make([]schema.Taxon, 0, len(ix.byID))
	for _, v := range ix.byID {
		res = append(res, v)
	}
	ix.mu.RUnlock()

	slices.SortFunc(res, func(a, b schema.Taxon) int {
		return cmp.Or(
			cmp.Compare(len(Path(&a)), len(Path(&b))),
			cmp.Compare(a.Name, b.Name),
		)
	})
	return res, nil
}

func (ix *IconicIndex) ensure(ctx context.Context) error {
	ix.mu.RLock()
	fresh := ix.loaded &&
		(ix.ttl == 0 || time.Since(ix.loadedAt) < ix.ttl)
	gen := ix.gen
	ix.mu.RUnlock()
	if fresh {
		return nil
	}

	taxa, err := ix.load(ctx)
	if err != nil {
		return wrapStore("load iconic taxa", err)
	}

	byID := make(map[int64]schema.Taxon, len(taxa))
	for _, v := range taxa {
		byID[v.ID] = v
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.byID = byID
	// data loaded before an invalidation is served once, but not kept
	ix.loaded = gen == ix.gen
	ix.loadedAt = time.Now()
	return nil
}
