// Package iosfga imports trees of taxa from SFGA archives (SQLite
// databases of the Species File Group Archive format).
package iosfga

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/gnames/gn"
	"github.com/gnames/gnfmt"
	"github.com/gnames/gnlib/ent/nomcode"
	"github.com/gnames/gntree/pkg/config"
	"github.com/gnames/gntree/pkg/lifecycle"
	"github.com/gnames/gntree/pkg/parserpool"
	"github.com/gnames/gntree/pkg/schema"
	"github.com/gnames/gntree/pkg/taxon"
	"github.com/gnames/gnuuid"
)

type importer struct {
	engine *taxon.Engine
	store  taxon.Store
	pool   parserpool.Pool
	bar    bool
}

// New creates an Importer that saves taxa through the engine and their
// vernacular names through the store.
func New(
	engine *taxon.Engine,
	store taxon.Store,
	pool parserpool.Pool,
) lifecycle.Importer {
	return &importer{engine: engine, store: store, pool: pool, bar: true}
}

func (imp *importer) Import(
	ctx context.Context,
	cfg *config.Config,
) (*lifecycle.ImportResult, error) {
	source := strings.TrimSpace(cfg.Import.Source)
	if source == "" {
		return nil, SourceError()
	}
	start := time.Now()

	cacheDir, err := prepareCacheDir(cfg.HomeDir)
	if err != nil {
		return nil, err
	}
	slog.Info("Fetching SFGA archive", "source", source)
	path, err := fetchSFGA(source, cacheDir)
	if err != nil {
		return nil, err
	}
	sdb, err := openSFGA(path)
	if err != nil {
		return nil, err
	}
	defer sdb.Close()

	res, err := imp.importDB(ctx, sdb, codeOf(cfg.Import.Code), cfg.JobsNumber)
	if err != nil {
		return nil, err
	}

	slog.Info("Finished SFGA import",
		"source", source,
		"created", res.Created,
		"existing", res.Existing,
		"failed", res.Failed,
		"skipped", res.Skipped,
		"vernaculars", res.Vernaculars,
		"duration", gnfmt.TimeString(time.Since(start).Seconds()),
	)
	gn.Info("Imported <em>%s</em> taxa from %s",
		humanize.Comma(int64(res.Created)), source)
	return res, nil
}

func (imp *importer) importDB(
	ctx context.Context,
	sdb *sql.DB,
	code nomcode.Code,
	jobsNum int,
) (*lifecycle.ImportResult, error) {
	nodes, err := loadNodes(ctx, sdb, imp.pool, code, jobsNum)
	if err != nil {
		return nil, err
	}
	slog.Info("Loaded SFGA taxa", "count", humanize.Comma(int64(len(nodes))))

	sorted, orphans := sortNodes(nodes)
	res := &lifecycle.ImportResult{Skipped: len(orphans)}
	ids, existing, err := imp.saveTaxa(ctx, sorted, res)
	if err != nil {
		return nil, err
	}

	res.Vernaculars, err = imp.saveVernaculars(ctx, sdb, ids, existing)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// saveTaxa creates taxa parents first and returns a map of archive IDs
// to taxon IDs, and the set of taxa that were in the tree already.
func (imp *importer) saveTaxa(
	ctx context.Context,
	nodes []*node,
	res *lifecycle.ImportResult,
) (map[string]int64, map[int64]bool, error) {
	ids := make(map[string]int64, len(nodes))
	existing := make(map[int64]bool)

	var bar *pb.ProgressBar
	if imp.bar {
		bar = pb.Full.Start(len(nodes))
		bar.Set(pb.CleanOnFinish, true)
		defer bar.Finish()
	}

	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if bar != nil {
			bar.Increment()
		}

		d := taxon.Draft{Name: n.name, Rank: n.rank}
		if n.parentID != "" {
			pid, ok := ids[n.parentID]
			if !ok {
				res.Skipped++
				continue
			}
			d.ParentID = &pid
		}

		t, err := imp.engine.FindChild(ctx, d)
		if err != nil {
			return nil, nil, err
		}
		if t != nil {
			ids[n.id] = t.ID
			existing[t.ID] = true
			res.Existing++
			continue
		}

		t, err = imp.engine.Create(ctx, d)
		if err != nil {
			res.Failed++
			slog.Warn("Cannot import taxon", "id", n.id, "name", n.name,
				"error", err)
			continue
		}
		ids[n.id] = t.ID
		res.Created++
	}
	return ids, existing, nil
}

// saveVernaculars adds vernacular names of imported taxa. Names already
// attached to existing taxa are not repeated.
func (imp *importer) saveVernaculars(
	ctx context.Context,
	sdb *sql.DB,
	ids map[string]int64,
	existing map[int64]bool,
) (int, error) {
	q := `
SELECT DISTINCT col__taxon_id, col__name, coalesce(col__language, '')
  FROM vernacular`
	rows, err := sdb.QueryContext(ctx, q)
	if err != nil {
		return 0, ReadError("vernacular", err)
	}
	defer rows.Close()

	seen := make(map[int64]map[string]bool)
	known := func(id int64, key string) (bool, error) {
		if seen[id] == nil {
			seen[id] = make(map[string]bool)
			if existing[id] {
				names, err := imp.store.TaxonNames(ctx, id)
				if err != nil {
					return false, err
				}
				for _, v := range names {
					seen[id][v.Lexicon+"|"+v.Name] = true
				}
			}
		}
		res := seen[id][key]
		seen[id][key] = true
		return res, nil
	}

	var count int
	for rows.Next() {
		var sfgaID, name, lang string
		if err = rows.Scan(&sfgaID, &name, &lang); err != nil {
			return count, ReadError("vernacular", err)
		}
		id, ok := ids[sfgaID]
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		tn := schema.TaxonName{
			TaxonID:  id,
			Name:     name,
			NameUUID: gnuuid.New(name).String(),
			Lexicon:  lexicon(lang),
			IsValid:  true,
		}
		dup, err := known(id, tn.Lexicon+"|"+tn.Name)
		if err != nil {
			return count, taxon.StoreError("load taxon names", err)
		}
		if dup {
			continue
		}
		if err = imp.store.SaveTaxonName(ctx, &tn); err != nil {
			slog.Warn("Cannot save vernacular name", "taxon", id,
				"name", name, "error", err)
			continue
		}
		count++
	}
	if err = rows.Err(); err != nil {
		return count, ReadError("vernacular", err)
	}
	return count, nil
}

func lexicon(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return "unknown"
	}
	return lang
}

func codeOf(s string) nomcode.Code {
	if strings.HasPrefix(strings.ToLower(s), "zoo") {
		return nomcode.Zoological
	}
	return nomcode.Botanical
}
