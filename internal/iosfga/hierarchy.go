package iosfga

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/gnames/gnlib/ent/nomcode"
	"github.com/gnames/gntree/pkg/parserpool"
	"golang.org/x/sync/errgroup"
)

// node is an accepted taxon of an archive.
type node struct {
	id       string
	parentID string
	name     string
	rank     string
}

// usage is a row of the taxon and name join.
type usage struct {
	id             string
	parentID       string
	scientificName string
	rank           string
}

// loadNodes reads accepted taxa and parses their names with jobsNum
// concurrent workers.
func loadNodes(
	ctx context.Context,
	sdb *sql.DB,
	pool parserpool.Pool,
	code nomcode.Code,
	jobsNum int,
) (map[string]*node, error) {
	if jobsNum < 1 {
		jobsNum = 1
	}
	chIn := make(chan usage)
	chOut := make(chan *node)
	g, gctx := errgroup.WithContext(ctx)

	var wg sync.WaitGroup
	for range jobsNum {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			for u := range chIn {
				n := &node{
					id:       u.id,
					parentID: u.parentID,
					name:     pool.Canonical(u.scientificName, code),
					rank:     strings.ToLower(u.rank),
				}
				if n.parentID == n.id {
					n.parentID = ""
				}
				select {
				case <-gctx.Done():
					return gctx.Err()
				case chOut <- n:
				}
			}
			return nil
		})
	}
	go func() {
		wg.Wait()
		close(chOut)
	}()

	res := make(map[string]*node)
	g.Go(func() error {
		for n := range chOut {
			if n.id != "" {
				res[n.id] = n
			}
		}
		return nil
	})

	g.Go(func() error {
		defer close(chIn)
		return loadUsages(gctx, sdb, chIn)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func loadUsages(ctx context.Context, sdb *sql.DB, chIn chan<- usage) error {
	q := `
SELECT t.col__id, coalesce(t.col__parent_id, ''),
       n.col__scientific_name, coalesce(n.col__rank_id, '')
  FROM taxon t
    JOIN name n ON n.col__id = t.col__name_id`
	rows, err := sdb.QueryContext(ctx, q)
	if err != nil {
		return ReadError("taxon", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u usage
		if err = rows.Scan(&u.id, &u.parentID, &u.scientificName, &u.rank); err != nil {
			return ReadError("taxon", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chIn <- u:
		}
	}
	if err = rows.Err(); err != nil {
		return ReadError("taxon", err)
	}
	return nil
}

// sortNodes orders nodes so that parents come before children, siblings
// by name. Nodes with missing parents and nodes inside parent cycles are
// returned separately.
func sortNodes(nodes map[string]*node) (sorted, orphans []*node) {
	children := make(map[string][]*node)
	var roots []*node
	for _, n := range nodes {
		switch {
		case n.parentID == "":
			roots = append(roots, n)
		case nodes[n.parentID] == nil:
			orphans = append(orphans, n)
		default:
			children[n.parentID] = append(children[n.parentID], n)
		}
	}

	byName := func(a, b *node) int {
		return cmp.Or(cmp.Compare(a.name, b.name), cmp.Compare(a.id, b.id))
	}
	slices.SortFunc(roots, byName)
	for _, v := range children {
		slices.SortFunc(v, byName)
	}

	seen := make(map[string]bool, len(nodes))
	queue := roots
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		seen[n.id] = true
		sorted = append(sorted, n)
		queue = append(queue, children[n.id]...)
	}

	// orphan subtrees and cycles are never reached from roots
	for _, n := range nodes {
		if !seen[n.id] && nodes[n.parentID] != nil {
			orphans = append(orphans, n)
		}
	}
	slices.SortFunc(orphans, byName)
	if len(orphans) > 0 {
		slog.Warn("Taxa without reachable parents", "count", len(orphans))
	}
	return sorted, orphans
}
