// Package taxon keeps the tree of taxa consistent. All mutations go through
// an explicit pipeline of named steps: normalize, validate, persist,
// recompute derived state and enqueue follow-up jobs.
package taxon

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gnames/gntree/pkg/jobs"
	"github.com/gnames/gntree/pkg/schema"
)

// Engine runs mutations and queries of taxa.
type Engine struct {
	store    Store
	queue    jobs.Enqueuer
	iconic   *IconicIndex
	pipeline Pipeline
	sweeps   int
}

// Option configures an Engine.
type Option func(*Engine)

// OptQueue sets where follow-up jobs go. Without a queue follow-ups are
// dropped.
func OptQueue(q jobs.Enqueuer) Option {
	return func(e *Engine) {
		e.queue = q
	}
}

// OptIconicTTL makes the iconic index reload after the given period.
func OptIconicTTL(d time.Duration) Option {
	return func(e *Engine) {
		e.iconic.ttl = d
	}
}

// OptSweepPasses sets the maximum number of passes of a duplicates sweep.
func OptSweepPasses(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.sweeps = n
		}
	}
}

// NewEngine creates an Engine on top of a store.
func NewEngine(s Store, opts ...Option) *Engine {
	res := &Engine{
		store:    s,
		iconic:   NewIconicIndex(s, 0),
		pipeline: DefaultPipeline(),
		sweeps:   5,
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Draft holds fields of a new taxon.
type Draft struct {
	Name           string
	Rank           string
	ParentID       *int64
	IsIconic       bool
	WikipediaTitle string
}

// Iconic returns the index of iconic taxa.
func (e *Engine) Iconic() *IconicIndex {
	return e.iconic
}

// Pipeline returns the mutation pipeline of the engine.
func (e *Engine) Pipeline() Pipeline {
	return e.pipeline
}

// Create adds a new taxon to the tree.
func (e *Engine) Create(ctx context.Context, d Draft) (*schema.Taxon, error) {
	t := &schema.Taxon{
		Name:           d.Name,
		Rank:           d.Rank,
		ParentID:       d.ParentID,
		IsIconic:       d.IsIconic,
		WikipediaTitle: d.WikipediaTitle,
	}
	m := &Mutation{Kind: KindCreate, Taxon: t}
	err := e.store.InTx(ctx, func(tx Store) error {
		if t.ParentID != nil {
			if err := tx.LockTaxa(ctx, *t.ParentID); err != nil {
				return wrapStore("lock parent", err)
			}
		}
		return e.pipeline.Run(ctx, tx, m)
	})
	if err != nil {
		return nil, err
	}
	if t.IsIconic {
		e.iconic.Invalidate()
	}
	e.followup(ctx, m.Followups)
	slog.Info("Created taxon", "id", t.ID, "name", t.Name, "rank", t.Rank)
	return t, nil
}

// Move re-parents a taxon with its subtree. Nil parentID makes the taxon a
// root.
func (e *Engine) Move(ctx context.Context, id int64, parentID *int64) (*schema.Taxon, error) {
	var m *Mutation
	err := e.store.InTx(ctx, func(tx Store) error {
		var err error
		m, err = e.move(ctx, tx, id, parentID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.followup(ctx, m.Followups)
	slog.Info("Moved taxon", "id", id, "ancestry", m.Taxon.Ancestry)
	return m.Taxon, nil
}

func (e *Engine) move(
	ctx context.Context,
	tx Store,
	id int64,
	parentID *int64,
	allowDuplicate bool,
) (*Mutation, error) {
	ids := []int64{id}
	if parentID != nil {
		ids = append(ids, *parentID)
	}
	if err := tx.LockTaxa(ctx, ids...); err != nil {
		return nil, wrapStore("lock taxa", err)
	}
	before, err := e.load(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	t := *before
	t.ParentID = parentID
	m := &Mutation{
		Kind:               KindMove,
		Taxon:              &t,
		Before:             before,
		AllowDuplicateName: allowDuplicate,
	}
	if err = e.pipeline.Run(ctx, tx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// SetIconic flags or unflags a taxon as iconic and propagates the change
// to its subtree.
func (e *Engine) SetIconic(ctx context.Context, id int64, iconic bool) (*schema.Taxon, error) {
	var m *Mutation
	err := e.store.InTx(ctx, func(tx Store) error {
		if err := tx.LockTaxa(ctx, id); err != nil {
			return wrapStore("lock taxon", err)
		}
		before, err := e.load(ctx, tx, id)
		if err != nil {
			return err
		}
		t := *before
		t.IsIconic = iconic
		m = &Mutation{Kind: KindIconic, Taxon: &t, Before: before}
		return e.pipeline.Run(ctx, tx, m)
	})
	if err != nil {
		return nil, err
	}
	if m.Before.IsIconic != iconic {
		e.iconic.Invalidate()
	}
	e.followup(ctx, m.Followups)
	slog.Info("Changed iconic flag", "id", id, "iconic", iconic,
		"changed", m.IconicChanged)
	return m.Taxon, nil
}

// ReconcileObservations copies iconic taxa of a taxon and its subtree to
// their observations.
func (e *Engine) ReconcileObservations(ctx context.Context, id int64) (int64, error) {
	t, err := e.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	n, err := e.store.ReconcileObservations(ctx, t)
	if err != nil {
		return 0, wrapStore("reconcile observations", err)
	}
	slog.Debug("Reconciled observations", "taxon", id, "updated", n)
	return n, nil
}

// Handler returns a job handler that reconciles observations of a taxon
// subtree.
func (e *Engine) Handler() jobs.Handler {
	return jobs.NewHandler(jobs.ObservationIconic,
		func(ctx context.Context, id int64) error {
			_, err := e.ReconcileObservations(ctx, id)
			if IsNotFound(err) {
				return nil
			}
			return err
		})
}

// Get returns a taxon by ID.
func (e *Engine) Get(ctx context.Context, id int64) (*schema.Taxon, error) {
	return e.load(ctx, e.store, id)
}

// Ancestors returns ancestors of a taxon, root first.
func (e *Engine) Ancestors(ctx context.Context, id int64) ([]schema.Taxon, error) {
	t, err := e.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p := Path(t)
	taxa, err := e.store.Taxa(ctx, p)
	if err != nil {
		return nil, wrapStore("load ancestors", err)
	}
	return orderAncestors(p, taxa), nil
}

// Descendants returns the subtree of a taxon sorted by ancestry.
func (e *Engine) Descendants(ctx context.Context, id int64) ([]schema.Taxon, error) {
	t, err := e.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := e.store.Descendants(ctx, t)
	if err != nil {
		return nil, wrapStore("load descendants", err)
	}
	return SortByAncestry(res), nil
}

// FindChild returns a taxon the draft would duplicate: one with the same
// normalized name under the same parent. Returns nil if there is none.
func (e *Engine) FindChild(ctx context.Context, d Draft) (*schema.Taxon, error) {
	t := &schema.Taxon{Name: d.Name, Rank: d.Rank}
	Normalize(t)
	res, err := e.store.ChildByName(ctx, d.ParentID, t.Name)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStore("find taxon", err)
	}
	return res, nil
}

// Children returns immediate children of a taxon.
func (e *Engine) Children(ctx context.Context, id int64) ([]schema.Taxon, error) {
	if _, err := e.Get(ctx, id); err != nil {
		return nil, err
	}
	res, err := e.store.Children(ctx, id)
	if err != nil {
		return nil, wrapStore("load children", err)
	}
	return res, nil
}

func (e *Engine) load(ctx context.Context, s Store, id int64) (*schema.Taxon, error) {
	t, err := s.Taxon(ctx, id)
	switch {
	case IsNotFound(err):
		return nil, NotFoundError(id)
	case err != nil:
		return nil, wrapStore("load taxon", err)
	}
	return t, nil
}

// followup submits jobs after a commit. Failures are logged, the committed
// mutation stays.
func (e *Engine) followup(ctx context.Context, fs []Followup) {
	if e.queue == nil {
		return
	}
	for _, v := range fs {
		added, err := e.queue.Enqueue(ctx, v.JobType, v.EntityID)
		if err != nil {
			slog.Warn("Cannot enqueue job",
				"type", v.JobType, "entity", v.EntityID, "error", err)
			continue
		}
		slog.Debug("Enqueued job",
			"type", v.JobType, "entity", v.EntityID, "added", added)
	}
}
