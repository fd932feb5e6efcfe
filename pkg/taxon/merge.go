package taxon

import (
	"context"
	"log/slog"

	"github.com/gnames/gntree/pkg/schema"
)

// MergeResult describes what a merge changed.
type MergeResult struct {
	Keeper       *schema.Taxon    `json:"keeper"`
	RejectID     int64            `json:"rejectId"`
	Children     int              `json:"children"`
	Repointed    map[string]int64 `json:"repointed"`
	NamesDeleted int              `json:"namesDeleted"`
	NamesDemoted int              `json:"namesDemoted"`
	Observations int64            `json:"observations"`
}

// Merge moves everything that belongs to reject into keeper and deletes
// reject. References are repointed, children are re-parented under keeper
// and reject's names become keeper's synonyms. The merge is a single
// transaction: any failure leaves both taxa untouched.
func (e *Engine) Merge(ctx context.Context, keeperID, rejectID int64) (*MergeResult, error) {
	if keeperID == rejectID {
		return nil, SameMergeError(keeperID)
	}

	var res *MergeResult
	var rejectIconic bool
	err := e.store.InTx(ctx, func(tx Store) error {
		res = &MergeResult{RejectID: rejectID, Repointed: make(map[string]int64)}

		if err := tx.LockTaxa(ctx, keeperID, rejectID); err != nil {
			return wrapStore("lock taxa", err)
		}
		keeper, err := e.load(ctx, tx, keeperID)
		if err != nil {
			return err
		}
		reject, err := e.load(ctx, tx, rejectID)
		if err != nil {
			return err
		}
		rejectIconic = reject.IsIconic
		if IsDescendant(keeper, reject.ID) {
			verr := &ValidationError{}
			verr.Add("keeper", "can't be a descendant of the merged taxon")
			return verr
		}

		rejectNames, err := tx.TaxonNames(ctx, reject.ID)
		if err != nil {
			return wrapStore("load taxon names", err)
		}

		for _, ref := range schema.TaxonReferences() {
			n, err := tx.RepointReferences(ctx, ref, reject.ID, keeper.ID)
			if err != nil {
				return wrapStore("repoint "+ref.Table, err)
			}
			if n > 0 {
				res.Repointed[ref.Table+"."+ref.Column] = n
			}
		}

		children, err := tx.Children(ctx, reject.ID)
		if err != nil {
			return wrapStore("load children", err)
		}
		parentID := keeper.ID
		for _, v := range children {
			// observations of the subtree are reconciled below
			if _, err := e.move(ctx, tx, v.ID, &parentID, true); err != nil {
				return err
			}
			res.Children++
		}

		if err = e.mergeNames(ctx, tx, keeper, rejectNames, res); err != nil {
			return err
		}

		if err = tx.Delete(ctx, reject.ID); err != nil {
			return wrapStore("delete taxon", err)
		}

		// listed taxa moved from reject carry reject's ancestry
		if _, err = tx.UpdateListedTaxa(ctx, keeper); err != nil {
			return wrapStore("update listed taxa", err)
		}

		// observations moved from reject keep reject's iconic taxon
		res.Observations, err = tx.ReconcileObservations(ctx, keeper)
		if err != nil {
			return wrapStore("reconcile observations", err)
		}

		res.Keeper, err = e.load(ctx, tx, keeper.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if rejectIconic {
		e.iconic.Invalidate()
	}
	slog.Info("Merged taxa",
		"keeper", keeperID,
		"reject", rejectID,
		"children", res.Children,
		"names_deleted", res.NamesDeleted,
	)
	return res, nil
}

// mergeNames drops names of reject that keeper already has and demotes
// valid scientific names of reject to synonyms.
func (e *Engine) mergeNames(
	ctx context.Context,
	tx Store,
	keeper *schema.Taxon,
	rejectNames []schema.TaxonName,
	res *MergeResult,
) error {
	moved := make(map[int64]bool, len(rejectNames))
	for _, v := range rejectNames {
		moved[v.ID] = true
	}

	names, err := tx.TaxonNames(ctx, keeper.ID)
	if err != nil {
		return wrapStore("load taxon names", err)
	}
	own := make(map[string]bool)
	for _, v := range names {
		if !moved[v.ID] {
			own[v.Lexicon+"|"+v.Name] = true
		}
	}

	for _, v := range names {
		if !moved[v.ID] {
			continue
		}
		key := v.Lexicon + "|" + v.Name
		if own[key] {
			if err = tx.DeleteTaxonName(ctx, v.ID); err != nil {
				return wrapStore("delete taxon name", err)
			}
			res.NamesDeleted++
			continue
		}
		own[key] = true
		if v.Lexicon == schema.LexiconScientific && v.IsValid {
			v.IsValid = false
			if err = tx.SaveTaxonName(ctx, &v); err != nil {
				return wrapStore("save taxon name", err)
			}
			res.NamesDemoted++
		}
	}
	return nil
}
