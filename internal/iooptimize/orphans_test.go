package iooptimize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrphanRuleSQL(t *testing.T) {
	r := orphanRule{table: "taxon_names", column: "taxon_id", parent: "taxa"}
	assert.Equal(t, `DELETE FROM taxon_names WHERE taxon_id IS NOT NULL AND NOT EXISTS (
	SELECT 1 FROM taxa p WHERE p.id = taxon_names.taxon_id
)`, r.sql())

	r = orphanRule{table: "guides", column: "taxon_id", parent: "taxa", detach: true}
	assert.Contains(t, r.sql(), "UPDATE guides SET taxon_id = NULL WHERE taxon_id IS NOT NULL")
}

func TestOrphanRulesOrder(t *testing.T) {
	pos := make(map[string]int)
	for i, v := range orphanRules {
		if !v.detach {
			pos[v.table] = i
		}
	}
	assert.Less(t, pos["guide_taxa"], pos["guide_photos"])
}
