package rank_test

import (
	"testing"

	"github.com/gnames/gntree/pkg/rank"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		msg   string
		input string
		res   string
		ok    bool
	}{
		{"canonical", "genus", "genus", true},
		{"case", "Family", "family", true},
		{"punctuation", " sub-class ", "subclass", true},
		{"dots", "Sp.", "species", true},
		{"division", "division", "phylum", true},
		{"ssp", "ssp", "subspecies", true},
		{"subsp", "subsp.", "subspecies", true},
		{"trinomial", "Trinomial", "subspecies", true},
		{"infraorder", "infraorder", "suborder", true},
		{"var", "var.", "variety", true},
		{"gen", "gen", "genus", true},
		{"unranked", "unranked", "", false},
		{"unranked case", "UNRANKED", "", false},
		{"empty", "", "", false},
		{"only punctuation", " - ", "", false},
		{"unknown passes through", "Cohort", "cohort", true},
		{"root", "root", "root", true},
	}

	for _, v := range tests {
		t.Run(v.msg, func(t *testing.T) {
			res, ok := rank.Normalize(v.input)
			assert.Equal(t, v.res, res)
			assert.Equal(t, v.ok, ok)
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := append(rank.Ranks(),
		"ssp", "division", "Sub-Family", "zone", "var.", "infraspecies")
	for _, v := range inputs {
		once, ok := rank.Normalize(v)
		if !ok {
			continue
		}
		twice, ok2 := rank.Normalize(once)
		assert.True(t, ok2, v)
		assert.Equal(t, once, twice, v)
	}

	for _, v := range rank.Ranks() {
		res, ok := rank.Normalize(v)
		assert.True(t, ok)
		assert.Equal(t, v, res)
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		rank  string
		level int
		ok    bool
	}{
		{"root", 100, true},
		{"kingdom", 70, true},
		{"phylum", 60, true},
		{"division", 60, true},
		{"subphylum", 57, true},
		{"superclass", 53, true},
		{"class", 50, true},
		{"subclass", 47, true},
		{"superorder", 43, true},
		{"order", 40, true},
		{"suborder", 37, true},
		{"superfamily", 33, true},
		{"family", 30, true},
		{"subfamily", 27, true},
		{"supertribe", 26, true},
		{"tribe", 25, true},
		{"subtribe", 24, true},
		{"genus", 20, true},
		{"species", 10, true},
		{"ssp", 5, true},
		{"variety", 5, true},
		{"form", 5, true},
		{"unranked", 0, false},
		{"cohort", 0, false},
		{"", 0, false},
	}

	for _, v := range tests {
		lvl, ok := rank.Level(v.rank)
		assert.Equal(t, v.level, lvl, v.rank)
		assert.Equal(t, v.ok, ok, v.rank)
	}
}

func TestLevelsDescend(t *testing.T) {
	prev := rank.Root + 1
	for _, v := range rank.Ranks() {
		lvl, ok := rank.Level(v)
		assert.True(t, ok, v)
		assert.LessOrEqual(t, lvl, prev, v)
		prev = lvl
	}
}

func TestRemoveFromName(t *testing.T) {
	tests := []struct {
		msg  string
		name string
		res  string
	}{
		{"variety", "Rosa var. alba", "Rosa alba"},
		{"subspecies", "Parus major ssp. minor", "Parus major minor"},
		{"binomial", "Homo sapiens", "Homo sapiens"},
		{"single word", "Aves", "Aves"},
		{"single rank word", "Family", "Family"},
		{"stray dot", "Pinus . alba", "Pinus alba"},
	}

	for _, v := range tests {
		assert.Equal(t, v.res, rank.RemoveFromName(v.name), v.msg)
	}
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Homo sapiens", rank.Capitalize("homo SAPIENS"))
	assert.Equal(t, "Aves", rank.Capitalize("aves"))
	assert.Equal(t, "Élan", rank.Capitalize("élan"))
	assert.Equal(t, "", rank.Capitalize(""))
}

func TestPreferred(t *testing.T) {
	pref := rank.Preferred()
	assert.Len(t, pref, 10)
	for _, v := range pref {
		assert.True(t, rank.IsCanonical(v), v)
	}
	pref[0] = "changed"
	assert.Equal(t, "kingdom", rank.Preferred()[0])
}
