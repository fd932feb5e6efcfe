package parserpool_test

import (
	"sync"
	"testing"

	"github.com/gnames/gnlib/ent/nomcode"
	"github.com/gnames/gntree/pkg/parserpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	pool := parserpool.NewPool(2)
	defer pool.Close()

	tests := []struct {
		msg, name string
		code      nomcode.Code
		canonical string
	}{
		{"binomial", "Pica pica (Linnaeus, 1758)", nomcode.Zoological, "Pica pica"},
		{"botanical", "Quercus robur L.", nomcode.Botanical, "Quercus robur"},
		{"uninomial", "Aves", nomcode.Zoological, "Aves"},
	}
	for _, v := range tests {
		t.Run(v.msg, func(t *testing.T) {
			res, err := pool.Parse(v.name, v.code)
			require.NoError(t, err)
			assert.True(t, res.Parsed)
			assert.Equal(t, v.canonical, pool.Canonical(v.name, v.code))
		})
	}

	_, err := pool.Parse("Aves", nomcode.Unknown)
	assert.Error(t, err)
}

func TestCanonical(t *testing.T) {
	pool := parserpool.NewPool(1)
	defer pool.Close()

	assert.Equal(t, "Corvus corax",
		pool.Canonical("<i>Corvus corax</i> Linnaeus 1758", nomcode.Zoological))
	assert.Equal(t, "Birds &", pool.Canonical("  Birds  &amp; ", nomcode.Unknown))
}

func TestConcurrent(t *testing.T) {
	pool := parserpool.NewPool(2)
	defer pool.Close()

	var wg sync.WaitGroup
	res := make([]string, 20)
	for i := range res {
		wg.Go(func() {
			code := nomcode.Zoological
			if i%2 == 0 {
				code = nomcode.Botanical
			}
			res[i] = pool.Canonical("Homo sapiens Linnaeus", code)
		})
	}
	wg.Wait()
	for _, v := range res {
		assert.Equal(t, "Homo sapiens", v)
	}
}
