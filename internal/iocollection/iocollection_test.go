package iocollection_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gnames/gn"
	"github.com/gnames/gntree/internal/ioclient"
	"github.com/gnames/gntree/internal/iocollection"
	"github.com/gnames/gntree/pkg/config"
	"github.com/gnames/gntree/pkg/errcode"
	"github.com/gnames/gntree/pkg/parserpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const birds = `{
  "name": " Garden birds ",
  "description": "Birds seen in gardens",
  "logo_url": "https://example.org/logo.png ",
  "collection_items": [
    {"name": "<i>Pica pica</i> (Linnaeus, 1758)", "title": "Magpie",
     "object_type": "TaxonConcept", "object_id": 1051, "annotation": "Noisy"},
    {"name": "<i>Corvus corax</i>", "title": "Corvus corax",
     "object_type": "TaxonConcept", "object_id": 1052}
  ]
}`

func TestCollectionID(t *testing.T) {
	tests := []struct {
		url, id string
		ok      bool
	}{
		{"https://eol.org/collections/42", "42", true},
		{"https://eol.org/collections/42.json", "42", true},
		{"https://eol.org/collections/abc", "", false},
	}
	for _, v := range tests {
		id, ok := iocollection.CollectionID(v.url)
		assert.Equal(t, v.ok, ok, v.url)
		assert.Equal(t, v.id, id, v.url)
	}
}

func TestCollection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			switch r.URL.Path {
			case "/api/42.json":
				assert.Equal(t, "500", q.Get("per_page"))
				assert.Equal(t, "taxa", q.Get("filter"))
				assert.Equal(t, "sort_field", q.Get("sort_by"))
				_, _ = w.Write([]byte(birds))
			case "/api/43.json":
				_, _ = w.Write([]byte("not json"))
			default:
				http.NotFound(w, r)
			}
		}))
	defer srv.Close()

	pool := parserpool.NewPool(1)
	defer pool.Close()
	client := ioclient.New(config.ServicesConfig{
		Timeout:           time.Second,
		RequestsPerSecond: 50,
	})
	src := iocollection.New(client, srv.URL+"/api/", pool)
	ctx := context.Background()

	assert.True(t, src.IsCollectionURL("https://eol.org/collections/42"))
	assert.False(t, src.IsCollectionURL("https://eol.org/pages/42"))

	c, err := src.Collection(ctx, "https://eol.org/collections/42")
	require.NoError(t, err)
	assert.Equal(t, "42", c.ID)
	assert.Equal(t, "Garden birds", c.Title)
	assert.Equal(t, "https://example.org/logo.png", c.LogoURL)
	require.Len(t, c.Items, 2)
	assert.Equal(t, "Pica pica", c.Items[0].Name)
	assert.Equal(t, "Magpie", c.Items[0].Title)
	assert.Equal(t, "Noisy", c.Items[0].Annotation)
	assert.Equal(t, "1051", c.Items[0].ObjectID)
	assert.Equal(t, "Corvus corax", c.Items[1].Name)
	assert.Empty(t, c.Items[1].Title)

	_, err = src.Collection(ctx, "https://eol.org/collections/43")
	gnErr, ok := err.(*gn.Error)
	require.True(t, ok)
	assert.ErrorIs(t, gnErr.Err, iocollection.ErrInvalidJSON)

	_, err = src.Collection(ctx, "https://eol.org/collections/none")
	gnErr, ok = err.(*gn.Error)
	require.True(t, ok)
	assert.Equal(t, errcode.CollectionURLError, gnErr.Code)

	_, err = src.Collection(ctx, "https://eol.org/collections/44")
	assert.Error(t, err)
}
