package iosummary_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gnames/gn"
	"github.com/gnames/gntree/internal/ioclient"
	"github.com/gnames/gntree/internal/iosummary"
	"github.com/gnames/gntree/pkg/config"
	"github.com/gnames/gntree/pkg/errcode"
	"github.com/gnames/gntree/pkg/jobs"
	"github.com/gnames/gntree/pkg/schema"
	"github.com/gnames/gntree/pkg/summary"
	"github.com/gnames/gntree/pkg/taxon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const magpie = `{"batchcomplete":true,"query":{
"redirects":[{"from":"Pica","to":"Magpie"}],
"pages":[{"pageid":1,"ns":0,"title":"Magpie",
"extract":"Magpies[1] are birds of the Corvidae family."}]}}`

const missing = `{"query":{"pages":[{"ns":0,"title":"Nopage","missing":true}]}}`

func server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			assert.Equal(t, "extracts", q.Get("prop"))
			switch q.Get("titles") {
			case "Pica":
				_, _ = w.Write([]byte(magpie))
			case "Nopage":
				_, _ = w.Write([]byte(missing))
			case "Broken":
				_, _ = w.Write([]byte("<html>"))
			default:
				w.WriteHeader(http.StatusServiceUnavailable)
			}
		}))
	t.Cleanup(srv.Close)
	return srv
}

func newFetcher(srv *httptest.Server) summary.Fetcher {
	c := ioclient.New(config.ServicesConfig{
		Timeout:           time.Second,
		RequestsPerSecond: 50,
	})
	return iosummary.New(c, srv.URL+"/w/api.php")
}

func TestFetch(t *testing.T) {
	ctx := context.Background()
	f := newFetcher(server(t))

	res, err := f.Fetch(ctx, "Pica")
	require.NoError(t, err)
	assert.Equal(t, "Magpies[1] are birds of the Corvidae family.", res)

	res, err = f.Fetch(ctx, "Nopage")
	require.NoError(t, err)
	assert.Empty(t, res)

	_, err = f.Fetch(ctx, "Broken")
	gnErr, ok := err.(*gn.Error)
	require.True(t, ok)
	assert.Equal(t, errcode.ServiceResponseError, gnErr.Code)
	assert.ErrorIs(t, gnErr.Err, iosummary.ErrInvalidJSON)

	_, err = f.Fetch(ctx, "Down")
	assert.Error(t, err)
}

func TestSummaryJob(t *testing.T) {
	ctx := context.Background()
	store := taxon.NewMemStore()
	queue := jobs.NewMemQueue(1)
	svc := summary.New(store, newFetcher(server(t)), queue)

	pica := schema.Taxon{Name: "Pica"}
	down := schema.Taxon{Name: "Down"}
	require.NoError(t, store.Insert(ctx, &pica))
	require.NoError(t, store.Insert(ctx, &down))

	h := svc.Handler()
	require.NoError(t, h.Run(ctx, &schema.Job{EntityID: pica.ID}))
	require.NoError(t, h.Run(ctx, &schema.Job{EntityID: down.ID}))

	text, err := svc.Summary(ctx, pica.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "Magpies are birds of the Corvidae family.", text)

	stored, err := store.Taxon(ctx, down.ID)
	require.NoError(t, err)
	_, ok := summary.ParseSentinel(stored.WikipediaSummary)
	assert.True(t, ok)
}
