package iobundle_test

import (
	"archive/zip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gnames/gntree/internal/iobundle"
	"github.com/gnames/gntree/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var png = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

func server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/ok.png":
				_, _ = w.Write(png)
			case "/page.jpg":
				_, _ = w.Write([]byte("<html><body>not found</body></html>"))
			case "/slow.png":
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			default:
				http.NotFound(w, r)
			}
		}))
	t.Cleanup(srv.Close)
	return srv
}

func readZip(t *testing.T, path string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	res := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		res[f.Name] = string(data)
	}
	return res
}

func TestBuild(t *testing.T) {
	srv := server(t)
	tmp := t.TempDir()
	taxonID := int64(42)

	g := &schema.Guide{
		ID:          7,
		Title:       "Birds of Zürich",
		Description: "Common birds",
		GuideTaxa: []schema.GuideTaxon{
			{
				ID: 1, Position: 1, Name: "Pica pica", DisplayName: "Magpie",
				TaxonID: &taxonID,
				Photos: []schema.GuidePhoto{
					{
						ID: 1, Kind: schema.PhotoKind, Attribution: "(c) someone",
						ThumbURL:  srv.URL + "/ok.png",
						SmallURL:  srv.URL + "/page.jpg",
						MediumURL: srv.URL + "/missing.jpg",
					},
					{ID: 2, Kind: schema.RangeKind, ThumbURL: srv.URL + "/slow.png"},
				},
			},
			{ID: 2, Position: 2, Name: "Unknown bird"},
		},
	}

	b := iobundle.New(
		iobundle.OptTempDir(tmp),
		iobundle.OptTimeout(200*time.Millisecond),
		iobundle.OptConcurrency(2),
	)
	archive, workDir, err := b.Build(context.Background(), g)
	require.NoError(t, err)
	defer os.RemoveAll(workDir)

	assert.Equal(t, "birds-of-zurich.ngz", filepath.Base(archive))
	assert.True(t, strings.HasPrefix(filepath.Base(workDir), "birds-of-zurich-"))
	assert.Equal(t, tmp, filepath.Dir(workDir))

	files := readZip(t, archive)
	var names []string
	for k := range files {
		names = append(names, k)
	}
	slices.Sort(names)
	assert.Equal(t, []string{"7.xml", "files/photo-1-thumb.png"}, names)

	doc := files["7.xml"]
	assert.Contains(t, doc, "<dc:title>Birds of Zürich</dc:title>")
	assert.Contains(t, doc, `<href type="local" size="thumb">files/photo-1-thumb.png</href>`)
	assert.Contains(t, doc, `<href type="remote" size="small">`+srv.URL+`/page.jpg</href>`)
	assert.NotContains(t, doc, `files/photo-1-small.jpg`)
	assert.Contains(t, doc, "<GuideRange")
	assert.Less(t, strings.Index(doc, "Pica pica"), strings.Index(doc, "Unknown bird"))
}

func TestBuildCancelled(t *testing.T) {
	srv := server(t)
	g := &schema.Guide{
		ID:    8,
		Title: "Slow",
		GuideTaxa: []schema.GuideTaxon{{
			ID: 1, Position: 1, Name: "Pica",
			Photos: []schema.GuidePhoto{{ID: 3, ThumbURL: srv.URL + "/slow.png"}},
		}},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := iobundle.New(iobundle.OptTempDir(t.TempDir()))
	_, _, err := b.Build(ctx, g)
	assert.ErrorIs(t, err, context.Canceled)
}
