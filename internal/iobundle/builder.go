// Package iobundle builds downloadable guide bundles: a zip archive with
// an XML description of the guide and copies of its media.
package iobundle

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gnames/gnfmt"
	"github.com/gnames/gntree/pkg/guide"
	"github.com/gnames/gntree/pkg/schema"
	"golang.org/x/sync/errgroup"
)

// assetDir is the directory of media files inside a bundle.
const assetDir = "files"

type builder struct {
	client      *http.Client
	concurrency int
	timeout     time.Duration
	tempDir     string
	now         func() time.Time
}

// Option configures the builder.
type Option func(*builder)

// OptConcurrency limits simultaneous downloads of one entry.
func OptConcurrency(i int) Option {
	return func(b *builder) {
		if i > 0 {
			b.concurrency = i
		}
	}
}

// OptTimeout limits one download.
func OptTimeout(d time.Duration) Option {
	return func(b *builder) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// OptHTTPClient replaces the HTTP client used for downloads.
func OptHTTPClient(c *http.Client) Option {
	return func(b *builder) {
		if c != nil {
			b.client = c
		}
	}
}

// OptTempDir sets where work directories are created.
func OptTempDir(dir string) Option {
	return func(b *builder) {
		if dir != "" {
			b.tempDir = dir
		}
	}
}

// New creates a bundle builder.
func New(opts ...Option) guide.Builder {
	res := &builder{
		client:      http.DefaultClient,
		concurrency: 4,
		timeout:     30 * time.Second,
		tempDir:     os.TempDir(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Build expects entries ordered by position with their media loaded.
func (b *builder) Build(
	ctx context.Context,
	g *schema.Guide,
) (string, string, error) {
	start := time.Now()
	basename := guide.Parameterize(g.Title)
	workDir := filepath.Join(b.tempDir,
		fmt.Sprintf("%s-%d", basename, b.now().Unix()))
	assets := filepath.Join(workDir, assetDir)
	if err := os.MkdirAll(assets, 0755); err != nil {
		return "", "", WorkDirError(workDir, err)
	}

	files := make(localFiles)
	for _, gt := range g.GuideTaxa {
		if err := b.fetchEntry(ctx, gt, assets, files); err != nil {
			return "", workDir, err
		}
	}

	xmlName := fmt.Sprintf("%d.xml", g.ID)
	f, err := os.Create(filepath.Join(workDir, xmlName))
	if err != nil {
		return "", workDir, DocumentError(g.ID, err)
	}
	err = newDocument(g, files).write(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", workDir, DocumentError(g.ID, err)
	}

	archive := filepath.Join(workDir, basename+".ngz")
	size, err := zipDir(archive, workDir, xmlName, assetDir)
	if err != nil {
		return "", workDir, ArchiveError(archive, err)
	}

	slog.Info("Guide bundle built",
		"guide", g.ID,
		"entries", len(g.GuideTaxa),
		"assets", len(files),
		"size", humanize.Bytes(uint64(size)),
		"duration", gnfmt.TimeString(time.Since(start).Seconds()),
	)
	return archive, workDir, nil
}

// fetchEntry downloads all media of one entry, one task per asset and
// size. Failed downloads are logged and skipped.
func (b *builder) fetchEntry(
	ctx context.Context,
	gt schema.GuideTaxon,
	dir string,
	files localFiles,
) error {
	var mu sync.Mutex
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(b.concurrency)

	for _, p := range gt.Photos {
		for _, size := range guide.ImageSizes {
			url := guide.MediaURL(p, size)
			if url == "" {
				continue
			}
			fname := guide.AssetFilename(p, size)
			eg.Go(func() error {
				err := b.fetch(ctx, url, filepath.Join(dir, fname))
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					slog.Warn("Cannot fetch guide asset",
						"entry", gt.ID, "url", url, "error", err)
					return nil
				}
				mu.Lock()
				files[fname] = true
				mu.Unlock()
				return nil
			})
		}
	}
	return eg.Wait()
}

func (b *builder) fetch(ctx context.Context, url, path string) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	_, err = io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = checkImage(path)
	}
	if err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

func checkImage(path string) error {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(mt.String(), "image/") {
		return fmt.Errorf("not an image: %s", mt.String())
	}
	return nil
}

// zipDir packs the listed files and directories of root into archive.
func zipDir(archive, root string, names ...string) (int64, error) {
	out, err := os.Create(archive)
	if err != nil {
		return 0, err
	}
	zw := zip.NewWriter(out)

	for _, name := range names {
		err = filepath.WalkDir(filepath.Join(root, name),
			func(path string, d fs.DirEntry, err error) error {
				if err != nil || d.IsDir() {
					return err
				}
				return addFile(zw, root, path)
			})
		if err != nil {
			zw.Close()
			out.Close()
			return 0, err
		}
	}

	if err = zw.Close(); err != nil {
		out.Close()
		return 0, err
	}
	info, err := out.Stat()
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func addFile(zw *zip.Writer, root, path string) error {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return err
	}
	w, err := zw.Create(filepath.ToSlash(rel))
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
