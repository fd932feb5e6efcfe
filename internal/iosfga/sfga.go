package iosfga

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/gnames/gntree/pkg/config"
	"github.com/sfborg/sflib"
	_ "modernc.org/sqlite"
)

// prepareCacheDir returns an empty ~/.cache/gntree/sfga directory. The
// cache keeps the last imported archive for inspection.
func prepareCacheDir(homeDir string) (string, error) {
	dir := filepath.Join(config.CacheDir(homeDir), "sfga")
	if err := os.RemoveAll(dir); err != nil {
		return "", CacheError(dir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", CacheError(dir, err)
	}
	return dir, nil
}

// fetchSFGA downloads or copies an SFGA archive (sql, sqlite, zipped or
// not) into the cache and returns the path of the SQLite file.
func fetchSFGA(source, cacheDir string) (string, error) {
	arc := sflib.NewSfga()
	if err := arc.Fetch(source, cacheDir); err != nil {
		return "", FetchError(source, err)
	}
	res := arc.DbPath()
	if res == "" {
		return "", FetchError(source, os.ErrNotExist)
	}
	return res, nil
}

func openSFGA(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, OpenError(path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, OpenError(path, err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, OpenError(path, err)
	}
	return db, nil
}
