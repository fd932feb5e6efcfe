package ioclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gnames/gn"
	"github.com/gnames/gntree/internal/ioclient"
	"github.com/gnames/gntree/pkg/config"
	"github.com/gnames/gntree/pkg/errcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/ok":
				assert.Equal(t, "Aves", r.URL.Query().Get("titles"))
				assert.Contains(t, r.Header.Get("User-Agent"), "gntree/")
				_, _ = w.Write([]byte(`{"ok":true}`))
			case "/slow":
				select {
				case <-r.Context().Done():
				case <-time.After(time.Second):
				}
			default:
				http.NotFound(w, r)
			}
		}))
	defer srv.Close()

	c := ioclient.New(config.ServicesConfig{
		Timeout:           100 * time.Millisecond,
		RequestsPerSecond: 100,
	})
	ctx := context.Background()

	body, err := c.Get(ctx, srv.URL+"/ok", url.Values{"titles": {"Aves"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))

	_, err = c.Get(ctx, srv.URL+"/missing", nil)
	require.Error(t, err)
	gnErr, ok := err.(*gn.Error)
	require.True(t, ok)
	assert.Equal(t, errcode.ServiceResponseError, gnErr.Code)
	assert.ErrorIs(t, gnErr.Err, ioclient.ErrStatus)

	_, err = c.Get(ctx, srv.URL+"/slow", nil)
	require.Error(t, err)
	gnErr, ok = err.(*gn.Error)
	require.True(t, ok)
	assert.Equal(t, errcode.ServiceRequestError, gnErr.Code)
	assert.ErrorIs(t, gnErr.Err, context.DeadlineExceeded)
}

func TestGetRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))
	defer srv.Close()

	c := ioclient.New(config.ServicesConfig{RequestsPerSecond: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err := c.Get(ctx, srv.URL, nil)
	require.NoError(t, err)
	_, err = c.Get(ctx, srv.URL, nil)
	assert.Error(t, err, "second request waits longer than the context")
}
