// Package iosummary reads plain text introductions of Wikipedia pages
// through the MediaWiki API.
package iosummary

import (
	"context"
	"net/url"

	"github.com/gnames/gntree/internal/ioclient"
	"github.com/gnames/gntree/pkg/summary"
	"github.com/tidwall/gjson"
)

type wikipedia struct {
	client   *ioclient.Client
	endpoint string
}

// New creates a summary.Fetcher for a MediaWiki API endpoint such as
// https://en.wikipedia.org/w/api.php.
func New(client *ioclient.Client, endpoint string) summary.Fetcher {
	return &wikipedia{client: client, endpoint: endpoint}
}

// Fetch returns the introduction of a page, following redirects. Missing
// pages give an empty string.
func (w *wikipedia) Fetch(ctx context.Context, title string) (string, error) {
	params := url.Values{
		"action":        {"query"},
		"format":        {"json"},
		"formatversion": {"2"},
		"prop":          {"extracts"},
		"exintro":       {"1"},
		"explaintext":   {"1"},
		"redirects":     {"1"},
		"titles":        {title},
	}
	body, err := w.client.Get(ctx, w.endpoint, params)
	if err != nil {
		return "", err
	}
	if !gjson.ValidBytes(body) {
		return "", InvalidResponseError(title)
	}
	page := gjson.GetBytes(body, "query.pages.0")
	if !page.Exists() || page.Get("missing").Bool() || page.Get("invalid").Bool() {
		return "", nil
	}
	return page.Get("extract").String(), nil
}
