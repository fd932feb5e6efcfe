// Package iocollection reads curated collections of taxa from an external
// collections API. Collections seed guides with entries.
package iocollection

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gnames/gnlib/ent/nomcode"
	"github.com/gnames/gntree/internal/ioclient"
	"github.com/gnames/gntree/pkg/guide"
	"github.com/gnames/gntree/pkg/parserpool"
	"github.com/tidwall/gjson"
)

const perPage = 500

var (
	idRe         = regexp.MustCompile(`/(\d+)(\.\w+)?$`)
	collectionRe = regexp.MustCompile(`/collections/\d+(\.\w+)?$`)
)

type source struct {
	client   *ioclient.Client
	endpoint string
	parser   parserpool.Pool
	now      func() time.Time
}

// New creates a guide.CollectionSource. Endpoint is the base URL of the
// API, a collection is read from "<endpoint>/<id>.json". Item names are
// reduced to canonical forms with the parser pool.
func New(
	client *ioclient.Client,
	endpoint string,
	parser parserpool.Pool,
) guide.CollectionSource {
	return &source{
		client:   client,
		endpoint: strings.TrimRight(endpoint, "/"),
		parser:   parser,
		now:      time.Now,
	}
}

// CollectionID extracts the numeric ID from a collection URL.
func CollectionID(u string) (string, bool) {
	m := idRe.FindStringSubmatch(strings.TrimSpace(u))
	if m == nil {
		return "", false
	}
	return m[1], true
}

func (s *source) IsCollectionURL(u string) bool {
	return collectionRe.MatchString(strings.TrimSpace(u))
}

func (s *source) Collection(ctx context.Context, u string) (*guide.Collection, error) {
	id, ok := CollectionID(u)
	if !ok {
		return nil, URLError(u)
	}

	params := url.Values{
		"page":     {"1"},
		"per_page": {strconv.Itoa(perPage)},
		"filter":   {"taxa"},
		"sort_by":  {"sort_field"},
		"cb":       {strconv.FormatInt(s.now().Unix(), 10)},
	}
	body, err := s.client.Get(ctx, s.endpoint+"/"+id+".json", params)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, InvalidResponseError(u)
	}

	doc := gjson.ParseBytes(body)
	res := &guide.Collection{
		ID:          id,
		Title:       strings.TrimSpace(doc.Get("name").String()),
		Description: doc.Get("description").String(),
		LogoURL:     strings.TrimSpace(doc.Get("logo_url").String()),
	}
	doc.Get("collection_items").ForEach(func(_, v gjson.Result) bool {
		res.Items = append(res.Items, s.item(v))
		return true
	})
	return res, nil
}

func (s *source) item(v gjson.Result) guide.CollectionItem {
	name := v.Get("name").String()
	if name == "" {
		name = v.Get("title").String()
	}
	res := guide.CollectionItem{
		Title:      parserpool.Clean(v.Get("title").String()),
		Annotation: v.Get("annotation").String(),
		ObjectID:   v.Get("object_id").String(),
	}
	if name != "" {
		res.Name = s.parser.Canonical(name, nomcode.Zoological)
	}
	if res.Title == res.Name {
		res.Title = ""
	}
	return res
}
