package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// Searcher looks up reference candidates with GET {path}?search={query},
// where path is the collection registered for the field, e.g.
// new_duty_station -> /duty_stations.
type Searcher struct {
	client *Client
	paths  map[string]string
	param  string
}

// Searcher returns a Searcher for the given field to collection mapping.
func (c *Client) Searcher(paths map[string]string) *Searcher {
	cloned := make(map[string]string, len(paths))
	for field, path := range paths {
		cloned[field] = "/" + strings.Trim(path, "/")
	}
	return &Searcher{client: c, paths: cloned, param: "search"}
}

// Fields reports the fields the searcher can serve.
func (s *Searcher) Fields() []string {
	out := make([]string, 0, len(s.paths))
	for field := range s.paths {
		out = append(out, field)
	}
	return out
}

// Search returns the matching records. Unknown fields wrap
// wizard.ErrNotFound.
func (s *Searcher) Search(ctx context.Context, field, query string) ([]wizard.Record, error) {
	path, ok := s.paths[field]
	if !ok {
		return nil, fmt.Errorf("client: search %q: %w", field, wizard.ErrNotFound)
	}
	target := path + "?" + url.Values{s.param: {strings.TrimSpace(query)}}.Encode()

	var results []wizard.Record
	status, err := s.client.do(ctx, http.MethodGet, target, nil, &results)
	if err != nil {
		return nil, fmt.Errorf("client: search %s: %w", path, err)
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	return results, nil
}
