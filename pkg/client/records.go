package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// RecordClient reads and writes one resource collection, e.g. "/orders".
type RecordClient struct {
	client *Client
	path   string
}

// Records returns a RecordClient for the collection at path.
func (c *Client) Records(path string) *RecordClient {
	return &RecordClient{client: c, path: "/" + strings.Trim(path, "/")}
}

// LoadExisting implements wizard.Loader with GET {path}/{id}.
func (r *RecordClient) LoadExisting(ctx context.Context, id string) (wizard.Record, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("client: load %s: %w", r.path, wizard.ErrNotFound)
	}
	var record wizard.Record
	status, err := r.client.do(ctx, http.MethodGet, r.itemPath(id), nil, &record)
	if err != nil {
		return nil, fmt.Errorf("client: load %s/%s: %w", r.path, id, err)
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("client: load %s/%s: %w", r.path, id, wizard.ErrNotFound)
	}
	if record == nil {
		record = wizard.Record{}
	}
	return record, nil
}

// Save creates the record with POST {path}, or replaces it with PUT
// {path}/{existingID} when existingID is set. The stored record returned by
// the service, if any, is decoded into the result.
func (r *RecordClient) Save(ctx context.Context, existingID string, record wizard.Record) (wizard.Record, error) {
	method, target := http.MethodPost, r.path
	if id := strings.TrimSpace(existingID); id != "" {
		method, target = http.MethodPut, r.itemPath(id)
	}

	var saved wizard.Record
	status, err := r.client.do(ctx, method, target, record, &saved)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, &wizard.SubmissionError{Status: status, Err: wizard.ErrNotFound}
	}
	return saved, nil
}

// Submitter adapts Save to wizard.Submitter for a fixed existing id.
func (r *RecordClient) Submitter(existingID string) wizard.Submitter {
	return wizard.SubmitterFunc(func(ctx context.Context, record wizard.Record) error {
		_, err := r.Save(ctx, existingID, record)
		return err
	})
}

func (r *RecordClient) itemPath(id string) string {
	return r.path + "/" + url.PathEscape(id)
}
