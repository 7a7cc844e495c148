package formwizard_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formwizard"
	"github.com/goliatone/go-formwizard/pkg/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func exampleConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load(config.New(), "")
	require.NoError(t, err)
	cfg.Definitions = []string{filepath.Join("examples", "definitions")}
	cfg.SchemaRoot = "examples"
	return cfg
}

func open(t *testing.T, cfg config.Config) *formwizard.App {
	t.Helper()
	app, err := formwizard.Open(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func storageRecord() formwizard.Record {
	return formwizard.Record{
		"planned_move_date":       "2018-04-26",
		"pickup_postal_code":      "90210",
		"destination_postal_code": "10001",
		"days_in_storage":         int64(30),
		"weight":                  int64(1200),
	}
}

func TestOpenLoadsCatalog(t *testing.T) {
	app := open(t, exampleConfig(t))

	assert.ElementsMatch(t, []string{"orders_info", "storage_reimbursement_calc"}, app.Catalog.Keys())
	assert.Nil(t, app.Client)
	assert.NotNil(t, app.Metrics)
	assert.Nil(t, app.Searcher())

	handler, err := app.Handler()
	require.NoError(t, err)
	assert.Equal(t, "/wizards", handler.BasePath())
}

func TestStartWalksInlineForm(t *testing.T) {
	app := open(t, exampleConfig(t))
	ctx := context.Background()

	c, form, err := app.Start(ctx, "storage_reimbursement_calc", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "Storage reimbursement calculator", form.Title)
	assert.Equal(t, "estimate", c.CurrentPage().Key())

	_, err = c.SubmitCurrentPage(storageRecord())
	require.NoError(t, err)
	assert.True(t, c.IsComplete())
	assert.Equal(t, storageRecord(), c.AccumulatedRecord())

	_, err = app.Submitter(form, nil, "")
	assert.Error(t, err, "submitting without a record service must fail")
}

func TestStartErrors(t *testing.T) {
	app := open(t, exampleConfig(t))
	ctx := context.Background()

	_, _, err := app.Start(ctx, "missing", nil, "")
	assert.True(t, errors.Is(err, formwizard.ErrUnknownForm), "got %v", err)

	_, _, err = app.Start(ctx, "storage_reimbursement_calc", nil, "estimate-1")
	assert.Error(t, err, "editing needs a record service")
}

func TestSubmitterPostsToRecordService(t *testing.T) {
	var received map[string]any
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/estimates/ppm_sit" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"estimate": 4200}`))
	}))
	t.Cleanup(api.Close)

	cfg := exampleConfig(t)
	cfg.API.BaseURL = api.URL
	app := open(t, cfg)
	require.NotNil(t, app.Client)

	ctx := context.Background()
	c, form, err := app.Start(ctx, "storage_reimbursement_calc", nil, "")
	require.NoError(t, err)
	_, err = c.SubmitCurrentPage(storageRecord())
	require.NoError(t, err)

	submitter, err := app.Submitter(form, nil, "")
	require.NoError(t, err)
	require.NoError(t, c.Submit(ctx, submitter))
	assert.True(t, c.IsClosed())

	assert.Equal(t, "90210", received["pickup_postal_code"])
	assert.EqualValues(t, 1200, received["weight"])
}
