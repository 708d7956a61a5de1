package solr_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/synonym-exporter/internal/config"
	"github.com/stacklok/synonym-exporter/internal/export"
	"github.com/stacklok/synonym-exporter/internal/solr"
	"github.com/stacklok/synonym-exporter/internal/synonym"
)

func TestResolver_UnknownBackend(t *testing.T) {
	t.Parallel()

	resolver := solr.NewResolver([]config.BackendConfig{{ID: "solr_main", URL: "http://localhost:8983/solr", Core: "products"}})

	backend, err := resolver.Resolve("solr_other")
	require.Error(t, err)
	assert.Nil(t, backend)

	var cfgErr *export.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "solr_other")
}

func TestResolver_CachesClients(t *testing.T) {
	t.Parallel()

	resolver := solr.NewResolver([]config.BackendConfig{{ID: "solr_main", URL: "http://localhost:8983/solr", Core: "products"}})

	first, err := resolver.Client("solr_main")
	require.NoError(t, err)
	second, err := resolver.Client("solr_main")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestResolver_MissingPasswordFile(t *testing.T) {
	t.Parallel()

	resolver := solr.NewResolver([]config.BackendConfig{{
		ID:           "solr_main",
		URL:          "http://localhost:8983/solr",
		Core:         "products",
		Username:     "solr",
		PasswordFile: "/nonexistent/solr-password",
	}})

	_, err := resolver.Resolve("solr_main")
	var cfgErr *export.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestResolver_BasicAuth(t *testing.T) {
	t.Parallel()

	fake, srv := newFakeSolr(t, map[string][]string{})
	passwordFile := filepath.Join(t.TempDir(), "solr-password")
	require.NoError(t, os.WriteFile(passwordFile, []byte("SolrRocks\n"), 0600))

	resolver := solr.NewResolver([]config.BackendConfig{{
		ID:           "solr_main",
		URL:          srv.URL + "/solr",
		Core:         "products",
		Username:     "solr",
		PasswordFile: passwordFile,
	}})

	backend, err := resolver.Resolve("solr_main")
	require.NoError(t, err)
	require.NoError(t, backend.Writer.ReloadCore(context.Background()))

	require.Len(t, fake.authz, 1)
	// base64("solr:SolrRocks")
	assert.Equal(t, "Basic c29scjpTb2xyUm9ja3M=", fake.authz[0])
}

func TestExport_AgainstFakeSolr(t *testing.T) {
	t.Parallel()

	fake, srv := newFakeSolr(t, map[string][]string{"bike": {"cycle"}})
	resolver := solr.NewResolver([]config.BackendConfig{{ID: "solr_main", URL: srv.URL + "/solr", Core: "products"}})

	exp, err := export.New(export.PluginSolrAPI, "solr_main,english",
		export.WithName("products-en"),
		export.WithResolver(resolver),
	)
	require.NoError(t, err)

	records := []synonym.Record{{Word: "car", Synonyms: "auto, vehicle", Kind: synonym.KindSynonym, Active: true}}

	for run := 0; run < 2; run++ {
		result, err := exp.Export(context.Background(), records)
		require.NoError(t, err)
		assert.Equal(t, export.StateDone, result.State)
		assert.Equal(t, 1, result.Deleted)
		assert.Equal(t, 1, result.Upserted)
		assert.Equal(t, 0, result.Failed)
		assert.Equal(t, map[string][]string{"car": {"auto", "vehicle"}}, fake.english())
	}
	assert.Equal(t, []string{"products", "products"}, fake.reloads)
}
