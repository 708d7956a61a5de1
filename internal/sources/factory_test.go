package sources

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/synonym-exporter/internal/config"
)

func TestRecordSourceFactory_File(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "synonyms.yaml", yamlDoc)
	factory := NewRecordSourceFactory(&config.SourceConfig{File: &config.FileConfig{Path: path}})

	src, release, err := factory.CreateSource(context.Background())
	require.NoError(t, err)
	require.NotNil(t, release)
	defer release()

	records, err := src.ListSynonymRecords(context.Background(), Query{})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestRecordSourceFactory_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  *config.SourceConfig
	}{
		{name: "nil config", cfg: nil},
		{name: "no source", cfg: &config.SourceConfig{}},
		{name: "bad file extension", cfg: &config.SourceConfig{File: &config.FileConfig{Path: "synonyms.txt"}}},
		{name: "incomplete database", cfg: &config.SourceConfig{Database: &config.DatabaseConfig{Host: "localhost"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := NewRecordSourceFactory(tt.cfg).CreateSource(context.Background())
			assert.Error(t, err)
		})
	}
}
