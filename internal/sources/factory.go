package sources

import (
	"context"
	"fmt"

	"github.com/stacklok/synonym-exporter/internal/config"
	"github.com/stacklok/synonym-exporter/internal/db"
)

// defaultRecordSourceFactory builds sources from the source configuration
type defaultRecordSourceFactory struct {
	cfg *config.SourceConfig
}

var _ RecordSourceFactory = (*defaultRecordSourceFactory)(nil)

// NewRecordSourceFactory creates a factory for the configured source
func NewRecordSourceFactory(cfg *config.SourceConfig) RecordSourceFactory {
	return &defaultRecordSourceFactory{cfg: cfg}
}

// CreateSource creates the source for the configured source type
func (f *defaultRecordSourceFactory) CreateSource(ctx context.Context) (RecordSource, func(), error) {
	if f.cfg == nil {
		return nil, nil, fmt.Errorf("source configuration is required")
	}

	switch f.cfg.GetType() {
	case config.SourceTypeFile:
		src, err := NewFileRecordSource(f.cfg.File.Path)
		if err != nil {
			return nil, nil, err
		}
		return src, func() {}, nil
	case config.SourceTypeDatabase:
		pool, err := db.NewPool(ctx, f.cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return NewDBRecordSource(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported source type: %q", f.cfg.GetType())
	}
}
