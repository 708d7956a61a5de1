package sources

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/stacklok/synonym-exporter/internal/synonym"
)

// Supported file formats
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
	FormatTOML = "toml"
)

// fileRecord is one entry of the "synonyms" list. Active defaults to true.
type fileRecord struct {
	Word     string `json:"word"`
	Synonyms string `json:"synonyms"`
	Type     string `json:"type"`
	Langcode string `json:"langcode"`
	Active   *bool  `json:"active"`
}

type fileDocument struct {
	Synonyms []fileRecord `json:"synonyms"`
}

// fileRecordSource reads records from a local file
type fileRecordSource struct {
	path string
}

// NewFileRecordSource creates a source reading the file at path.
// The format is taken from the extension.
func NewFileRecordSource(path string) (RecordSource, error) {
	if path == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}
	if _, err := FormatFromPath(path); err != nil {
		return nil, err
	}
	return &fileRecordSource{path: path}, nil
}

// FormatFromPath maps a file extension to a supported format
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported synonym file extension %q: use .yaml, .yml, .json or .toml", filepath.Ext(path))
	}
}

// ListSynonymRecords reads, validates and filters the file's records
func (s *fileRecordSource) ListSynonymRecords(ctx context.Context, query Query) ([]synonym.Record, error) {
	data, _, err := s.read(ctx)
	if err != nil {
		return nil, err
	}

	all, err := ParseRecords(data, s.format())
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}

	records := make([]synonym.Record, 0, len(all))
	for _, rec := range all {
		if query.matches(rec) {
			records = append(records, rec)
		}
	}
	return records, nil
}

// CurrentHash returns the SHA256 of the file contents
func (s *fileRecordSource) CurrentHash(ctx context.Context) (string, error) {
	_, hash, err := s.read(ctx)
	return hash, err
}

func (s *fileRecordSource) format() string {
	format, _ := FormatFromPath(s.path)
	return format
}

// read loads the file and calculates its hash
func (s *fileRecordSource) read(ctx context.Context) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	//nolint:gosec // File path comes from user configuration, this is expected behavior
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("file not found: %s", s.path)
		}
		return nil, "", fmt.Errorf("failed to read file %s: %w", s.path, err)
	}

	return data, fmt.Sprintf("%x", sha256.Sum256(data)), nil
}

// ParseRecords decodes and validates a synonyms document in the given format.
// Records are returned unfiltered in document order.
func ParseRecords(data []byte, format string) ([]synonym.Record, error) {
	var doc any
	switch format {
	case FormatYAML, FormatJSON:
		// yaml.v3 accepts JSON documents as well
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", format, err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}

	if err := validateDocument(doc); err != nil {
		return nil, err
	}

	// The document is known to match the schema, re-decode it into typed records
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize document: %w", err)
	}
	var parsed fileDocument
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}

	records := make([]synonym.Record, 0, len(parsed.Synonyms))
	for _, fr := range parsed.Synonyms {
		kind := synonym.KindSynonym
		if fr.Type != "" {
			kind = synonym.Kind(fr.Type)
		}
		records = append(records, synonym.Record{
			Word:     fr.Word,
			Synonyms: fr.Synonyms,
			Kind:     kind,
			Langcode: fr.Langcode,
			Active:   fr.Active == nil || *fr.Active,
		})
	}
	return records, nil
}
