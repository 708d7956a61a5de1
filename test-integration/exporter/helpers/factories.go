package helpers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/onsi/gomega"
	"gopkg.in/yaml.v3"
)

// SynonymEntry is one record of a synonym file
type SynonymEntry struct {
	Word     string `yaml:"word"`
	Synonyms string `yaml:"synonyms"`
	Type     string `yaml:"type"`
	Langcode string `yaml:"langcode,omitempty"`
	Active   *bool  `yaml:"active,omitempty"`
}

// CreateCarBikeSynonyms returns the two-record dictionary used across the suite
func CreateCarBikeSynonyms() []SynonymEntry {
	return []SynonymEntry{
		{Word: "car", Synonyms: "automobile, vehicle", Type: "synonym", Langcode: "en"},
		{Word: "bike", Synonyms: "bicycle", Type: "synonym", Langcode: "en"},
	}
}

// WriteSynonymsYAML writes entries to path, replacing the file atomically
func WriteSynonymsYAML(path string, entries []SynonymEntry) {
	data, err := yaml.Marshal(map[string]any{"synonyms": entries})
	gomega.Expect(err).NotTo(gomega.HaveOccurred())

	tmp := path + ".tmp"
	gomega.Expect(os.WriteFile(tmp, data, 0600)).To(gomega.Succeed())
	gomega.Expect(os.Rename(tmp, path)).To(gomega.Succeed())
}

// ExporterSpec describes one exporter in a generated config
type ExporterSpec struct {
	Name          string
	Resource      string
	Kind          string
	Interval      string
	OnlyIfChanged bool
}

// WriteConfigYAML writes a config with one backend and a file source and returns its path
func WriteConfigYAML(dir, solrURL, core, synonymsPath string, watch bool, exporters ...ExporterSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "dataDir: %s\n", filepath.Join(dir, "data"))
	fmt.Fprintf(&b, "backends:\n  - id: solr_test\n    url: %s\n    core: %s\n    timeout: 5s\n", solrURL, core)
	fmt.Fprintf(&b, "source:\n  file:\n    path: %s\n    watch: %t\n", synonymsPath, watch)
	b.WriteString("exporters:\n")
	for _, exp := range exporters {
		fmt.Fprintf(&b, "  - name: %s\n    plugin: solr_api\n    options: \"solr_test,%s\"\n", exp.Name, exp.Resource)
		if exp.Kind != "" {
			fmt.Fprintf(&b, "    kind: %s\n", exp.Kind)
		}
		if exp.OnlyIfChanged {
			b.WriteString("    onlyIfChanged: true\n")
		}
		if exp.Interval != "" {
			fmt.Fprintf(&b, "    syncPolicy:\n      interval: %s\n", exp.Interval)
		}
	}

	path := filepath.Join(dir, "config.yaml")
	gomega.Expect(os.WriteFile(path, []byte(b.String()), 0600)).To(gomega.Succeed())
	return path
}
