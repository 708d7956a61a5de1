package export

import (
	"fmt"
	"strings"
)

// PluginSolrAPI selects the Solr managed synonyms REST exporter
const PluginSolrAPI = "solr_api"

// Options targets one managed synonym resource on one backend
type Options struct {
	BackendID    string
	ResourceName string
}

// String renders the options in their "backendId,resourceName" form
func (o Options) String() string {
	return o.BackendID + "," + o.ResourceName
}

// ParseOptions parses a "backendId,resourceName" string.
// Both parts are trimmed and required.
func ParseOptions(raw string) (Options, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return Options{}, &ConfigError{
			Reason: fmt.Sprintf("options must have the form 'backendId,resourceName', got %q", raw),
		}
	}

	opts := Options{
		BackendID:    strings.TrimSpace(parts[0]),
		ResourceName: strings.TrimSpace(parts[1]),
	}
	if opts.BackendID == "" {
		return Options{}, &ConfigError{Reason: fmt.Sprintf("options %q are missing the backend id", raw)}
	}
	if opts.ResourceName == "" {
		return Options{}, &ConfigError{Reason: fmt.Sprintf("options %q are missing the resource name", raw)}
	}
	if strings.ContainsAny(opts.ResourceName, "/?#") {
		return Options{}, &ConfigError{
			Reason: fmt.Sprintf("resource name %q must not contain '/', '?' or '#'", opts.ResourceName),
		}
	}
	return opts, nil
}
