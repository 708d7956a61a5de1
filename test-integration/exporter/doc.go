// Package integration contains end-to-end tests that run the exporter
// application against a fake Solr managed synonyms endpoint.
package integration
