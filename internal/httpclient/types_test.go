package httpclient_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stacklok/synonym-exporter/internal/httpclient"
)

func TestHTTPError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		statusCode    int
		method        string
		url           string
		message       string
		expectedError string
	}{
		{
			name:          "without method",
			statusCode:    404,
			url:           "http://example.com",
			message:       "Not Found",
			expectedError: "HTTP 404 for URL http://example.com: Not Found",
		},
		{
			name:          "with method",
			statusCode:    500,
			method:        "DELETE",
			url:           "http://solr:8983/solr/core/schema/analysis/synonyms/en/car",
			message:       "500 Internal Server Error",
			expectedError: "HTTP 500 for DELETE http://solr:8983/solr/core/schema/analysis/synonyms/en/car: 500 Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := httpclient.NewHTTPError(tt.statusCode, tt.method, tt.url, tt.message)
			assert.Equal(t, tt.expectedError, err.Error())
		})
	}
}

func TestStatusCode(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("delete failed: %w", httpclient.NewHTTPError(404, "DELETE", "http://x", "gone"))

	assert.Equal(t, 404, httpclient.StatusCode(wrapped))
	assert.True(t, httpclient.IsNotFound(wrapped))
	assert.Equal(t, 0, httpclient.StatusCode(errors.New("plain")))
	assert.False(t, httpclient.IsNotFound(nil))
}
