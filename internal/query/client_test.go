package query

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(Config{Endpoint: srv.URL + "/query", Timeout: 5 * time.Second})
}

func TestQuerySendsQuestionAndDecodesPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req map[string]string
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "Give me details of incident INC8740564", req["question"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"formatted_response": "Found 1 incident",
			"raw_data": {"query_type": "incident", "total_results": 1, "results": [
				{"record_type": "incident", "incident_details": {
					"number": "INC8740564", "priority": "1 - High", "state": "Closed",
					"opened_by": {"display_value": "Jordan Lee"}
				}}
			]}
		}`))
	})

	resp, err := client.Query(context.Background(), "Give me details of incident INC8740564")
	require.NoError(t, err)
	assert.Equal(t, "Found 1 incident", resp.FormattedResponse)
	require.NotNil(t, resp.RawData)
	incidents := resp.RawData.Incidents()
	require.Len(t, incidents, 1)
	assert.Equal(t, "INC8740564", incidents[0].Number)
	assert.Equal(t, "Jordan Lee", incidents[0].OpenedBy.DisplayValue)
}

func TestQueryWithoutRawData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"formatted_response": "Nothing found", "raw_data": null}`))
	})
	resp, err := client.Query(context.Background(), "anything")
	require.NoError(t, err)
	assert.Nil(t, resp.RawData)
}

func TestQueryFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    Kind
		message string
	}{
		{name: "server-500-no-body", status: 500, body: "", kind: KindServer, message: GenericServerMessage},
		{name: "server-message", status: 502, body: `{"message": "ServiceNow unavailable"}`, kind: KindServer, message: "ServiceNow unavailable"},
		{name: "server-detail", status: 500, body: `{"detail": "Failed to obtain access token"}`, kind: KindServer, message: "Failed to obtain access token"},
		{name: "server-detail-list", status: 422, body: `{"detail": [{"msg": "bad"}]}`, kind: KindServer, message: GenericServerMessage},
		{name: "missing-formatted", status: 200, body: `{"raw_data": {}}`, kind: KindMalformed, message: MalformedMessage},
		{name: "empty-formatted", status: 200, body: `{"formatted_response": ""}`, kind: KindMalformed, message: MalformedMessage},
		{name: "not-json", status: 200, body: `<html>oops</html>`, kind: KindMalformed, message: MalformedMessage},
		{name: "bad-raw-data", status: 200, body: `{"formatted_response": "ok", "raw_data": {"results": "nope"}}`, kind: KindMalformed, message: MalformedMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			resp, err := client.Query(context.Background(), "q")
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.Equal(t, tt.message, UserMessage(err))
			if tt.kind == KindServer {
				var qerr *Error
				require.ErrorAs(t, err, &qerr)
				assert.Equal(t, tt.status, qerr.Status)
			}
		})
	}
}

func TestQueryTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL + "/query"
	srv.Close()

	client := NewHTTPClient(Config{Endpoint: endpoint, Timeout: time.Second})
	_, err := client.Query(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.NotEmpty(t, UserMessage(err))
}

func TestQueryCanceledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Query(ctx, "q")
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUserMessageFallback(t *testing.T) {
	assert.Equal(t, FallbackMessage, UserMessage(io.EOF))
	assert.Equal(t, Kind(0), KindOf(io.EOF))
	assert.Equal(t, MalformedMessage, UserMessage(NewMalformed("no answer")))
}

func TestHealth(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status": "healthy", "timestamp": 1700000000.5}`))
	})
	health, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, health.Healthy())
}

func TestHealthURL(t *testing.T) {
	tests := map[string]string{
		"http://localhost:7000/query":       "http://localhost:7000/health",
		"http://localhost:7000/query/raw":   "http://localhost:7000/health",
		"http://example.com/api/query/":     "http://example.com/api/health",
		"http://example.com/ask?format=yes": "http://example.com/ask/health",
	}
	for in, want := range tests {
		got, err := healthURL(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}
