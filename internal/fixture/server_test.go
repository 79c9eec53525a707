package fixture

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incidentdesk/internal/incident"
	"incidentdesk/internal/query"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newHandler(t *testing.T) http.Handler {
	t.Helper()
	cat, err := Load("")
	require.NoError(t, err)
	return NewHandler(cat, Options{Now: func() time.Time { return time.Unix(1700000000, 0) }})
}

func post(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestQueryFormatted(t *testing.T) {
	rec := post(newHandler(t), "/query", `{"question": "Give me details of incident INC8740564"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body struct {
		FormattedResponse string               `json:"formatted_response"`
		RawData           incident.QueryResult `json:"raw_data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.FormattedResponse, "Found 1 incident.")
	require.Len(t, body.RawData.Incidents(), 1)
	assert.Equal(t, "Database Operations", body.RawData.Incidents()[0].AssignmentGroup.DisplayValue)
}

func TestQueryRawRoutes(t *testing.T) {
	h := newHandler(t)
	for _, rec := range []*httptest.ResponseRecorder{
		post(h, "/query/raw", `{"question": "INC8740571"}`),
		post(h, "/query", `{"question": "INC8740571", "format_response": false}`),
	} {
		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotContains(t, body, "formatted_response")
		assert.Equal(t, float64(1), body["total_results"])
	}
}

func TestQueryValidation(t *testing.T) {
	h := newHandler(t)

	rec := post(h, "/query", `{"question": "   "}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"message": "question cannot be empty"}`, rec.Body.String())

	rec = post(h, "/query", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndCORS(t *testing.T) {
	h := newHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	var health query.Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.True(t, health.Healthy())
	assert.InDelta(t, 1700000000.0, health.Timestamp, 1)
}

func TestConsoleClientAgainstFixtureServer(t *testing.T) {
	srv := httptest.NewServer(newHandler(t))
	t.Cleanup(srv.Close)
	client := query.NewHTTPClient(query.Config{Endpoint: srv.URL + "/query", Timeout: 5 * time.Second})

	resp, err := client.Query(context.Background(), "Show me all high priority incidents")
	require.NoError(t, err)
	assert.Len(t, resp.RawData.Incidents(), 2)

	_, err = client.Query(context.Background(), " ")
	require.Error(t, err)
	assert.Equal(t, query.KindServer, query.KindOf(err))
	assert.Equal(t, "question cannot be empty", query.UserMessage(err))

	health, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, health.Healthy())
}

func TestCredentialsOnlyForExplicitOrigins(t *testing.T) {
	cat, err := Load("")
	require.NoError(t, err)

	get := func(h http.Handler) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := get(NewHandler(cat, Options{AllowedOrigins: []string{"*"}}))
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = get(NewHandler(cat, Options{AllowedOrigins: []string{"http://localhost:3000"}}))
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
