package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"CompanyRank/internal/config"
	"CompanyRank/internal/database"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &config.Config{
		Server:   config.ServerConfig{Port: 8080, Mode: gin.TestMode},
		Database: config.DatabaseConfig{Driver: config.DriverSQLite, DSN: ":memory:"},
		Ranking:  config.RankingConfig{RegionalKvedThreshold: 100, SourcePrefix: "Україна", HistoryLimit: 10},
	}
	db, err := database.Open(cfg.Database, logger)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewRouter(db, logger, cfg)
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestPipelineOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/rankings", gin.H{"sort_criteria": "revenue", "ranking_name": "too early"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "create a selection first")

	w = do(t, r, http.MethodPost, "/api/companies/bulk", []gin.H{
		{"edrpou": "001", "name": "A", "revenue": "100", "personnel": 5, "region_name": "Київ"},
		{"edrpou": "002", "name": "B", "revenue": 50, "personnel": 20},
		{"edrpou": "003", "name": "C", "revenue": 200, "personnel": 1},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = do(t, r, http.MethodPost, "/api/selections", gin.H{"min_employees": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sel struct {
		Selection struct {
			ID             uint64 `json:"id"`
			CompaniesCount int    `json:"companies_count"`
			IsActive       bool   `json:"is_active"`
		} `json:"selection"`
	}
	decode(t, w, &sel)
	assert.Equal(t, 2, sel.Selection.CompaniesCount)
	assert.True(t, sel.Selection.IsActive)

	w = do(t, r, http.MethodPost, "/api/rankings", gin.H{"sort_criteria": "revenue", "ranking_name": "ТОП", "year_source_label": "2023"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Ranking struct {
			ID             uint64 `json:"id"`
			CompaniesCount int    `json:"companies_count"`
			SourceLabel    string `json:"source_label"`
		} `json:"ranking"`
	}
	decode(t, w, &created)
	assert.Equal(t, 2, created.Ranking.CompaniesCount)
	assert.Equal(t, "Україна 2023", created.Ranking.SourceLabel)

	w = do(t, r, http.MethodGet, "/api/rankings/latest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var latest struct {
		RankingID uint64 `json:"ranking_id"`
	}
	decode(t, w, &latest)
	assert.Equal(t, created.Ranking.ID, latest.RankingID)

	w = do(t, r, http.MethodGet, "/api/rankings/"+strconv.FormatUint(created.Ranking.ID, 10)+"/rows", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rows struct {
		Items []struct {
			Position int    `json:"position"`
			Edrpou   string `json:"edrpou"`
		} `json:"items"`
	}
	decode(t, w, &rows)
	require.Len(t, rows.Items, 2)
	assert.Equal(t, "001", rows.Items[0].Edrpou)
	assert.Equal(t, 2, rows.Items[1].Position)

	w = do(t, r, http.MethodGet, "/api/selections/current", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Працівників ≥ 2")

	w = do(t, r, http.MethodGet, "/api/companies/edrpou/003", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"C"`)

	w = do(t, r, http.MethodGet, "/api/companies?ranked=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var companies struct {
		Total int64 `json:"total"`
	}
	decode(t, w, &companies)
	assert.EqualValues(t, 2, companies.Total)
}

func TestErrorStatuses(t *testing.T) {
	r := newTestRouter(t)

	cases := []struct {
		method, path string
		body         interface{}
		want         int
	}{
		{http.MethodGet, "/api/rankings/abc", nil, http.StatusBadRequest},
		{http.MethodGet, "/api/rankings/77", nil, http.StatusNotFound},
		{http.MethodGet, "/api/rankings/latest", nil, http.StatusNotFound},
		{http.MethodGet, "/api/selections/5", nil, http.StatusNotFound},
		{http.MethodGet, "/api/companies/5", nil, http.StatusNotFound},
		{http.MethodGet, "/api/companies/edrpou/404", nil, http.StatusNotFound},
		{http.MethodPost, "/api/selections", gin.H{"min_employees": -3}, http.StatusBadRequest},
		{http.MethodPost, "/api/rankings", gin.H{"sort_criteria": "assets", "ranking_name": "x"}, http.StatusBadRequest},
		{http.MethodPost, "/api/companies/bulk", []gin.H{{"name": "no id"}}, http.StatusBadRequest},
		{http.MethodPost, "/api/companies/bulk", "not an array", http.StatusBadRequest},
	}
	for _, tc := range cases {
		w := do(t, r, tc.method, tc.path, tc.body)
		assert.Equal(t, tc.want, w.Code, "%s %s: %s", tc.method, tc.path, w.Body.String())
	}
}

func TestOpsEndpoints(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set(RequestIDHeader, "fixed-id")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fixed-id", rec.Header().Get(RequestIDHeader))

	w = do(t, r, http.MethodGet, "/api/filter/options", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
