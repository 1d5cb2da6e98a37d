package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventtts/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		fmt.Errorf("event abc: %w", models.ErrNotFound):        http.StatusNotFound,
		fmt.Errorf("%w: not organizer", models.ErrUnauthorized): http.StatusForbidden,
		models.ErrValidation:                                   http.StatusBadRequest,
		models.ErrInsufficientInventory:                        http.StatusConflict,
		models.ErrUpstream:                                     http.StatusBadGateway,
		fmt.Errorf("boom"):                                     http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, StatusFor(err), err.Error())
	}
}

func TestRespondWithErrHidesInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	RespondWithErr(rec, req, fmt.Errorf("mongo exploded"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "internal server error", body["error"])
}

func TestParseQueryOptions(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/events?query=%20hack%20&page=0&limit=500", nil)
	opts := ParseQueryOptions(req, 6)
	assert.Equal(t, "hack", opts.Search)
	assert.Equal(t, 1, opts.Page)
	assert.Equal(t, 50, opts.Limit)
	assert.Equal(t, int64(0), opts.Skip())

	req = httptest.NewRequest(http.MethodGet, "/api/events?page=3", nil)
	opts = ParseQueryOptions(req, 6)
	assert.Equal(t, 6, opts.Limit)
	assert.Equal(t, int64(12), opts.Skip())
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 6))
	assert.Equal(t, 1, TotalPages(6, 6))
	assert.Equal(t, 2, TotalPages(7, 6))
}
