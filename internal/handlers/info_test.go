package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		ready      bool
		wantCode   int
		wantStatus string
	}{
		{"credential set", true, http.StatusOK, "ok"},
		{"credential missing", false, http.StatusInternalServerError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewInfoHandler("watson-ai", "1.0.0", tt.ready)

			rr := httptest.NewRecorder()
			h.Health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rr.Code)
			var body HealthStatus
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.Status)
			if tt.ready {
				assert.Equal(t, "watson-ai", body.Model)
				assert.Equal(t, "1.0.0", body.Version)
			} else {
				assert.NotEmpty(t, body.Message)
			}
		})
	}
}

func TestModels(t *testing.T) {
	h := NewInfoHandler("watson-ai", "1.0.0", true)

	rr := httptest.NewRecorder()
	h.Models(rr, httptest.NewRequest(http.MethodGet, "/v1/models", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body ModelList
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "list", body.Object)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "watson-ai", body.Data[0].ID)
	assert.Equal(t, "model", body.Data[0].Object)
	assert.Equal(t, "watson", body.Data[0].OwnedBy)
}
