package handlers

import (
	"net/http"
	"time"
)

// InfoHandler serves the static model listing and the readiness probe.
type InfoHandler struct {
	Model   string
	Version string
	// Ready reports whether backend credentials are configured. It does not
	// contact the backend.
	Ready bool

	now func() time.Time
}

func NewInfoHandler(model, version string, ready bool) *InfoHandler {
	return &InfoHandler{
		Model:   model,
		Version: version,
		Ready:   ready,
		now:     time.Now,
	}
}

// Models handles GET /v1/models.
func (h *InfoHandler) Models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ModelList{
		Object: "list",
		Data: []ModelCard{{
			ID:      h.Model,
			Object:  "model",
			Created: h.now().Unix(),
			OwnedBy: "watson",
		}},
	})
}

// Health handles GET /health and GET /v1/health.
func (h *InfoHandler) Health(w http.ResponseWriter, r *http.Request) {
	if !h.Ready {
		writeJSON(w, http.StatusInternalServerError, HealthStatus{
			Status:  "error",
			Message: "IAM_APIKEY environment variable is not set",
		})
		return
	}
	writeJSON(w, http.StatusOK, HealthStatus{
		Status:  "ok",
		Version: h.Version,
		Model:   h.Model,
	})
}
