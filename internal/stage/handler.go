package stage

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/wirebird/crm/internal/transport"
	"github.com/wirebird/crm/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
}

func NewHandler() *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{BaseHandler: transport.NewBaseHandler(lg)}
}

// ListStages serves the pipeline definition used by clients to render
// navigation and resolve stage-specific fields.
func (h *Handler) ListStages(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"stages": Stages(),
	})
}

func (h *Handler) GetStage(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid stage ID")
		return
	}

	s, ok := ByID(id)
	if !ok {
		h.WriteError(w, http.StatusNotFound, "stage not found")
		return
	}

	h.WriteJSON(w, http.StatusOK, s)
}
