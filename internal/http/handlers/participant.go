package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/waxal-backend/internal/http/response"
	"github.com/yungbote/waxal-backend/internal/modules/collection"
	"github.com/yungbote/waxal-backend/internal/platform/logger"
)

type ProgressReader interface {
	GetProgress(ctx context.Context, phone string) (*collection.Progress, error)
}

type ParticipantHandler struct {
	log      *logger.Logger
	progress ProgressReader
}

func NewParticipantHandler(log *logger.Logger, progress ProgressReader) *ParticipantHandler {
	return &ParticipantHandler{log: log.With("handler", "ParticipantHandler"), progress: progress}
}

// GET /api/participants/:phone
func (h *ParticipantHandler) GetParticipant(c *gin.Context) {
	p, err := h.progress.GetProgress(c.Request.Context(), c.Param("phone"))
	switch {
	case errors.Is(err, collection.ErrNotRegistered):
		response.RespondError(c, http.StatusNotFound, "not_found", err)
	case err != nil:
		h.log.Error("Participant lookup failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "internal", errors.New("participant lookup failed"))
	default:
		response.RespondOK(c, gin.H{"participant": p})
	}
}
