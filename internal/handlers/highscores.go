package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/schema"

	"github.com/vancomm/minefield/internal/repository"
)

type Highscores interface {
	GetHighscores(ctx context.Context, filter repository.HighscoreFilter) ([]repository.Highscore, error)
}

type HighscoreHandler struct {
	logger  *slog.Logger
	scores  Highscores
	decoder *schema.Decoder
}

func NewHighscoreHandler(logger *slog.Logger, scores Highscores) *HighscoreHandler {
	return &HighscoreHandler{
		logger:  logger,
		scores:  scores,
		decoder: newDecoder(),
	}
}

func (h HighscoreHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	var dto HighscoresDTO
	if err := h.decoder.Decode(&dto, r.URL.Query()); err != nil {
		sendError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	highscores, err := h.scores.GetHighscores(r.Context(), repository.HighscoreFilter{
		Username: dto.Username,
		Limit:    dto.Limit,
	})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		h.logger.Error("unable to fetch highscores", slog.Any("error", err))
		return
	}
	if highscores == nil {
		highscores = []repository.Highscore{}
	}

	sendJSONOrLog(w, h.logger, highscores)
}
