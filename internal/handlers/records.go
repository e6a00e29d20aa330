package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/vancomm/minefield/internal/mines"
	"github.com/vancomm/minefield/internal/repository"
)

type Records interface {
	FetchGameRecord(ctx context.Context, gameRecordId int64) (*repository.GameRecord, error)
}

type RecordHandler struct {
	logger  *slog.Logger
	records Records
}

func NewRecordHandler(logger *slog.Logger, records Records) *RecordHandler {
	return &RecordHandler{logger: logger, records: records}
}

// RecordView is an archived game as it looked when it ended.
type RecordView struct {
	RecordId int64  `json:"record_id"`
	PlayerId *int64 `json:"player_id,omitempty"`
	*GameView
}

func (h RecordHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	recordId, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		sendError(w, h.logger, http.StatusBadRequest, errors.New("record id must be an int"))
		return
	}

	record, err := h.records.FetchGameRecord(r.Context(), recordId)
	if errors.Is(err, pgx.ErrNoRows) {
		sendError(w, h.logger, http.StatusNotFound, errors.New("game record not found"))
		return
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		h.logger.Error("unable to fetch game record", slog.Any("error", err))
		return
	}

	snapshot, err := mines.DecodeSnapshot(record.State)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		h.logger.Error(
			"db returned invalid game_record.state",
			slog.Int64("record", recordId),
			slog.Any("error", err),
		)
		return
	}

	view := NewGameView(record.SessionId, snapshot.Game())
	view.StartedAt = record.StartedAt.UnixMilli()
	endedAt := record.EndedAt.UnixMilli()
	view.EndedAt = &endedAt

	sendJSONOrLog(w, h.logger, RecordView{
		RecordId: record.GameRecordId,
		PlayerId: record.PlayerId,
		GameView: view,
	})
}
