package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/schema"
	"github.com/sirupsen/logrus"

	"github.com/vancomm/minefield/internal/config"
	"github.com/vancomm/minefield/internal/middleware"
	"github.com/vancomm/minefield/internal/mines"
	"github.com/vancomm/minefield/internal/repository"
	"github.com/vancomm/minefield/internal/store"
)

// Recorder archives finished games.
type Recorder interface {
	CreateGameRecord(
		ctx context.Context, params repository.CreateGameRecordParams,
	) (*repository.GameRecord, error)
}

type GameHandler struct {
	logger   *slog.Logger
	events   *logrus.Logger
	games    *store.Memory
	recorder Recorder
	ws       *config.WebSocket
	decoder  *schema.Decoder
}

// NewGameHandler builds the game endpoints. recorder may be nil, finished
// games are then only written to the event log.
func NewGameHandler(
	logger *slog.Logger,
	events *logrus.Logger,
	games *store.Memory,
	recorder Recorder,
	ws *config.WebSocket,
) *GameHandler {
	return &GameHandler{
		logger:   logger,
		events:   events,
		games:    games,
		recorder: recorder,
		ws:       ws,
		decoder:  newDecoder(),
	}
}

func (h GameHandler) session(w http.ResponseWriter, r *http.Request) (*store.Session, bool) {
	middleware.AddLogAttrs(r.Context(), slog.String("session", r.PathValue("id")))
	session, err := h.games.Get(r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		sendError(w, h.logger, http.StatusNotFound, err)
		return nil, false
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		h.logger.Error("unable to fetch session", slog.Any("error", err))
		return nil, false
	}
	return session, true
}

// play applies fn to the session's game and renders the result. A game
// finished by fn is recorded.
func (h GameHandler) play(
	ctx context.Context, s *store.Session, fn func(g *mines.Game) error,
) (*GameView, error) {
	var (
		view     *GameView
		snapshot mines.Snapshot
	)
	out, err := s.Do(func(g *mines.Game) error {
		err := fn(g)
		view = NewGameView(s.ID, g)
		if g.Over() {
			snapshot = g.Snapshot()
		}
		return err
	})

	view.StartedAt = out.StartedAt.UnixMilli()
	if out.EndedAt != nil {
		e := out.EndedAt.UnixMilli()
		view.EndedAt = &e
	}

	if out.Finished {
		h.record(ctx, s, snapshot.Game(), out.StartedAt, *out.EndedAt)
	}
	return view, err
}

func (h GameHandler) record(
	ctx context.Context, s *store.Session, g *mines.Game, startedAt, endedAt time.Time,
) {
	fields := logrus.Fields{
		"session_id":  s.ID,
		"state":       g.State(),
		"width":       g.Params().Width,
		"height":      g.Params().Height,
		"mine_count":  g.Params().MineCount,
		"duration_ms": endedAt.Sub(startedAt).Milliseconds(),
	}
	if s.PlayerID != nil {
		fields["player_id"] = *s.PlayerID
	}
	h.events.WithFields(fields).Info("game finished")

	if h.recorder == nil {
		return
	}
	_, err := h.recorder.CreateGameRecord(ctx, repository.CreateGameRecordParams{
		SessionId: s.ID,
		PlayerId:  s.PlayerID,
		StartedAt: startedAt,
		EndedAt:   endedAt,
		Game:      g,
	})
	if err != nil {
		h.logger.Error(
			"unable to record finished game",
			slog.String("session", s.ID),
			slog.Any("error", err),
		)
	}
}

func (h GameHandler) reply(w http.ResponseWriter, view *GameView, err error) {
	if errors.Is(err, mines.ErrOutOfBounds) {
		sendError(w, h.logger, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		h.logger.Error("unable to play", slog.Any("error", err))
		return
	}
	sendJSONOrLog(w, h.logger, view)
}

func (h GameHandler) NewGame(w http.ResponseWriter, r *http.Request) {
	var playerID *int64
	if claims, ok := middleware.PlayerClaims(r.Context()); ok {
		playerID = &claims.PlayerId
	}

	session, err := h.games.Create(playerID)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		h.logger.Error("unable to create a new game", slog.Any("error", err))
		return
	}
	middleware.AddLogAttrs(r.Context(), slog.String("session", session.ID))
	h.events.WithFields(logrus.Fields{
		"session_id": session.ID,
		"anonymous":  playerID == nil,
	}).Debug("game started")

	view, err := h.play(r.Context(), session, func(*mines.Game) error { return nil })
	h.reply(w, view, err)
}

func (h GameHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := h.play(r.Context(), session, func(*mines.Game) error { return nil })
	h.reply(w, view, err)
}

func (h GameHandler) MakeAMove(w http.ResponseWriter, r *http.Request) {
	var dto MoveDTO
	if err := h.decoder.Decode(&dto, r.URL.Query()); err != nil {
		sendError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	var move func(g *mines.Game) error
	switch dto.Move {
	case MoveOpen:
		move = func(g *mines.Game) error { return g.Open(dto.X, dto.Y) }
	case MoveFlag:
		move = func(g *mines.Game) error { return g.Flag(dto.X, dto.Y) }
	case MoveChord:
		move = func(g *mines.Game) error { return g.Chord(dto.X, dto.Y) }
	default:
		sendError(w, h.logger, http.StatusBadRequest,
			fmt.Errorf("unknown move %q", dto.Move))
		return
	}

	session, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := h.play(r.Context(), session, move)
	h.reply(w, view, err)
}

func (h GameHandler) Reset(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := h.play(r.Context(), session, func(g *mines.Game) error {
		return g.Reset()
	})
	h.reply(w, view, err)
}

func (h GameHandler) Forfeit(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := h.play(r.Context(), session, func(g *mines.Game) error {
		g.Forfeit()
		return nil
	})
	h.reply(w, view, err)
}
