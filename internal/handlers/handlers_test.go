package handlers

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vancomm/minefield/internal/config"
	"github.com/vancomm/minefield/internal/middleware"
	"github.com/vancomm/minefield/internal/mines"
	"github.com/vancomm/minefield/internal/repository"
	"github.com/vancomm/minefield/internal/store"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeRecorder struct {
	mu      sync.Mutex
	records []repository.CreateGameRecordParams
}

func (f *fakeRecorder) CreateGameRecord(
	_ context.Context, params repository.CreateGameRecordParams,
) (*repository.GameRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, params)
	return &repository.GameRecord{GameRecordId: int64(len(f.records))}, nil
}

func (f *fakeRecorder) Records() []repository.CreateGameRecordParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]repository.CreateGameRecordParams(nil), f.records...)
}

type gameFixture struct {
	handler  *GameHandler
	games    *store.Memory
	recorder *fakeRecorder
	events   *logtest.Hook
	mux      *http.ServeMux
}

func newGameFixture() *gameFixture {
	events, hook := logtest.NewNullLogger()
	events.SetLevel(logrus.DebugLevel)
	f := &gameFixture{
		games:    store.NewMemory(mines.DefaultParams()),
		recorder: &fakeRecorder{},
		events:   hook,
		mux:      http.NewServeMux(),
	}
	f.handler = NewGameHandler(discard, events, f.games, f.recorder, config.NewWebSocket())
	f.mux.HandleFunc("POST /game", f.handler.NewGame)
	f.mux.HandleFunc("GET /game/{id}", f.handler.Fetch)
	f.mux.HandleFunc("POST /game/{id}/move", f.handler.MakeAMove)
	f.mux.HandleFunc("POST /game/{id}/reset", f.handler.Reset)
	f.mux.HandleFunc("POST /game/{id}/forfeit", f.handler.Forfeit)
	f.mux.HandleFunc("GET /game/{id}/connect", f.handler.ConnectWS)
	return f
}

func (f *gameFixture) do(t *testing.T, method, target string) (*httptest.ResponseRecorder, *GameView) {
	t.Helper()
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	if rec.Code != http.StatusOK {
		return rec, nil
	}
	var view GameView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	return rec, &view
}

func (f *gameFixture) newGame(t *testing.T) *GameView {
	t.Helper()
	rec, view := f.do(t, http.MethodPost, "/game")
	require.Equal(t, http.StatusOK, rec.Code)
	return view
}

func TestNewGameView(t *testing.T) {
	f := newGameFixture()

	view := f.newGame(t)

	assert.Len(t, view.Id, 16)
	assert.Equal(t, 16, view.Width)
	assert.Equal(t, 16, view.Height)
	assert.Equal(t, 40, view.MineCount)
	assert.Equal(t, 40, view.MinesRemaining)
	assert.Equal(t, mines.InProgress, view.State)
	assert.Nil(t, view.EndedAt)
	require.Len(t, view.Grid, 256)
	for _, c := range view.Grid {
		assert.True(t, c.Covered)
		assert.Nil(t, c.Value, "covered values are hidden")
	}
	assert.Equal(t, 1, f.games.Len())
}

func TestFetch(t *testing.T) {
	f := newGameFixture()
	created := f.newGame(t)

	rec, view := f.do(t, http.MethodGet, "/game/"+created.Id)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.Id, view.Id)
	assert.Equal(t, created.StartedAt, view.StartedAt)

	rec, _ = f.do(t, http.MethodGet, "/game/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMakeAMove(t *testing.T) {
	f := newGameFixture()
	id := f.newGame(t).Id

	rec, view := f.do(t, http.MethodPost, "/game/"+id+"/move?move=flag&x=2&y=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, view.Grid[1*16+2].Flagged)
	assert.Equal(t, 39, view.MinesRemaining)

	// flagged cells cannot be opened
	rec, view = f.do(t, http.MethodPost, "/game/"+id+"/move?move=open&x=2&y=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, view.Grid[1*16+2].Covered)
	assert.Equal(t, mines.InProgress, view.State)

	rec, view = f.do(t, http.MethodPost, "/game/"+id+"/move?move=open&x=9&y=9")
	require.Equal(t, http.StatusOK, rec.Code)
	if view.State == mines.InProgress {
		c := view.Grid[9*16+9]
		assert.False(t, c.Covered)
		require.NotNil(t, c.Value)
		assert.GreaterOrEqual(t, *c.Value, int8(0))
	} else {
		assert.Equal(t, mines.Lost, view.State)
		assert.NotNil(t, view.EndedAt)
		assert.Len(t, f.recorder.Records(), 1)
	}
}

func TestMakeAMoveErrors(t *testing.T) {
	f := newGameFixture()
	id := f.newGame(t).Id

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"out of bounds", "/game/" + id + "/move?move=open&x=16&y=0", http.StatusBadRequest},
		{"negative", "/game/" + id + "/move?move=flag&x=0&y=-1", http.StatusBadRequest},
		{"unknown move", "/game/" + id + "/move?move=dig&x=0&y=0", http.StatusBadRequest},
		{"missing coordinate", "/game/" + id + "/move?move=open&x=0", http.StatusBadRequest},
		{"not a number", "/game/" + id + "/move?move=open&x=a&y=0", http.StatusBadRequest},
		{"unknown game", "/game/nope/move?move=open&x=0&y=0", http.StatusNotFound},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rec, _ := f.do(t, http.MethodPost, test.target)
			assert.Equal(t, test.status, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestForfeitRecordsOnce(t *testing.T) {
	f := newGameFixture()
	id := f.newGame(t).Id

	rec, view := f.do(t, http.MethodPost, "/game/"+id+"/forfeit")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, mines.Lost, view.State)
	require.NotNil(t, view.EndedAt)
	mineCells := 0
	for _, c := range view.Grid {
		if !c.Covered && *c.Value == mines.Mine {
			mineCells++
		}
	}
	assert.Equal(t, 40, mineCells)

	f.do(t, http.MethodPost, "/game/"+id+"/forfeit")
	f.do(t, http.MethodPost, "/game/"+id+"/move?move=open&x=0&y=0")

	records := f.recorder.Records()
	require.Len(t, records, 1)
	assert.Equal(t, id, records[0].SessionId)
	assert.Nil(t, records[0].PlayerId)
	assert.Equal(t, mines.Lost, records[0].Game.State())

	entry := f.events.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "game finished", entry.Message)
	assert.Equal(t, mines.Lost, entry.Data["state"])
}

func TestReset(t *testing.T) {
	f := newGameFixture()
	id := f.newGame(t).Id
	f.do(t, http.MethodPost, "/game/"+id+"/forfeit")

	rec, view := f.do(t, http.MethodPost, "/game/"+id+"/reset")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, mines.InProgress, view.State)
	assert.Nil(t, view.EndedAt)
	assert.Equal(t, 40, view.MinesRemaining)
	for _, c := range view.Grid {
		assert.True(t, c.Covered)
	}
}

func TestPlayConcurrentForfeitAndReset(t *testing.T) {
	f := newGameFixture()
	id := f.newGame(t).Id
	session, err := f.games.Get(id)
	require.NoError(t, err)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 200 {
			f.handler.play(ctx, session, func(g *mines.Game) error { return g.Reset() })
		}
	}()

	for range 200 {
		view, err := f.handler.play(ctx, session, func(g *mines.Game) error {
			g.Forfeit()
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, mines.Lost, view.State)
		require.NotNil(t, view.EndedAt)
		assert.GreaterOrEqual(t, *view.EndedAt, view.StartedAt)
	}
	wg.Wait()

	for _, record := range f.recorder.Records() {
		assert.Equal(t, mines.Lost, record.Game.State())
		assert.False(t, record.EndedAt.Before(record.StartedAt))
	}
	assert.NotEmpty(t, f.recorder.Records())
}

func TestNewGameForPlayer(t *testing.T) {
	f := newGameFixture()
	req := httptest.NewRequest(http.MethodPost, "/game", nil)
	req = req.WithContext(middleware.WithPlayerClaims(
		req.Context(), config.NewPlayerClaims(11, "sapper"),
	))
	rec := httptest.NewRecorder()

	f.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var view GameView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	session, err := f.games.Get(view.Id)
	require.NoError(t, err)
	require.NotNil(t, session.PlayerID)
	assert.Equal(t, int64(11), *session.PlayerID)
}

func TestConnectWS(t *testing.T) {
	f := newGameFixture()
	id := f.newGame(t).Id
	srv := httptest.NewServer(f.mux)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/game/" + id + "/connect"
	c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("f 0 0\nf 1 0\ng")))
	var view GameView
	require.NoError(t, c.ReadJSON(&view))
	assert.True(t, view.Grid[0].Flagged)
	assert.True(t, view.Grid[1].Flagged)
	assert.Equal(t, 38, view.MinesRemaining)

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("f 2 2\no 16 16\nf 3 3")))
	var reply WSReply
	require.NoError(t, c.ReadJSON(&reply))
	assert.Contains(t, reply.Error, "out of bounds")
	require.NotNil(t, reply.GameView, "rejected batches still carry the board")
	assert.True(t, reply.Grid[2*16+2].Flagged, "lines before the bad one stay applied")
	assert.False(t, reply.Grid[3*16+3].Flagged)
	assert.Equal(t, 37, reply.MinesRemaining)

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("r")))
	view = GameView{}
	require.NoError(t, c.ReadJSON(&view))
	assert.Equal(t, mines.Lost, view.State)
	assert.Len(t, f.recorder.Records(), 1)

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("n")))
	view = GameView{}
	require.NoError(t, c.ReadJSON(&view))
	assert.Equal(t, mines.InProgress, view.State)
	assert.Equal(t, 40, view.MinesRemaining)
}

func TestConnectWSUnknownGame(t *testing.T) {
	f := newGameFixture()
	srv := httptest.NewServer(f.mux)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/game/nope/connect"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

type fakePlayers struct {
	players map[string]*repository.Player
}

func (f *fakePlayers) CreatePlayer(
	_ context.Context, params repository.CreatePlayerParams,
) (*repository.Player, error) {
	if _, ok := f.players[params.Username]; ok {
		return nil, repository.ErrUsernameTaken
	}
	p := &repository.Player{
		PlayerId:     int64(len(f.players) + 1),
		Username:     params.Username,
		PasswordHash: params.PasswordHash,
	}
	f.players[p.Username] = p
	return p, nil
}

func (f *fakePlayers) FetchPlayer(_ context.Context, username string) (*repository.Player, error) {
	p, ok := f.players[username]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func newAuth(t *testing.T) (*Auth, *config.Cookies) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	cookies := config.NewCookiesWith(
		"localhost", false, http.SameSiteLaxMode,
		config.NewJWTFromKeys(key, &key.PublicKey, time.Hour),
	)
	a := NewAuth(discard, &fakePlayers{players: map[string]*repository.Player{}}, cookies)
	a.cost = bcrypt.MinCost
	return a, cookies
}

func postForm(h http.HandlerFunc, username, password string) *httptest.ResponseRecorder {
	form := url.Values{}
	if username != "" {
		form.Set("username", username)
	}
	if password != "" {
		form.Set("password", password)
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestRegisterAndLogin(t *testing.T) {
	a, cookies := newAuth(t)

	rec := postForm(a.Register, "sapper", "hunter2")
	require.Equal(t, http.StatusOK, rec.Code)
	var status Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.LoggedIn)
	assert.Equal(t, "sapper", status.Player.Username)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	claims, err := cookies.ParsePlayerClaims(req)
	require.NoError(t, err)
	assert.Equal(t, status.Player.PlayerId, claims.PlayerId)

	assert.Equal(t, http.StatusConflict, postForm(a.Register, "sapper", "other").Code)
	assert.Equal(t, http.StatusOK, postForm(a.Login, "sapper", "hunter2").Code)
	assert.Equal(t, http.StatusUnauthorized, postForm(a.Login, "sapper", "hunter3").Code)
	assert.Equal(t, http.StatusUnauthorized, postForm(a.Login, "nobody", "hunter2").Code)
}

func TestRegisterBadBody(t *testing.T) {
	a, _ := newAuth(t)

	assert.Equal(t, http.StatusBadRequest, postForm(a.Register, "sapper", "").Code)
	assert.Equal(t, http.StatusBadRequest, postForm(a.Register, "", "secret").Code)
	assert.Equal(t, http.StatusBadRequest,
		postForm(a.Register, "sapper", strings.Repeat("x", 73)).Code)
}

func TestStatusAndLogout(t *testing.T) {
	a, _ := newAuth(t)

	rec := httptest.NewRecorder()
	a.Status(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.JSONEq(t, `{"logged_in":false}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(middleware.WithPlayerClaims(
		req.Context(), config.NewPlayerClaims(4, "mole"),
	))
	rec = httptest.NewRecorder()
	a.Status(rec, req)
	assert.JSONEq(t,
		`{"logged_in":true,"player":{"player_id":4,"username":"mole"}}`,
		rec.Body.String())
	assert.Len(t, rec.Result().Cookies(), 2)

	rec = httptest.NewRecorder()
	a.Logout(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	for _, c := range rec.Result().Cookies() {
		assert.Equal(t, -1, c.MaxAge)
	}
}

type fakeHighscores struct {
	filter repository.HighscoreFilter
	scores []repository.Highscore
}

func (f *fakeHighscores) GetHighscores(
	_ context.Context, filter repository.HighscoreFilter,
) ([]repository.Highscore, error) {
	f.filter = filter
	return f.scores, nil
}

func TestHighscores(t *testing.T) {
	scores := &fakeHighscores{}
	h := NewHighscoreHandler(discard, scores)

	rec := httptest.NewRecorder()
	h.Fetch(rec, httptest.NewRequest(http.MethodGet, "/highscores", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Nil(t, scores.filter.Username)

	username := "sapper"
	scores.scores = []repository.Highscore{{
		GameRecordId: 1, Username: &username,
		Width: 16, Height: 16, MineCount: 40, PlaytimeMs: 61000,
	}}
	rec = httptest.NewRecorder()
	h.Fetch(rec, httptest.NewRequest(http.MethodGet, "/highscores?username=sapper&limit=5", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, scores.filter.Username)
	assert.Equal(t, "sapper", *scores.filter.Username)
	assert.Equal(t, 5, scores.filter.Limit)

	var got []repository.Highscore
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, scores.scores, got)

	rec = httptest.NewRecorder()
	h.Fetch(rec, httptest.NewRequest(http.MethodGet, "/highscores?limit=many", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeRecords struct {
	records map[int64]*repository.GameRecord
}

func (f fakeRecords) FetchGameRecord(_ context.Context, id int64) (*repository.GameRecord, error) {
	record, ok := f.records[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return record, nil
}

func TestFetchRecord(t *testing.T) {
	field, err := mines.NewField(3, 3)
	require.NoError(t, err)
	require.NoError(t, field.PlaceMine(0, 0))
	g := mines.NewGameWithField(field, nil)
	require.NoError(t, g.Open(2, 2))
	require.Equal(t, mines.Won, g.State())
	state, err := g.Bytes()
	require.NoError(t, err)

	playerId := int64(8)
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	records := fakeRecords{records: map[int64]*repository.GameRecord{
		4: {
			GameRecordId: 4, SessionId: "cafe", PlayerId: &playerId,
			Width: 3, Height: 3, MineCount: 1, Won: true,
			StartedAt: start, EndedAt: start.Add(2 * time.Second),
			State: state,
		},
		5: {GameRecordId: 5, State: []byte("broken")},
	}}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /records/{id}", NewRecordHandler(discard, records).Fetch)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/records/4", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var view RecordView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, int64(4), view.RecordId)
	require.NotNil(t, view.PlayerId)
	assert.Equal(t, playerId, *view.PlayerId)
	require.NotNil(t, view.GameView)
	assert.Equal(t, "cafe", view.Id)
	assert.Equal(t, mines.Won, view.State)
	assert.Equal(t, 0, view.MinesRemaining)
	assert.True(t, view.Grid[0].Flagged)
	require.NotNil(t, view.EndedAt)
	assert.Equal(t, int64(2000), *view.EndedAt-view.StartedAt)

	tests := []struct {
		target string
		status int
	}{
		{"/records/9", http.StatusNotFound},
		{"/records/abc", http.StatusBadRequest},
		{"/records/5", http.StatusInternalServerError},
	}
	for _, test := range tests {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, test.target, nil))
		assert.Equal(t, test.status, rec.Code, test.target)
	}
}
