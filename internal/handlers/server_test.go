package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wordroom/wordroom-server/internal/catalog"
	"github.com/wordroom/wordroom-server/internal/lifecycle"
	"github.com/wordroom/wordroom-server/internal/models"
	"github.com/wordroom/wordroom-server/internal/repo"
	"github.com/wordroom/wordroom-server/internal/rounds"
	"github.com/wordroom/wordroom-server/internal/store"
	"github.com/wordroom/wordroom-server/internal/watch"
)

const testSecret = "test-secret"

type fakeCatalog struct{}

func (fakeCatalog) Games(context.Context) ([]catalog.Game, error) {
	return []catalog.Game{{ID: "word_match", Name: "Word Match", Mode: "multiple-choice", IsActive: true}}, nil
}

func (fakeCatalog) DefaultSettings(context.Context, string) (models.GameSettings, error) {
	return models.GameSettings{
		MinPlayers: 2, MaxPlayers: 4,
		QuestionsCount: 5, TimePerQuestion: 20, Difficulty: "mixed",
	}, nil
}

type fakeRunner struct {
	began    []string
	beginErr error
}

func (f *fakeRunner) Begin(_ context.Context, room *models.Room) error {
	if f.beginErr != nil {
		return f.beginErr
	}
	f.began = append(f.began, room.ID)
	return nil
}

func (f *fakeRunner) Session(context.Context, string) (*rounds.Session, error) {
	return &rounds.Session{RoomID: "X"}, nil
}

type fixture struct {
	router *gin.Engine
	runner *fakeRunner
	rooms  *repo.Rooms
	svc    *lifecycle.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()
	mem := store.NewMemory()
	rooms := repo.NewRooms(mem, log)
	players := repo.NewPlayers(mem, log)
	svc := lifecycle.New(rooms, players, fakeCatalog{}, log)
	hub := watch.NewHub(context.Background(), rooms, log)
	runner := &fakeRunner{}

	server := NewServer(testSecret, players, rooms, svc, fakeCatalog{}, runner, hub, log)
	router := gin.New()
	server.Routes(router)
	return &fixture{router: router, runner: runner, rooms: rooms, svc: svc}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// register creates a player through the API and returns its id and token.
func (f *fixture) register(t *testing.T, name string) (string, string) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/players", "", gin.H{"name": name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Player models.Player `json:"player"`
		Token  string        `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Player.ID, resp.Token
}

func (f *fixture) createRoom(t *testing.T, token string) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/rooms", token, gin.H{"gameId": "word_match"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var room models.Room
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &room))
	return room.ID
}

func TestCreatePlayer_RejectsBadNames(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"", "   ", "this name is far too long for a player"} {
		rec := f.do(t, http.MethodPost, "/api/players", "", gin.H{"name": name})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "name %q", name)
	}
}

func TestGetPlayer_RequiresToken(t *testing.T) {
	f := newFixture(t)
	id, token := f.register(t, "alice")

	rec := f.do(t, http.MethodGet, "/api/players/"+id, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/players/"+id, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPatchPlayer_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	aliceID, _ := f.register(t, "alice")
	_, bobToken := f.register(t, "bob")

	rec := f.do(t, http.MethodPatch, "/api/players/"+aliceID, bobToken, gin.H{"name": "mallory"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPatchPlayer_UpdatesName(t *testing.T) {
	f := newFixture(t)
	id, token := f.register(t, "alice")

	rec := f.do(t, http.MethodPatch, "/api/players/"+id, token, gin.H{"name": "  alicia  "})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var player models.Player
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &player))
	assert.Equal(t, "alicia", player.Name)
}

func TestListGames(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/games", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "word_match")
}

func TestRoomFlow_CreateJoinStart(t *testing.T) {
	f := newFixture(t)
	_, hostToken := f.register(t, "host")
	_, guestToken := f.register(t, "guest")

	code := f.createRoom(t, hostToken)

	rec := f.do(t, http.MethodPost, "/api/rooms/"+code+"/join", guestToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/rooms/"+code+"/start", guestToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "only the host starts")

	rec = f.do(t, http.MethodPost, "/api/rooms/"+code+"/start", hostToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{code}, f.runner.began)

	var room models.Room
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &room))
	assert.Equal(t, models.StatusPlaying, room.Status)
}

func TestStartGame_NotEnoughPlayers(t *testing.T) {
	f := newFixture(t)
	_, hostToken := f.register(t, "host")
	code := f.createRoom(t, hostToken)

	rec := f.do(t, http.MethodPost, "/api/rooms/"+code+"/start", hostToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, f.runner.began)
}

func TestStartGame_BeginFailureFinishesRoom(t *testing.T) {
	f := newFixture(t)
	_, hostToken := f.register(t, "host")
	_, guestToken := f.register(t, "guest")
	code := f.createRoom(t, hostToken)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/rooms/"+code+"/join", guestToken, nil).Code)

	f.runner.beginErr = assert.AnError
	rec := f.do(t, http.MethodPost, "/api/rooms/"+code+"/start", hostToken, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	room, err := f.rooms.Get(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, room.Status, "room must not stay playing with no round")
}

func TestJoinRoom_FullIsConflict(t *testing.T) {
	f := newFixture(t)
	_, hostToken := f.register(t, "host")
	code := f.createRoom(t, hostToken)

	var last *httptest.ResponseRecorder
	for i := 0; i < 4; i++ {
		_, token := f.register(t, "guest")
		last = f.do(t, http.MethodPost, "/api/rooms/"+code+"/join", token, nil)
	}
	assert.Equal(t, http.StatusConflict, last.Code, "room capacity is 4")
}

func TestJoinRoom_UnknownRoom(t *testing.T) {
	f := newFixture(t)
	_, token := f.register(t, "alice")
	rec := f.do(t, http.MethodPost, "/api/rooms/NOSUCH/join", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestKickPlayer_HostOnly(t *testing.T) {
	f := newFixture(t)
	hostID, hostToken := f.register(t, "host")
	guestID, guestToken := f.register(t, "guest")
	code := f.createRoom(t, hostToken)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/rooms/"+code+"/join", guestToken, nil).Code)

	rec := f.do(t, http.MethodPost, "/api/rooms/"+code+"/kick", guestToken, gin.H{"playerId": hostID})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/rooms/"+code+"/kick", hostToken, gin.H{"playerId": guestID})
	require.Equal(t, http.StatusOK, rec.Code)

	room, err := f.rooms.Get(context.Background(), code)
	require.NoError(t, err)
	assert.False(t, room.HasPlayer(guestID))
}

func TestUpdateSettings_Validation(t *testing.T) {
	f := newFixture(t)
	_, hostToken := f.register(t, "host")
	code := f.createRoom(t, hostToken)

	rec := f.do(t, http.MethodPatch, "/api/rooms/"+code+"/settings", hostToken, models.GameSettings{
		MinPlayers: 1, MaxPlayers: 99, QuestionsCount: 0, TimePerQuestion: 1, Difficulty: "extreme",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPatch, "/api/rooms/"+code+"/settings", hostToken, models.GameSettings{
		MinPlayers: 2, MaxPlayers: 8, QuestionsCount: 10, TimePerQuestion: 30, Difficulty: "hard",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var room models.Room
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &room))
	assert.Equal(t, 8, room.GameSettings.MaxPlayers)
}

func TestLeaveRoom_LastPlayerDeletesRoom(t *testing.T) {
	f := newFixture(t)
	_, hostToken := f.register(t, "host")
	code := f.createRoom(t, hostToken)

	rec := f.do(t, http.MethodPost, "/api/rooms/"+code+"/leave", hostToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/rooms/"+code, hostToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSession_MembersOnly(t *testing.T) {
	f := newFixture(t)
	_, hostToken := f.register(t, "host")
	_, outsiderToken := f.register(t, "outsider")
	code := f.createRoom(t, hostToken)

	rec := f.do(t, http.MethodGet, "/api/rooms/"+code+"/session", outsiderToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/rooms/"+code+"/session", hostToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
