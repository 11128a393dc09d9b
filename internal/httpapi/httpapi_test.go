package httpapi_test

import (
	"crypto/rand"
	"crypto/rsa"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkoval/minelink/internal/config"
	"github.com/vkoval/minelink/internal/game"
	"github.com/vkoval/minelink/internal/httpapi"
	"github.com/vkoval/minelink/internal/mines"
	"github.com/vkoval/minelink/internal/proto"
	"github.com/vkoval/minelink/internal/records"
	"github.com/vkoval/minelink/internal/transport"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newTestServer(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()

	cfg := config.Default()
	cfg.RoomsPerMin = 3

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	jwt := config.NewJWTFromKeys(privateKey, &privateKey.PublicKey, time.Hour)

	app, err := httpapi.NewApp(testLogger(), cfg, db, jwt)
	require.NoError(t, err)

	srv := httptest.NewServer(app.Handler())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return srv, &http.Client{Jar: jar}
}

func credentials(username, password string) url.Values {
	return url.Values{
		"username": {username},
		"password": {password},
	}
}

func TestRegisterLoginStatus(t *testing.T) {
	srv, client := newTestServer(t)

	res, err := client.PostForm(srv.URL+"/v1/register", credentials("alice", "hunter2"))
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, err = client.Get(srv.URL + "/v1/status")
	require.NoError(t, err)
	var status httpapi.AuthStatus
	require.NoError(t, json.NewDecoder(res.Body).Decode(&status))
	res.Body.Close()
	assert.True(t, status.LoggedIn)
	require.NotNil(t, status.Player)
	assert.Equal(t, "alice", status.Player.Username)

	res, err = client.Post(srv.URL+"/v1/logout", "", nil)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusNoContent, res.StatusCode)

	res, err = client.Get(srv.URL + "/v1/status")
	require.NoError(t, err)
	status = httpapi.AuthStatus{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&status))
	res.Body.Close()
	assert.False(t, status.LoggedIn)

	res, err = client.PostForm(srv.URL+"/v1/login", credentials("alice", "hunter2"))
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	srv, client := newTestServer(t)

	res, err := client.PostForm(srv.URL+"/v1/register", credentials("bob", "secret"))
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, err = client.PostForm(srv.URL+"/v1/register", credentials("bob", "other"))
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusConflict, res.StatusCode)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv, client := newTestServer(t)

	res, err := client.PostForm(srv.URL+"/v1/register", credentials("carol", "correct"))
	require.NoError(t, err)
	res.Body.Close()

	res, err = client.PostForm(srv.URL+"/v1/login", credentials("carol", "wrong"))
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, err = client.PostForm(srv.URL+"/v1/login", credentials("nobody", "x"))
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestCreateRoomRateLimited(t *testing.T) {
	srv, client := newTestServer(t)

	var codes []string
	for i := 0; i < 3; i++ {
		res, err := client.Post(srv.URL+"/v1/rooms", "", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, res.StatusCode)
		var room httpapi.RoomDTO
		require.NoError(t, json.NewDecoder(res.Body).Decode(&room))
		res.Body.Close()
		assert.True(t, transport.ValidJoinCode(room.Code))
		codes = append(codes, room.Code)
	}
	assert.NotEqual(t, codes[0], codes[1])

	res, err := client.Post(srv.URL+"/v1/rooms", "", nil)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)
}

func readEnvelope(t *testing.T, conn *websocket.Conn) *proto.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var e proto.Envelope
	require.NoError(t, conn.ReadJSON(&e))
	return &e
}

func readSnapshot(t *testing.T, conn *websocket.Conn) proto.Snapshot {
	t.Helper()
	e := readEnvelope(t, conn)
	require.Equal(t, proto.MsgSyncBoard, e.Type)
	var snap proto.Snapshot
	require.NoError(t, json.Unmarshal(e.Data, &snap))
	return snap
}

func TestPracticeGame(t *testing.T) {
	srv, _ := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(
		wsURL+"/v1/practice?preset=beginner", nil,
	)
	require.NoError(t, err)
	defer conn.Close()

	e := readEnvelope(t, conn)
	require.Equal(t, proto.MsgStartGame, e.Type)
	var start proto.StartGame
	require.NoError(t, json.Unmarshal(e.Data, &start))
	assert.Equal(t, "beginner", start.Difficulty.Name)

	snap := readSnapshot(t, conn)
	assert.Equal(t, game.Idle, snap.Status)
	assert.Equal(t, uint64(1), snap.Seq)
	require.NotNil(t, snap.Board)
	assert.Equal(t, 9, snap.Board.Rows)

	require.NoError(t, conn.WriteJSON(
		proto.MustEncode(proto.MsgClickCell, proto.ClickCell{Row: 4, Col: 4}),
	))

	snap = readSnapshot(t, conn)
	// The opening click is always safe.
	assert.NotEqual(t, game.Lost, snap.Status)
	assert.NotEqual(t, game.Idle, snap.Status)
	assert.Greater(t, snap.Seq, uint64(1))
	assert.Equal(t, 10, snap.Board.MineCount())
}

// winPractice plays a fresh practice connection through to a win. The
// snapshots disclose mine positions, so the client just keeps opening safe
// cells until every one of them is revealed.
func winPractice(t *testing.T, conn *websocket.Conn) proto.Snapshot {
	t.Helper()

	e := readEnvelope(t, conn)
	require.Equal(t, proto.MsgStartGame, e.Type)

	snap := readSnapshot(t, conn)
	require.Equal(t, game.Idle, snap.Status)

	for !snap.Status.Terminal() {
		target := -1
		for i, c := range snap.Board.Cells {
			if !c.Mine && c.Status != mines.Revealed {
				target = i
				break
			}
		}
		require.GreaterOrEqual(t, target, 0, "no safe hidden cell left mid-game")
		require.NoError(t, conn.WriteJSON(proto.MustEncode(
			proto.MsgClickCell,
			proto.ClickCell{Row: target / snap.Board.Cols, Col: target % snap.Board.Cols},
		)))
		snap = readSnapshot(t, conn)
	}
	require.Equal(t, game.Won, snap.Status)
	return snap
}

func fetchRecords(t *testing.T, client *http.Client, url string) []records.Record {
	t.Helper()
	res, err := client.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()
	var recs []records.Record
	require.NoError(t, json.NewDecoder(res.Body).Decode(&recs))
	return recs
}

func TestPracticeWinRecordsBestTime(t *testing.T) {
	srv, client := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	require.Empty(t, fetchRecords(t, client, srv.URL+"/v1/records"))

	conn, _, err := websocket.DefaultDialer.Dial(
		wsURL+"/v1/practice?preset=beginner", nil,
	)
	require.NoError(t, err)
	defer conn.Close()

	snap := winPractice(t, conn)

	// The record write happens on the session goroutine after the winning
	// snapshot goes out.
	require.Eventually(t, func() bool {
		return len(fetchRecords(t, client, srv.URL+"/v1/records")) == 1
	}, 5*time.Second, 10*time.Millisecond, "win did not reach the records store")

	recs := fetchRecords(t, client, srv.URL+"/v1/records")
	assert.Equal(t, "beginner", recs[0].Difficulty)
	assert.Equal(t, snap.Elapsed, recs[0].Seconds)
}

func TestPracticeCustomWinRecordsNothing(t *testing.T) {
	srv, client := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(
		wsURL+"/v1/practice?rows=5&cols=5&mines=3", nil,
	)
	require.NoError(t, err)
	defer conn.Close()

	winPractice(t, conn)

	// Custom boards have no best-time table to land in.
	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, fetchRecords(t, client, srv.URL+"/v1/records"))
}

func TestPracticeRejectsUnknownPreset(t *testing.T) {
	srv, client := newTestServer(t)

	res, err := client.Get(srv.URL + "/v1/practice?preset=nightmare")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}
