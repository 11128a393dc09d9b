// Package httpapi is the HTTP surface of the server: account endpoints,
// best-time records, room creation and the websocket endpoints (relayed
// rooms and server-hosted practice games).
package httpapi

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/vkoval/minelink/internal/config"
	"github.com/vkoval/minelink/internal/middleware"
	"github.com/vkoval/minelink/internal/players"
	"github.com/vkoval/minelink/internal/records"
	"github.com/vkoval/minelink/internal/relay"
)

type App struct {
	logger   *logrus.Logger
	players  *players.Repository
	records  *records.BestTimes
	cookies  *config.Cookies
	jwt      *config.JWT
	relay    *relay.Relay
	rooms    *roomLimiter
	upgrader websocket.Upgrader
}

func NewApp(
	logger *logrus.Logger,
	cfg *config.Config,
	db *sql.DB,
	jwt *config.JWT,
) (*App, error) {
	playerRepo, err := players.NewRepository(db)
	if err != nil {
		return nil, err
	}
	bestTimes, err := records.NewBestTimes(db)
	if err != nil {
		return nil, err
	}
	return &App{
		logger:  logger,
		players: playerRepo,
		records: bestTimes,
		cookies: config.NewCookies(cfg, jwt),
		jwt:     jwt,
		relay:   relay.New(logger),
		rooms:   newRoomLimiter(cfg.RoomsPerMin),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}, nil
}

func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/register", a.Register)
	mux.HandleFunc("POST /v1/login", a.Login)
	mux.HandleFunc("POST /v1/logout", a.Logout)
	mux.HandleFunc("GET /v1/status", a.Status)

	mux.HandleFunc("GET /v1/records", a.Records)
	mux.HandleFunc("GET /v1/myrecords", a.MyRecords)

	mux.HandleFunc("POST /v1/rooms", a.CreateRoom)
	mux.HandleFunc("GET /v1/rooms/{code}/{role}", a.relay.HandleWS)
	mux.HandleFunc("GET /v1/practice", a.Practice)

	return middleware.Wrap(
		mux,
		middleware.Auth(a.cookies),
		middleware.Logging(a.logger),
		middleware.Cors(),
	)
}

func sendJSON(w http.ResponseWriter, v any) (int, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	w.Header().Add("Content-Type", "application/json")
	return w.Write(payload)
}

func (a *App) sendJSONOrLog(w http.ResponseWriter, v any) {
	if _, err := sendJSON(w, v); err != nil {
		a.logger.WithField("error", err).Error("unable to send response")
	}
}

func wrapError(err error) map[string]string {
	return map[string]string{
		"error": err.Error(),
	}
}
