package httpapi

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/schema"
	"github.com/sirupsen/logrus"

	"github.com/vkoval/minelink/internal/game"
	"github.com/vkoval/minelink/internal/middleware"
	"github.com/vkoval/minelink/internal/mines"
	"github.com/vkoval/minelink/internal/peer"
	"github.com/vkoval/minelink/internal/transport"
)

type PracticeDTO struct {
	Preset string `schema:"preset"`
	Rows   int    `schema:"rows"`
	Cols   int    `schema:"cols"`
	Mines  int    `schema:"mines"`
}

// difficulty resolves the requested board. A named preset wins over
// explicit dimensions; with neither the game defaults to beginner.
func (dto PracticeDTO) difficulty() (mines.Difficulty, error) {
	if dto.Preset != "" {
		d, ok := mines.PresetByName(dto.Preset)
		if !ok {
			return mines.Difficulty{}, fmt.Errorf("unknown preset %q", dto.Preset)
		}
		return d, nil
	}
	if dto.Rows > 0 || dto.Cols > 0 || dto.Mines > 0 {
		return mines.Custom(dto.Rows, dto.Cols, dto.Mines), nil
	}
	return mines.Beginner, nil
}

// Practice runs a server-hosted single-player game over one websocket. The
// server plays the authoritative host role; the connecting client speaks
// the ordinary guest protocol, so the browser side is identical to a
// relayed multiplayer game minus the second player.
func (a *App) Practice(w http.ResponseWriter, r *http.Request) {
	var dto PracticeDTO
	dec := schema.NewDecoder()
	dec.IgnoreUnknownKeys(true)
	if err := dec.Decode(&dto, r.URL.Query()); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		a.sendJSONOrLog(w, wrapError(err))
		return
	}
	difficulty, err := dto.difficulty()
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		a.sendJSONOrLog(w, wrapError(err))
		return
	}

	username := ""
	if claims := middleware.PlayerClaims(r.Context()); claims != nil {
		username = claims.Username
	}

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.WithField("error", err).Warn("unable to upgrade practice connection")
		return
	}

	log := a.logger.WithFields(logrus.Fields{
		"practice": uuid.NewString(),
		"username": username,
	})
	log.Info("practice session started")

	// Sessions run concurrently and rand.Rand is not safe to share; each
	// game gets its own generator seeded from the global source.
	rnd := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	sess := game.NewSession(difficulty, rnd)
	host := peer.NewHost(a.logger, sess, peer.HostEvents{
		OnStatusChange: func(status game.Status) {
			if status != game.Won {
				return
			}
			a.recordWin(log, username, sess.Difficulty(), sess.Elapsed())
		},
		OnDisconnect: func(err error) {
			log.WithField("error", err).Info("practice session ended")
		},
	})

	tr := transport.Accept(a.logger, conn)
	host.SetTransport(tr)
	tr.Start(host.Handlers())
	host.StartGame(difficulty)
}

// recordWin submits a completed time to the best-time tables: always to
// the anonymous server-wide scope, and to the player scope when logged in.
// Custom boards have no table to land in.
func (a *App) recordWin(
	log *logrus.Entry, username string, d mines.Difficulty, seconds int,
) {
	name := strings.ToLower(d.Name)
	if _, ok := mines.PresetByName(name); !ok {
		return
	}

	improved, err := a.records.Submit("", name, seconds)
	if err != nil {
		log.WithField("error", err).Error("unable to record best time")
	} else if improved {
		log.WithFields(logrus.Fields{
			"difficulty": name, "seconds": seconds,
		}).Info("new server best time")
	}

	if username == "" {
		return
	}
	improved, err = a.records.Submit(username, name, seconds)
	if err != nil {
		log.WithField("error", err).Error("unable to record player best time")
	} else if improved {
		log.WithFields(logrus.Fields{
			"difficulty": name, "seconds": seconds,
		}).Info("new player best time")
	}
}
