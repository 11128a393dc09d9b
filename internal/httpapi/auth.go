package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/vkoval/minelink/internal/config"
	"github.com/vkoval/minelink/internal/middleware"
	"github.com/vkoval/minelink/internal/players"
)

var (
	ErrBadAuthBody        = fmt.Errorf("request body must contain url-encoded username and password")
	ErrBadPasswordTooLong = fmt.Errorf("password too long")
	ErrBadCredentials     = fmt.Errorf("invalid username or password")
)

type PlayerInfo struct {
	PlayerId int64  `json:"player_id"`
	Username string `json:"username"`
}

type AuthStatus struct {
	LoggedIn bool        `json:"logged_in"`
	Player   *PlayerInfo `json:"player,omitempty"`
}

func (a *App) Status(w http.ResponseWriter, r *http.Request) {
	claims := middleware.PlayerClaims(r.Context())
	if claims == nil {
		a.cookies.Clear(w)
		a.sendJSONOrLog(w, &AuthStatus{LoggedIn: false})
		return
	}

	token, err := a.jwt.Sign(
		config.NewPlayerClaims(claims.PlayerId, claims.Username),
	)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		a.logger.WithField("error", err).Error("unable to refresh token")
		return
	}
	a.cookies.Refresh(w, token)

	a.sendJSONOrLog(w, &AuthStatus{
		LoggedIn: true,
		Player:   &PlayerInfo{claims.PlayerId, claims.Username},
	})
}

func (a *App) Register(w http.ResponseWriter, r *http.Request) {
	username, password, ok := parseCredentials(r)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		a.sendJSONOrLog(w, wrapError(ErrBadAuthBody))
		return
	}

	// bcrypt silently truncates longer inputs
	if len([]byte(password)) > 72 {
		w.WriteHeader(http.StatusBadRequest)
		a.sendJSONOrLog(w, wrapError(ErrBadPasswordTooLong))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		a.logger.WithField("error", err).Error("unable to hash password")
		return
	}

	player, err := a.players.Create(r.Context(), username, hash)
	if errors.Is(err, players.ErrUsernameTaken) {
		w.WriteHeader(http.StatusConflict)
		a.sendJSONOrLog(w, wrapError(err))
		return
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		a.logger.WithField("error", err).Error("unable to insert player")
		return
	}

	a.startSession(w, player)
}

func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	username, password, ok := parseCredentials(r)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		a.sendJSONOrLog(w, wrapError(ErrBadAuthBody))
		return
	}

	player, err := a.players.GetByUsername(r.Context(), username)
	if errors.Is(err, players.ErrNotFound) {
		w.WriteHeader(http.StatusUnauthorized)
		a.sendJSONOrLog(w, wrapError(ErrBadCredentials))
		return
	}
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		a.logger.WithField("error", err).Error("unable to fetch player")
		return
	}

	if bcrypt.CompareHashAndPassword(player.PasswordHash, []byte(password)) != nil {
		w.WriteHeader(http.StatusUnauthorized)
		a.sendJSONOrLog(w, wrapError(ErrBadCredentials))
		return
	}

	a.startSession(w, player)
}

func (a *App) Logout(w http.ResponseWriter, _ *http.Request) {
	a.cookies.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) startSession(w http.ResponseWriter, player *players.Player) {
	token, err := a.jwt.Sign(config.NewPlayerClaims(player.ID, player.Username))
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		a.logger.WithField("error", err).Error("unable to sign token")
		return
	}
	if err := a.cookies.Refresh(w, token); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		a.logger.WithField("error", err).Error("unable to set cookies")
		return
	}
	a.sendJSONOrLog(w, &PlayerInfo{player.ID, player.Username})
}

func parseCredentials(r *http.Request) (username, password string, ok bool) {
	if err := r.ParseForm(); err != nil {
		return "", "", false
	}
	username = r.FormValue("username")
	password = r.FormValue("password")
	return username, password, username != "" && password != ""
}
