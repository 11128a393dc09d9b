package httpapi

import (
	"net/http"

	"github.com/vkoval/minelink/internal/middleware"
)

// Records lists the server-wide anonymous best times, one per difficulty.
func (a *App) Records(w http.ResponseWriter, _ *http.Request) {
	recs, err := a.records.All("")
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		a.logger.WithField("error", err).Error("unable to list records")
		return
	}
	a.sendJSONOrLog(w, recs)
}

// MyRecords lists the logged-in player's best times.
func (a *App) MyRecords(w http.ResponseWriter, r *http.Request) {
	claims := middleware.PlayerClaims(r.Context())
	if claims == nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	recs, err := a.records.All(claims.Username)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		a.logger.WithField("error", err).Error("unable to list records")
		return
	}
	a.sendJSONOrLog(w, recs)
}
