package httpapi

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// roomLimiter throttles room creation per client IP. Limiters for idle
// clients are pruned on the way in, so the map stays bounded by recent
// traffic.
type roomLimiter struct {
	mu      sync.Mutex
	perMin  int
	clients map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRoomLimiter(perMin int) *roomLimiter {
	if perMin <= 0 {
		perMin = 10
	}
	return &roomLimiter{
		perMin:  perMin,
		clients: make(map[string]*clientLimiter),
	}
}

func (l *roomLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for k, c := range l.clients {
		if now.Sub(c.lastSeen) > 10*time.Minute {
			delete(l.clients, k)
		}
	}

	c, ok := l.clients[ip]
	if !ok {
		c = &clientLimiter{
			limiter: rate.NewLimiter(
				rate.Every(time.Minute/time.Duration(l.perMin)), l.perMin,
			),
		}
		l.clients[ip] = c
	}
	c.lastSeen = now
	return c.limiter.Allow()
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, ok := strings.Cut(xff, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type RoomDTO struct {
	Code string `json:"code"`
}

// CreateRoom allocates a relay room and returns its join code. The host
// connects to /v1/rooms/{code}/host, shares the code out of band, and the
// guest joins at /v1/rooms/{code}/guest.
func (a *App) CreateRoom(w http.ResponseWriter, r *http.Request) {
	if !a.rooms.allow(clientIP(r)) {
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}

	code, err := a.relay.CreateRoom()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		a.logger.WithField("error", err).Error("unable to create room")
		return
	}

	a.sendJSONOrLog(w, &RoomDTO{Code: code})
}
