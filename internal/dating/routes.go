package dating

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/gorilla/mux"

	"github.com/imadgeboyega/kiekky-match/internal/auth"
	"github.com/imadgeboyega/kiekky-match/internal/common/utils"
)

// RouteOptions configures the transport around the handlers.
type RouteOptions struct {
	SwipeRateLimit  int
	SwipeRateWindow time.Duration
	// Hub serves /ws when set.
	Hub *Hub
}

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware, opts RouteOptions) {
	api := router.PathPrefix("/api/v1/dating").Subrouter()
	api.Use(authMiddleware.Authenticate)

	// Feed
	api.HandleFunc("/feed", handler.GetFeed).Methods("GET")
	api.HandleFunc("/recommendations", handler.GetRecommendations).Methods("GET")

	// Swipes
	api.Handle("/swipes", swipeLimiter(opts)(http.HandlerFunc(handler.RecordSwipe))).Methods("POST")

	// Matches
	api.HandleFunc("/matches", handler.GetMatches).Methods("GET")
	api.HandleFunc("/matches/{userId}", handler.CheckMatch).Methods("GET")

	// Operations, admin tokens only
	adminOnly := authMiddleware.RequireRole(auth.RoleAdmin)
	api.Handle("/stats", adminOnly(http.HandlerFunc(handler.GetStats))).Methods("GET")

	// Realtime match events
	if opts.Hub != nil {
		api.HandleFunc("/ws", opts.Hub.ServeWS).Methods("GET")
	}
}

// swipeLimiter limits swipes per authenticated caller.
func swipeLimiter(opts RouteOptions) func(http.Handler) http.Handler {
	if opts.SwipeRateLimit <= 0 || opts.SwipeRateWindow <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return httprate.Limit(
		opts.SwipeRateLimit,
		opts.SwipeRateWindow,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if userID, ok := auth.GetUserIDFromContext(r.Context()); ok {
				return "user:" + userID, nil
			}
			return httprate.KeyByIP(r)
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			utils.RespondWithError(w, http.StatusTooManyRequests, "Too many swipes, slow down")
		}),
	)
}
