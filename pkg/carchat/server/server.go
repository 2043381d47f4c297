package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/chat"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/dal"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/metrics"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/search"
	"github.com/nekruzvatanshoev/carchat/pkg/carchat/stats"
	"github.com/rs/zerolog"
)

// Searcher runs the fallback matcher without the model
type Searcher interface {
	Search(fs dal.FilterSet) search.Result
}

// Replier answers chat messages
type Replier interface {
	Reply(ctx context.Context, text string) chat.Reply
}

// Deps holds the components served over HTTP. Nil components disable their routes.
type Deps struct {
	Chat    Replier
	Search  Searcher
	Stats   *stats.Engine
	Metrics *metrics.Metrics
	Log     zerolog.Logger
}

// NewHTTPServer returns a new HTTP server
func NewHTTPServer(addr string, deps Deps) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter registers every route on a mux router
func NewRouter(deps Deps) *mux.Router {
	server := newHTTPServer(deps)
	r := mux.NewRouter()
	r.Use(server.logRequests)
	r.HandleFunc("/healthz", server.Health).Methods(http.MethodGet)
	if deps.Chat != nil {
		r.HandleFunc("/ask", server.Ask).Methods(http.MethodPost)
	}
	if deps.Search != nil {
		r.HandleFunc("/cars", server.GetCars).Methods(http.MethodGet)
	}
	if deps.Stats != nil {
		r.HandleFunc("/stats/count", server.GetCount).Methods(http.MethodGet)
		r.HandleFunc("/stats/extreme", server.GetExtreme).Methods(http.MethodGet)
		r.HandleFunc("/stats/average", server.GetAverage).Methods(http.MethodGet)
		r.HandleFunc("/stats/price-range", server.GetPriceRange).Methods(http.MethodGet)
	}
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler()).Methods(http.MethodGet)
	}
	return r
}

type httpServer struct {
	chat   Replier
	search Searcher
	stats  *stats.Engine
	log    zerolog.Logger
}

func newHTTPServer(deps Deps) *httpServer {
	return &httpServer{
		chat:   deps.Chat,
		search: deps.Search,
		stats:  deps.Stats,
		log:    deps.Log,
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (h *httpServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		h.log.Info().
			Str("request_id", id).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}
