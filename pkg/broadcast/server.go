package broadcast

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/driftline-labs/dexcore/pkg/orderbook"
)

// BookLookup resolves a pair symbol (e.g. "ETH/USDC") to its order book, or
// reports ok=false if no such market exists.
type BookLookup func(symbol string) (*orderbook.Book, bool)

// Server is the minimal REST + WebSocket façade over the engine: mux for
// routing, rs/cors for the browser-facing CORS policy, and the Hub above
// for fan-out.
type Server struct {
	log    *zap.Logger
	router *mux.Router
	hub    *Hub
	lookup BookLookup
}

func NewServer(log *zap.Logger, lookup BookLookup) *Server {
	s := &Server{
		log:    log,
		router: mux.NewRouter(),
		hub:    NewHub(log),
		lookup: lookup,
	}
	s.setupRoutes()
	return s
}

// Hub exposes the underlying hub so a caller can wire order book notifiers
// directly into Publish.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/markets/{symbol}/depth", s.handleDepth).Methods("GET")
	s.router.HandleFunc("/ws", s.hub.ServeWS)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start begins the hub's dispatch loop and serves HTTP on addr. Blocks
// until the listener fails, the way net/http.ListenAndServe always does.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})

	s.log.Info("broadcast server starting", zap.String("addr", addr))
	return http.ListenAndServe(addr, c.Handler(s.router))
}

func (s *Server) handleDepth(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	book, ok := s.lookup(symbol)
	if !ok {
		respondError(w, http.StatusNotFound, "market not found")
		return
	}

	n := 20
	if raw := r.URL.Query().Get("n"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			n = parsed
		}
	}
	respondJSON(w, book.Depth(n))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
