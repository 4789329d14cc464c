package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/quantedge/thv-engine/pkg/engine"
	"github.com/quantedge/thv-engine/pkg/margin"
	"github.com/quantedge/thv-engine/pkg/models"
	"github.com/quantedge/thv-engine/pkg/optionmath"
	"github.com/quantedge/thv-engine/pkg/valuation"
	"github.com/sirupsen/logrus"
)

// Server exposes the engine over HTTP and streams live comparison rows over
// a WebSocket. It is a thin caller: all pricing logic stays in the engine
// packages.
type Server struct {
	model     *valuation.Model
	engine    *engine.ComparisonEngine
	estimator *margin.Estimator
	logger    *logrus.Logger
	port      string

	streamInterval time.Duration
	upgrader       websocket.Upgrader
	wsClients      map[*websocket.Conn]streamRequest
	wsMu           sync.Mutex
}

type streamRequest struct {
	underlying string
	quantity   float64
}

func NewServer(model *valuation.Model, cmp *engine.ComparisonEngine, estimator *margin.Estimator, logger *logrus.Logger, port string, streamInterval time.Duration) *Server {
	return &Server{
		model:          model,
		engine:         cmp,
		estimator:      estimator,
		logger:         logger,
		port:           port,
		streamInterval: streamInterval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		wsClients: make(map[*websocket.Conn]streamRequest),
	}
}

func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/snapshots", s.handleSnapshots)
	mux.HandleFunc("/api/contracts", s.handleContracts)
	mux.HandleFunc("/api/fairvalue", s.handleFairValue)
	mux.HandleFunc("/api/comparisons", s.handleComparisons)
	mux.HandleFunc("/api/optimal", s.handleOptimal)
	mux.HandleFunc("/api/greeks", s.handleGreeks)
	mux.HandleFunc("/api/margin", s.handleMargin)
	mux.HandleFunc("/ws", s.handleWebSocket)

	handler := corsMiddleware(mux)

	go s.streamComparisons()

	s.logger.Infof("Starting API server on port %s", s.port)
	return http.ListenAndServe(":"+s.port, handler)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var snap models.MarketSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if snap.ObservedAt.IsZero() {
		snap.ObservedAt = time.Now().UTC()
	}

	s.model.RecordSnapshot(snap)
	s.writeJSON(w, http.StatusAccepted, snap)
}

func (s *Server) handleContracts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var contract models.ContractDefinition
	if err := json.NewDecoder(r.Body).Decode(&contract); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.model.LoadContract(contract); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, valuation.ErrContractExists) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}

	s.writeJSON(w, http.StatusCreated, contract)
}

func (s *Server) handleFairValue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	symbol := r.URL.Query().Get("symbol")
	value, err := s.model.FairValue(symbol)
	if err != nil {
		if errors.Is(err, valuation.ErrContractNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":     symbol,
		"fair_value": value,
	})
}

func (s *Server) handleComparisons(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	underlying := r.URL.Query().Get("underlying")
	quantity := queryFloat(r, "quantity", 1)

	s.writeJSON(w, http.StatusOK, s.engine.CompareContracts(underlying, quantity))
}

func (s *Server) handleOptimal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	underlying := r.URL.Query().Get("underlying")
	kind := models.ContractKind(r.URL.Query().Get("kind"))
	quantity := queryFloat(r, "quantity", 1)

	result, err := s.engine.FindOptimalContract(underlying, kind, quantity)
	if err != nil {
		if errors.Is(err, engine.ErrNoContract) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGreeks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	right := models.OptionRight(q.Get("right"))
	if right != models.RightCall && right != models.RightPut {
		http.Error(w, fmt.Sprintf("invalid right: %q", q.Get("right")), http.StatusBadRequest)
		return
	}

	greeks := optionmath.Compute(
		queryFloat(r, "spot", 0),
		queryFloat(r, "strike", 0),
		queryFloat(r, "t", 0),
		queryFloat(r, "rate", s.model.RiskFreeRate()),
		queryFloat(r, "vol", 0),
		right,
	)

	s.writeJSON(w, http.StatusOK, greeks)
}

func (s *Server) handleMargin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var positions []models.Position
	if err := json.NewDecoder(r.Body).Decode(&positions); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.writeJSON(w, http.StatusOK, s.estimator.Estimate(positions))
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Error("WebSocket upgrade failed")
		return
	}

	req := streamRequest{
		underlying: r.URL.Query().Get("underlying"),
		quantity:   queryFloat(r, "quantity", 1),
	}

	s.wsMu.Lock()
	s.wsClients[conn] = req
	clients := len(s.wsClients)
	s.wsMu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"underlying": req.underlying,
		"clients":    clients,
	}).Info("WebSocket client connected")

	// Reads are only consumed to detect disconnects.
	go func() {
		defer func() {
			s.wsMu.Lock()
			delete(s.wsClients, conn)
			s.wsMu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// streamComparisons periodically pushes fresh comparison rows to every
// connected client for its requested underlying.
func (s *Server) streamComparisons() {
	ticker := time.NewTicker(s.streamInterval)
	defer ticker.Stop()

	for range ticker.C {
		s.wsMu.Lock()
		for conn, req := range s.wsClients {
			results := s.engine.CompareContracts(req.underlying, req.quantity)
			if err := conn.WriteJSON(map[string]interface{}{
				"type":        "comparisons",
				"underlying":  req.underlying,
				"comparisons": results,
				"timestamp":   time.Now().UTC(),
			}); err != nil {
				s.logger.WithError(err).Info("Dropping WebSocket client")
				conn.Close()
				delete(s.wsClients, conn)
			}
		}
		s.wsMu.Unlock()
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

func queryFloat(r *http.Request, key string, fallback float64) float64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}
