package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bodul/crossgrid/internal/grid"
)

const (
	maxUploadSize = 10 << 20 // 10 Mo
	maxShapeSize  = 64 << 10
	maxRebusLen   = 8
)

var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

var errInvalidValue = errors.New("invalid cell value")

// rateLimiter is a simple per-IP token bucket rate limiter.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*bucket
	rate     int           // tokens per interval
	interval time.Duration // refill interval
	stop     chan struct{}
}

type bucket struct {
	tokens   int
	lastSeen time.Time
}

func newRateLimiter(rate int, interval time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*bucket),
		rate:     rate,
		interval: interval,
		stop:     make(chan struct{}),
	}
	go rl.cleanup(time.Minute, 5*time.Minute)
	return rl
}

// cleanup drops visitors idle for longer than ttl until close is called.
func (rl *rateLimiter) cleanup(every, ttl time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, b := range rl.visitors {
				if time.Since(b.lastSeen) > ttl {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *rateLimiter) close() {
	close(rl.stop)
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.visitors[ip]
	if !ok {
		rl.visitors[ip] = &bucket{tokens: rl.rate - 1, lastSeen: time.Now()}
		return true
	}

	// Refill tokens based on elapsed time.
	elapsed := time.Since(b.lastSeen)
	refill := int(elapsed / rl.interval)
	if refill > 0 {
		b.tokens += refill * rl.rate
		if b.tokens > rl.rate {
			b.tokens = rl.rate
		}
		b.lastSeen = time.Now()
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// Server is the main HTTP server.
type Server struct {
	mux      *http.ServeMux
	store    *Store
	gemini   *GeminiClient
	sse      *Broadcaster
	logger   *zap.Logger
	uploadRL *rateLimiter
	moveRL   *rateLimiter
}

// NewServer creates a configured HTTP server. gemini may be nil, in which
// case photo analysis is disabled.
func NewServer(store *Store, gemini *GeminiClient, logger *zap.Logger) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		store:    store,
		gemini:   gemini,
		sse:      NewBroadcaster(logger),
		logger:   logger,
		uploadRL: newRateLimiter(5, time.Minute),  // 5 uploads/min per IP
		moveRL:   newRateLimiter(60, time.Second), // 60 moves/sec per IP
	}
	s.routes()
	return s
}

// Close stops the server's background goroutines.
func (s *Server) Close() {
	s.uploadRL.close()
	s.moveRL.close()
}

func (s *Server) routes() {
	// Grid API
	s.mux.HandleFunc("POST /api/grids", s.handleCreateGrid)
	s.mux.HandleFunc("POST /api/grids/text", s.handleCreateTextGrid)
	s.mux.HandleFunc("GET /api/grids", s.handleListGrids)
	s.mux.HandleFunc("GET /api/grids/{id}", s.handleGetGrid)

	// Game API
	s.mux.HandleFunc("POST /api/games", s.handleCreateGame)
	s.mux.HandleFunc("GET /api/games", s.handleListGames)
	s.mux.HandleFunc("GET /api/games/{id}", s.handleGetGame)
	s.mux.HandleFunc("POST /api/games/{id}/join", s.handleJoinGame)
	s.mux.HandleFunc("POST /api/games/{id}/move", s.handleMove)
	s.mux.HandleFunc("POST /api/games/{id}/cursor", s.handleCursor)
	s.mux.HandleFunc("GET /api/games/{id}/events", s.handleGameEvents)
	s.mux.HandleFunc("GET /api/games/{id}/ws", s.handleGameWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
	s.mux.ServeHTTP(w, r)
}

// --- Grid handlers ---

// POST /api/grids: upload image, analyze with Gemini, save grid.
func (s *Server) handleCreateGrid(w http.ResponseWriter, r *http.Request) {
	if !s.uploadRL.allow(r.RemoteAddr) {
		jsonError(w, "Trop de requêtes, réessayez plus tard", http.StatusTooManyRequests)
		return
	}

	if s.gemini == nil {
		jsonError(w, "Analyse d'image non configurée", http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		jsonError(w, "Image trop volumineuse (max 10 Mo)", http.StatusRequestEntityTooLarge)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		jsonError(w, "Champ 'image' requis", http.StatusBadRequest)
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if !allowedMIME[mimeType] {
		jsonError(w, "Format accepté : JPEG ou PNG", http.StatusBadRequest)
		return
	}

	imageData, err := io.ReadAll(file)
	if err != nil {
		jsonError(w, "Erreur de lecture de l'image", http.StatusInternalServerError)
		return
	}

	g, err := s.gemini.AnalyzeImage(r.Context(), imageData, mimeType)
	if err != nil {
		s.logger.Error("gemini analyze", zap.Error(err))
		jsonError(w, "Erreur lors de l'analyse de la grille", http.StatusInternalServerError)
		return
	}

	s.saveGrid(w, g)
}

// POST /api/grids/text: create a grid from a text shape.
func (s *Server) handleCreateTextGrid(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Shape string `json:"shape"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxShapeSize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Shape) == "" {
		jsonError(w, "Champ 'shape' requis", http.StatusBadRequest)
		return
	}

	m, err := grid.ParseShape(req.Shape)
	if err != nil {
		jsonError(w, "Grille invalide : "+err.Error(), http.StatusBadRequest)
		return
	}
	s.saveGrid(w, gridFromModel(m))
}

func (s *Server) saveGrid(w http.ResponseWriter, g *Grid) {
	if _, err := s.store.SaveGrid(g); err != nil {
		s.logger.Warn("rejected grid", zap.Error(err))
		jsonError(w, "Grille invalide", http.StatusUnprocessableEntity)
		return
	}
	s.logger.Info("grid saved", zap.String("grid", g.ID), zap.Int("rows", g.Rows), zap.Int("cols", g.Cols))

	writeJSON(w, http.StatusCreated, g)
}

// GET /api/grids: list all grids.
func (s *Server) handleListGrids(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListGrids())
}

// GET /api/grids/{id}: get a single grid with its numbering.
func (s *Server) handleGetGrid(w http.ResponseWriter, r *http.Request) {
	g := s.store.GetGrid(r.PathValue("id"))
	if g == nil {
		jsonError(w, "Grille introuvable", http.StatusNotFound)
		return
	}
	ng, err := numberGrid(g)
	if err != nil {
		s.logger.Error("number grid", zap.String("grid", g.ID), zap.Error(err))
		jsonError(w, "Grille invalide", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ng)
}

// --- Game handlers ---

// POST /api/games: create a game from a grid.
func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GridID string `json:"grid_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GridID == "" {
		jsonError(w, "Champ 'grid_id' requis", http.StatusBadRequest)
		return
	}

	game, err := s.store.CreateGame(req.GridID)
	if err != nil {
		jsonError(w, "Grille introuvable", http.StatusNotFound)
		return
	}
	s.logger.Info("game created", zap.String("game", game.ID), zap.String("grid", req.GridID))

	writeJSON(w, http.StatusCreated, game)
}

// GET /api/games: list all games.
func (s *Server) handleListGames(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListGames())
}

// GET /api/games/{id}: get current game state.
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "Partie introuvable", http.StatusNotFound)
		return
	}

	g := s.store.GetGrid(game.GridID)
	if g == nil {
		jsonError(w, "Grille introuvable", http.StatusNotFound)
		return
	}
	ng, err := numberGrid(g)
	if err != nil {
		s.logger.Error("number grid", zap.String("game", game.ID), zap.Error(err))
		jsonError(w, "Grille invalide", http.StatusInternalServerError)
		return
	}

	resp := struct {
		gameSessionJSON
		Grid *numberedGrid `json:"grid"`
	}{
		gameSessionJSON: game.view(),
		Grid:            ng,
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /api/games/{id}/join: join a game with a pseudo.
func (s *Server) handleJoinGame(w http.ResponseWriter, r *http.Request) {
	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "Partie introuvable", http.StatusNotFound)
		return
	}

	var req struct {
		Pseudo string `json:"pseudo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Pseudo == "" {
		jsonError(w, "Champ 'pseudo' requis", http.StatusBadRequest)
		return
	}

	pseudo := sanitizePseudo(req.Pseudo)
	if pseudo == "" {
		jsonError(w, "Pseudo invalide", http.StatusBadRequest)
		return
	}

	player := game.AddPlayer(pseudo)
	s.sse.Broadcast(game.ID, Event{Type: eventPlayerJoined, Pseudo: player.Pseudo, Color: player.Color})

	writeJSON(w, http.StatusOK, player)
}

// POST /api/games/{id}/move: place or erase a letter.
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	if !s.moveRL.allow(r.RemoteAddr) {
		jsonError(w, "Trop de requêtes, réessayez plus tard", http.StatusTooManyRequests)
		return
	}

	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "Partie introuvable", http.StatusNotFound)
		return
	}

	var req struct {
		Pseudo string `json:"pseudo"`
		Row    int    `json:"row"`
		Col    int    `json:"col"`
		Value  string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Requête invalide", http.StatusBadRequest)
		return
	}

	at := grid.Coord{Row: req.Row, Col: req.Col}
	if _, err := s.applyMove(game, sanitizePseudo(req.Pseudo), at, req.Value); err != nil {
		jsonError(w, moveErrorMessage(err), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// POST /api/games/{id}/cursor: report where a player's cursor is.
func (s *Server) handleCursor(w http.ResponseWriter, r *http.Request) {
	if !s.moveRL.allow(r.RemoteAddr) {
		jsonError(w, "Trop de requêtes, réessayez plus tard", http.StatusTooManyRequests)
		return
	}

	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "Partie introuvable", http.StatusNotFound)
		return
	}

	var req struct {
		Pseudo string `json:"pseudo"`
		Row    int    `json:"row"`
		Col    int    `json:"col"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Requête invalide", http.StatusBadRequest)
		return
	}
	pseudo := sanitizePseudo(req.Pseudo)
	if pseudo == "" {
		jsonError(w, "Champ 'pseudo' requis", http.StatusBadRequest)
		return
	}

	s.applyCursor(game, pseudo, grid.Coord{Row: req.Row, Col: req.Col})
	w.WriteHeader(http.StatusNoContent)
}

// applyMove validates and stores a letter, then broadcasts it.
func (s *Server) applyMove(game *GameSession, pseudo string, at grid.Coord, raw string) (string, error) {
	value, err := normalizeValue(raw)
	if err != nil {
		return "", err
	}
	if err := game.SetCell(at, value, pseudo); err != nil {
		return "", err
	}
	s.sse.Broadcast(game.ID, cellUpdate(pseudo, at, value))
	return value, nil
}

// applyCursor records a cursor position as-is and broadcasts it when it
// changed.
func (s *Server) applyCursor(game *GameSession, pseudo string, at grid.Coord) {
	if game.MoveCursor(pseudo, at) {
		s.sse.Broadcast(game.ID, cursorMoved(pseudo, at))
	}
}

// GET /api/games/{id}/events: SSE stream.
func (s *Server) handleGameEvents(w http.ResponseWriter, r *http.Request) {
	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "Partie introuvable", http.StatusNotFound)
		return
	}

	pseudo := sanitizePseudo(r.URL.Query().Get("pseudo"))

	s.sse.ServeSSE(w, r, game.ID, func() Event {
		return gameState(game)
	}, func() {
		if pseudo != "" {
			game.Connect(pseudo)
		}
	}, func() {
		// Only the player's last connection makes them leave.
		if pseudo != "" && game.Disconnect(pseudo) {
			s.sse.Broadcast(game.ID, Event{Type: eventPlayerLeft, Pseudo: pseudo})
		}
	})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizePseudo(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > 20 {
		s = string([]rune(s)[:20])
	}
	return s
}

// normalizeValue uppercases a submitted value. Empty means erase;
// otherwise it must be 1 to maxRebusLen letters.
func normalizeValue(raw string) (string, error) {
	value := cases.Upper(language.Und).String(strings.TrimSpace(raw))
	if value == "" {
		return "", nil
	}
	if utf8.RuneCountInString(value) > maxRebusLen {
		return "", errInvalidValue
	}
	for _, r := range value {
		if !unicode.IsLetter(r) {
			return "", errInvalidValue
		}
	}
	return value, nil
}
