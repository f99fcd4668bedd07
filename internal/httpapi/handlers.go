package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/dogpark/server/internal/app"
	"github.com/dogpark/server/internal/data"
	"github.com/dogpark/server/internal/loot"
	"github.com/dogpark/server/internal/world"
)

// recordsPageLimit caps one leaderboard page.
const recordsPageLimit = 100

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON emits the standard API response headers and the payload.
// HEAD requests get headers only.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("marshal response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		w.Write(body)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	s.writeJSON(w, r, status, errorBody{Code: code, Message: message})
}

// allowMethods enforces the method list, answering 405 with an Allow
// header otherwise.
func (s *Server) allowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	s.writeError(w, r, http.StatusMethodNotAllowed, "invalidMethod", "Invalid method")
	return false
}

// bearerToken extracts the authorization token. Anything but a
// well-formed "Bearer <32 hex chars>" header is rejected before the
// strand is touched.
func (s *Server) bearerToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, prefix) {
		s.writeError(w, r, http.StatusUnauthorized, "invalidToken", "Authorization header is missing")
		return "", false
	}
	token := auth[len(prefix):]
	if len(token) != app.TokenLength {
		s.writeError(w, r, http.StatusUnauthorized, "invalidToken", "Authorization header is malformed")
		return "", false
	}
	return token, true
}

func (s *Server) handleUnknownAPI(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusBadRequest, "badRequest", "Bad request")
}

type mapListItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleMaps(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethods(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	var items []mapListItem
	s.strand.Do(func() {
		maps := s.app.Game().Maps()
		items = make([]mapListItem, 0, len(maps))
		for _, m := range maps {
			items = append(items, mapListItem{ID: m.ID, Name: m.Name})
		}
	})
	s.writeJSON(w, r, http.StatusOK, items)
}

type mapPayload struct {
	*data.Map
	LootTypes loot.Catalog `json:"lootTypes"`
}

func (s *Server) handleMapByID(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethods(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	id := mux.Vars(r)["id"]
	var payload mapPayload
	s.strand.Do(func() {
		if m := s.app.Game().FindMap(id); m != nil {
			payload = mapPayload{Map: m, LootTypes: s.app.Game().LootCatalog(id)}
		}
	})
	if payload.Map == nil {
		s.writeError(w, r, http.StatusNotFound, "mapNotFound", "Map not found")
		return
	}
	s.writeJSON(w, r, http.StatusOK, payload)
}

type joinRequest struct {
	UserName string `json:"userName"`
	MapID    string `json:"mapId"`
}

type joinResponse struct {
	AuthToken string `json:"authToken"`
	PlayerID  uint64 `json:"playerId"`
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethods(w, r, http.MethodPost) {
		return
	}
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalidArgument", "Join game request parse error")
		return
	}
	if req.UserName == "" {
		s.writeError(w, r, http.StatusBadRequest, "invalidArgument", "Invalid name")
		return
	}

	var (
		id    uint64
		token string
		err   error
	)
	s.strand.Do(func() {
		id, token, err = s.app.JoinGame(req.UserName, req.MapID)
	})
	if err != nil {
		if errors.Is(err, world.ErrUnknownMap) {
			s.writeError(w, r, http.StatusNotFound, "mapNotFound", "Map not found")
			return
		}
		s.log.Error("join failed", zap.String("map", req.MapID), zap.Error(err))
		s.writeError(w, r, http.StatusInternalServerError, "internalError", "Join failed")
		return
	}
	s.writeJSON(w, r, http.StatusOK, joinResponse{AuthToken: token, PlayerID: id})
}

type playerInfo struct {
	Name string `json:"name"`
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethods(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	token, ok := s.bearerToken(w, r)
	if !ok {
		return
	}
	var (
		known   bool
		players map[uint64]string
	)
	s.strand.Do(func() {
		if _, known = s.app.PlayerByToken(token); known {
			players = s.app.PlayersInfo()
		}
	})
	if !known {
		s.writeError(w, r, http.StatusUnauthorized, "unknownToken", "Player token has not been found")
		return
	}
	out := make(map[string]playerInfo, len(players))
	for id, name := range players {
		out[strconv.FormatUint(id, 10)] = playerInfo{Name: name}
	}
	s.writeJSON(w, r, http.StatusOK, out)
}

type dogState struct {
	Pos   [2]float64        `json:"pos"`
	Speed [2]float64        `json:"speed"`
	Dir   world.Direction   `json:"dir"`
	Bag   []world.CargoItem `json:"bag"`
	Score int               `json:"score"`
}

type lootState struct {
	Type int        `json:"type"`
	Pos  [2]float64 `json:"pos"`
}

type stateResponse struct {
	Players     map[string]dogState  `json:"players"`
	LostObjects map[string]lootState `json:"lostObjects"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethods(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	token, ok := s.bearerToken(w, r)
	if !ok {
		return
	}
	resp := stateResponse{
		Players:     make(map[string]dogState),
		LostObjects: make(map[string]lootState),
	}
	var err error
	s.strand.Do(func() {
		var state app.GameState
		state, err = s.app.GetGameState(token)
		if err != nil {
			return
		}
		for _, d := range state.Dogs {
			resp.Players[strconv.FormatUint(d.ID, 10)] = dogState{
				Pos:   [2]float64{d.Pos.X, d.Pos.Y},
				Speed: [2]float64{d.Speed.DX, d.Speed.DY},
				Dir:   d.Dir,
				Bag:   d.Bag(),
				Score: d.Score,
			}
		}
		for id, item := range state.Loots {
			resp.LostObjects[strconv.FormatUint(id, 10)] = lootState{
				Type: item.Type,
				Pos:  [2]float64{item.Pos.X, item.Pos.Y},
			}
		}
	})
	if err != nil {
		s.writeError(w, r, http.StatusUnauthorized, "unknownToken", "Player token has not been found")
		return
	}
	s.writeJSON(w, r, http.StatusOK, resp)
}

type actionRequest struct {
	Move string `json:"move"`
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethods(w, r, http.MethodPost) {
		return
	}
	token, ok := s.bearerToken(w, r)
	if !ok {
		return
	}
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalidArgument", "Failed to parse action")
		return
	}
	dir, err := world.ParseDirection(req.Move)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalidArgument", "Failed to parse action")
		return
	}
	s.strand.Do(func() {
		err = s.app.MoveDog(token, dir)
	})
	if err != nil {
		if errors.Is(err, app.ErrUnknownToken) {
			s.writeError(w, r, http.StatusUnauthorized, "unknownToken", "Player token has not been found")
			return
		}
		s.log.Error("action failed", zap.Error(err))
		s.writeError(w, r, http.StatusInternalServerError, "internalError", "Action failed")
		return
	}
	s.writeJSON(w, r, http.StatusOK, struct{}{})
}

type tickRequest struct {
	TimeDelta *int64 `json:"timeDelta"`
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethods(w, r, http.MethodPost) {
		return
	}
	var req tickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TimeDelta == nil || *req.TimeDelta <= 0 {
		s.writeError(w, r, http.StatusBadRequest, "invalidArgument", "Failed to parse tick request JSON")
		return
	}
	var err error
	s.strand.Do(func() {
		err = s.app.Game().ExternalTick(float64(*req.TimeDelta))
	})
	if err != nil {
		s.log.Error("tick failed", zap.Error(err))
		s.writeError(w, r, http.StatusInternalServerError, "internalError", "Tick failed")
		return
	}
	s.writeJSON(w, r, http.StatusOK, struct{}{})
}

type recordItem struct {
	Name     string  `json:"name"`
	Score    int     `json:"score"`
	PlayTime float64 `json:"playTime"`
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	if !s.allowMethods(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	start, ok := queryInt(r, "start", 0)
	if !ok {
		s.writeError(w, r, http.StatusBadRequest, "invalidArgument", "Invalid start parameter")
		return
	}
	maxItems, ok := queryInt(r, "maxItems", recordsPageLimit)
	if !ok || maxItems > recordsPageLimit {
		s.writeError(w, r, http.StatusBadRequest, "invalidArgument", "Invalid maxItems parameter")
		return
	}

	var (
		records []world.RetiredDog
		err     error
	)
	s.strand.Do(func() {
		records, err = s.app.RetiredDogs(r.Context(), start, maxItems)
	})
	if err != nil {
		s.log.Error("records query failed", zap.Error(err))
		s.writeError(w, r, http.StatusInternalServerError, "internalError", "Records query failed")
		return
	}
	items := make([]recordItem, 0, len(records))
	for _, rec := range records {
		items = append(items, recordItem{
			Name:     rec.Name,
			Score:    rec.Score,
			PlayTime: float64(rec.PlayTimeMs) / 1000.0,
		})
	}
	s.writeJSON(w, r, http.StatusOK, items)
}

func queryInt(r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
