package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/mohammed-shakir/geocoin-engine/internal/cache"
	"github.com/mohammed-shakir/geocoin-engine/internal/core/model"
	"github.com/mohammed-shakir/geocoin-engine/internal/game"
)

type stateResponse struct {
	Position  model.Coordinates  `json:"position"`
	Center    model.CellID       `json:"center"`
	Inventory []model.Coin       `json:"inventory"`
	OdometerM float64            `json:"odometerM"`
	Active    []game.ActiveCache `json:"active"`
}

type moveRequest struct {
	Lat *float64 `json:"lat,omitempty"`
	Lng *float64 `json:"lng,omitempty"`
	DI  *int     `json:"di,omitempty"`
	DJ  *int     `json:"dj,omitempty"`
}

type cellRequest struct {
	I int `json:"i"`
	J int `json:"j"`
}

type transferResponse struct {
	Status string            `json:"status"`
	Coin   *model.Coin       `json:"coin,omitempty"`
	Cache  *game.ActiveCache `json:"cache,omitempty"`
}

func handleState(s *game.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, stateResponse{
			Position:  s.Position(),
			Center:    s.Center(),
			Inventory: s.Inventory(),
			OdometerM: s.OdometerM(),
			Active:    s.Active(),
		})
	}
}

func handleMove(s *game.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req moveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
			return
		}

		var (
			active []game.ActiveCache
			err    error
		)
		switch {
		case req.Lat != nil && req.Lng != nil:
			active, err = s.MoveTo(r.Context(), *req.Lat, *req.Lng)
		case req.DI != nil && req.DJ != nil:
			active, err = s.MoveBy(r.Context(), *req.DI, *req.DJ)
		default:
			http.Error(w, "either lat/lng or di/dj is required", http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, active)
	}
}

func handleCollect(s *game.Session) http.HandlerFunc {
	return transferHandler(s, s.Collect)
}

func handleDeposit(s *game.Session) http.HandlerFunc {
	return transferHandler(s, s.Deposit)
}

// transferHandler maps the coin transfer error taxonomy onto HTTP:
// empty cache/inventory are expected player-facing outcomes (409 with a
// status body), unknown cell is a broken client contract (500).
func transferHandler(s *game.Session, op func(model.CellID) (model.Coin, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cellRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
			return
		}
		cellID := model.CellID{I: req.I, J: req.J}

		coin, err := op(cellID)
		switch {
		case errors.Is(err, cache.ErrEmptyCache):
			writeJSON(w, http.StatusConflict, transferResponse{Status: "empty_cache"})
			return
		case errors.Is(err, cache.ErrEmptyInventory):
			writeJSON(w, http.StatusConflict, transferResponse{Status: "empty_inventory"})
			return
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		resp := transferResponse{Status: "ok", Coin: &coin}
		if c, ok := s.CacheAt(cellID); ok {
			resp.Cache = &c
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleHot(s *game.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := 10
		if v := r.URL.Query().Get("n"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
				n = parsed
			}
		}
		writeJSON(w, http.StatusOK, s.HotCells(n))
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
