package api

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pool-analytics-lab/internal/domain"
	"pool-analytics-lab/internal/registry"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValueResponse is the valuation of an amount of one asset.
type ValueResponse struct {
	Asset     string           `json:"asset"`
	Amount    decimal.Decimal  `json:"amount"`
	USD       *decimal.Decimal `json:"usd"`
	Numeraire *decimal.Decimal `json:"numeraire"`
}

// PoolResponse is a pool with its per-asset state.
type PoolResponse struct {
	Pool   *domain.Pool        `json:"pool"`
	Assets []*domain.PoolAsset `json:"assets"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondRaw writes already-encoded JSON.
func respondRaw(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.logger.Error("api query failed", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal", "internal error")
}

func knownKind(k domain.Kind) bool {
	for _, kind := range domain.Kinds {
		if kind == k {
			return true
		}
	}
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "pool-analytics",
	})
}

func (s *Server) handleCheckpoint(w http.ResponseWriter, r *http.Request) {
	cp, err := registry.Load[domain.Checkpoint](r.Context(), s.reg.Reader(), domain.GlobalID)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if cp == nil {
		respondError(w, http.StatusNotFound, "not_found", "no events applied yet")
		return
	}
	respondJSON(w, http.StatusOK, cp)
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind := domain.Kind(vars["kind"])
	if !knownKind(kind) {
		respondError(w, http.StatusBadRequest, "unknown_kind", "unknown entity kind")
		return
	}

	data, ok, err := s.reg.Reader().Get(r.Context(), kind, vars["id"])
	if err != nil {
		s.internalError(w, err)
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "entity not found")
		return
	}
	respondRaw(w, data)
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	kind := domain.Kind(mux.Vars(r)["kind"])
	if !knownKind(kind) {
		respondError(w, http.StatusBadRequest, "unknown_kind", "unknown entity kind")
		return
	}

	records, err := s.reg.Store().List(r.Context(), kind)
	if err != nil {
		s.internalError(w, err)
		return
	}
	items := make([]json.RawMessage, len(records))
	for i, rec := range records {
		items[i] = rec.Data
	}
	respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleAssetValue(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["address"]
	if !common.IsHexAddress(raw) {
		respondError(w, http.StatusBadRequest, "bad_address", "invalid asset address")
		return
	}
	asset := common.HexToAddress(raw)

	amount := decimal.NewFromInt(1)
	if q := r.URL.Query().Get("amount"); q != "" {
		d, err := decimal.NewFromString(q)
		if err != nil {
			respondError(w, http.StatusBadRequest, "bad_amount", "amount must be a decimal")
			return
		}
		amount = d
	}

	ctx := r.Context()
	reader := s.reg.Reader()
	resp := ValueResponse{Asset: domain.AddrID(asset), Amount: amount}

	usd, ok, err := s.resolver.ValueInUSD(ctx, reader, asset, amount)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if ok {
		resp.USD = &usd
	}
	num, ok, err := s.resolver.ValueInNumeraire(ctx, reader, asset, amount)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if ok {
		resp.Numeraire = &num
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPool(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["address"]
	if !common.IsHexAddress(raw) {
		respondError(w, http.StatusBadRequest, "bad_address", "invalid pool address")
		return
	}
	addr := common.HexToAddress(raw)
	ctx := r.Context()
	reader := s.reg.Reader()

	pool, err := registry.Load[domain.Pool](ctx, reader, domain.AddrID(addr))
	if err != nil {
		s.internalError(w, err)
		return
	}
	if pool == nil {
		respondError(w, http.StatusNotFound, "not_found", "pool not found")
		return
	}

	resp := PoolResponse{Pool: pool}
	for _, asset := range pool.Assets {
		pa, err := registry.Load[domain.PoolAsset](ctx, reader, domain.PoolAssetID(addr, asset))
		if err != nil {
			s.internalError(w, err)
			return
		}
		if pa != nil {
			resp.Assets = append(resp.Assets, pa)
		}
	}
	respondJSON(w, http.StatusOK, resp)
}
