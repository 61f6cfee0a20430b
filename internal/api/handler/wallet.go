// internal/api/handler/wallet.go
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"cargopay/internal/api/types"
	"cargopay/internal/service"
	"cargopay/internal/util"
)

// WalletHandler handles HTTP requests for wallet operations.
type WalletHandler struct {
	wallets service.WalletService
	logger  *slog.Logger
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(wallets service.WalletService, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{wallets: wallets, logger: logger}
}

// GetWallet handles GET /wallets/{userID}. Creates the wallet lazily on
// first access.
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	wallet, err := h.wallets.GetWallet(r.Context(), userID)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, wallet)
}

// GetStatement handles GET /wallets/{userID}/transactions?from=&to=&limit=&offset=.
// from/to are RFC 3339 timestamps.
func (h *WalletHandler) GetStatement(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	var from, to time.Time
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = time.Parse(time.RFC3339, v); err != nil {
			respondWithError(w, h.logger, util.ErrInvalidInput)
			return
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = time.Parse(time.RFC3339, v); err != nil {
			respondWithError(w, h.logger, util.ErrInvalidInput)
			return
		}
	}
	limit, offset := paginationParams(r, 20)

	transactions, total, err := h.wallets.GetStatement(r.Context(), userID, from, to, limit, offset)
	if err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, types.Paginated{
		Items:      transactions,
		TotalCount: total,
		Limit:      limit,
		Offset:     offset,
	})
}

// FreezeRequest is the request body for freezing or unfreezing a wallet.
type FreezeRequest struct {
	Frozen bool `json:"frozen"`
}

// SetFrozen handles POST /wallets/{userID}/freeze (admin).
func (h *WalletHandler) SetFrozen(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	var req FreezeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, h.logger, util.ErrInvalidInput)
		return
	}

	if err := h.wallets.SetFrozen(r.Context(), userID, req.Frozen); err != nil {
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, map[string]bool{"frozen": req.Frozen})
}
