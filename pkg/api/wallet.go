package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/darve-social/darve-server/types"
)

// handleWalletBalance serves spec §4.2's combined {spendable, locked} view
// for the authenticated caller's own wallets.
func (s *Server) handleWalletBalance(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	bal, err := s.registry.SpendableAndLocked(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteJSON(w, bal)
}

// walletHistoryEntry is the wire shape of one ledger leg in a history page.
type walletHistoryEntry struct {
	ID        types.ID              `json:"id"`
	Wallet    types.WalletID        `json:"wallet"`
	AmountIn  types.Amount          `json:"amount_in,omitempty"`
	AmountOut types.Amount          `json:"amount_out,omitempty"`
	Balance   types.Amount          `json:"balance"`
	Currency  types.Currency        `json:"currency"`
	Type      types.TransactionType `json:"type"`
	CreatedAt time.Time             `json:"created_at"`
}

// handleWalletHistory serves a page of the caller's own spendable wallet's
// ledger legs, per spec §4.1 History, newest first, paginated by an
// opaque "before" cursor (a transaction's created_at in UnixNano).
func (s *Server) handleWalletHistory(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	currency := types.Currency(q.Get("currency"))
	if !currency.Valid() {
		writeError(w, r, types.NewClientError(errBadCurrency, types.ErrBadRequest))
		return
	}
	var before int64
	if v := q.Get("before"); v != "" {
		var err error
		before, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, r, types.NewClientError(err, types.ErrBadRequest))
			return
		}
	}
	limit := 50
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, r, types.NewClientError(errBadLimit, types.ErrBadRequest))
			return
		}
		limit = n
	}

	txs, err := s.ledger.History(r.Context(), types.UserWalletID(userID), currency, before, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]walletHistoryEntry, 0, len(txs))
	for _, tx := range txs {
		out = append(out, walletHistoryEntry{
			ID:        tx.ID,
			Wallet:    tx.Wallet,
			AmountIn:  tx.AmountIn,
			AmountOut: tx.AmountOut,
			Balance:   tx.Balance,
			Currency:  tx.Currency,
			Type:      tx.Type,
			CreatedAt: tx.CreatedAt,
		})
	}
	WriteJSON(w, out)
}

type withdrawRequest struct {
	Amount            types.Amount   `json:"amount"`
	Currency          types.Currency `json:"currency"`
	ExternalAccountID string         `json:"external_account_id"`
}

// handleWalletWithdraw initiates a withdrawal hold, per spec §4.3
// InitWithdraw, returning the Pending GatewayTransaction the caller polls
// or awaits a webhook-driven notification for.
func (s *Server) handleWalletWithdraw(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, types.NewClientError(err, types.ErrBadRequest))
		return
	}
	gtx, err := s.gateway.InitWithdraw(r.Context(), userID, req.Amount, req.Currency, req.ExternalAccountID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	WriteJSON(w, gtx)
}

var (
	errBadCurrency = badRequestError("unrecognized or missing currency")
	errBadLimit    = badRequestError("limit must be a positive integer")
)

type badRequestError string

func (e badRequestError) Error() string { return string(e) }
