package handler

import (
	"net/http"
	"strings"

	"duoleg/internal/application/service"
	"duoleg/internal/domain/model"
)

type TradeHandler struct {
	trades    *service.TradeService
	precheck  *service.PrecheckService
	reconcile *service.ReconcileService
	book      *service.TradeBook
	symbols   *service.SymbolService
}

func NewTradeHandler(trades *service.TradeService, precheck *service.PrecheckService, reconcile *service.ReconcileService, book *service.TradeBook, symbols *service.SymbolService) *TradeHandler {
	return &TradeHandler{trades: trades, precheck: precheck, reconcile: reconcile, book: book, symbols: symbols}
}

func (h *TradeHandler) modeAndSymbol(r *http.Request) (model.Mode, string, error) {
	var req struct {
		Mode   string `json:"mode"`
		Symbol string `json:"symbol"`
	}
	if err := decodeJSON(r, &req); err != nil {
		return "", "", err
	}
	mode := model.ParseMode(req.Mode)
	sym := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if sym == "" {
		sym = h.symbols.Current()
	}
	if !model.ValidSymbol(sym) {
		return "", "", model.ErrInvalidSymbol
	}
	return mode, sym, nil
}

func (h *TradeHandler) Precheck(w http.ResponseWriter, r *http.Request) {
	mode, sym, err := h.modeAndSymbol(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.precheck.Run(r.Context(), mode, sym)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *TradeHandler) Execute(w http.ResponseWriter, r *http.Request) {
	mode, sym, err := h.modeAndSymbol(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.trades.Execute(r.Context(), mode, sym)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *TradeHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LocalID string `json:"localId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.trades.Cancel(r.Context(), req.LocalID)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// History reconciles first so the listing reflects the venues' latest view,
// then returns the trade log newest first.
func (h *TradeHandler) History(w http.ResponseWriter, r *http.Request) {
	h.reconcile.Pass(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"trades": h.book.List()})
}
