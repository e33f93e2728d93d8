package handler

import (
	"net/http"
	"strings"

	"duoleg/internal/application/service"
	"duoleg/internal/domain/model"
)

type MarketHandler struct {
	md      *service.MarketDataService
	meta    *service.MetaService
	symbols *service.SymbolService
}

func NewMarketHandler(md *service.MarketDataService, meta *service.MetaService, symbols *service.SymbolService) *MarketHandler {
	return &MarketHandler{md: md, meta: meta, symbols: symbols}
}

// requestSymbol picks the symbol from the query string, falling back to the
// currently selected instrument.
func (h *MarketHandler) requestSymbol(r *http.Request) (string, error) {
	sym := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if sym == "" {
		return h.symbols.Current(), nil
	}
	if !model.ValidSymbol(sym) {
		return "", model.ErrInvalidSymbol
	}
	return sym, nil
}

func (h *MarketHandler) Data(w http.ResponseWriter, r *http.Request) {
	sym, err := h.requestSymbol(r)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	data, err := h.md.Data(r.Context(), sym)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (h *MarketHandler) Balances(w http.ResponseWriter, r *http.Request) {
	sym, err := h.requestSymbol(r)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.md.Balances(r.Context(), sym))
}

func (h *MarketHandler) Meta(w http.ResponseWriter, r *http.Request) {
	sym, err := h.requestSymbol(r)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	auto, override, merged := h.meta.Layers(r.Context(), sym)
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":   sym,
		"auto":     auto,
		"override": override,
		"merged":   merged,
	})
}

func (h *MarketHandler) SetMetaOverride(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol   string         `json:"symbol"`
		Override map[string]any `json:"override"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sym := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if sym == "" {
		sym = h.symbols.Current()
	}
	if !model.ValidSymbol(sym) {
		writeError(w, http.StatusBadRequest, model.ErrInvalidSymbol.Error())
		return
	}
	merged, err := h.meta.SetOverride(r.Context(), sym, req.Override)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"symbol": sym, "merged": merged})
}
