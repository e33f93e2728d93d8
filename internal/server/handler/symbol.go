package handler

import (
	"net/http"

	"duoleg/internal/application/service"
)

type SymbolHandler struct {
	symbols *service.SymbolService
}

func NewSymbolHandler(symbols *service.SymbolService) *SymbolHandler {
	return &SymbolHandler{symbols: symbols}
}

func (h *SymbolHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":    h.symbols.Current(),
		"supported": h.symbols.Supported(),
	})
}

func (h *SymbolHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol string `json:"symbol"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.symbols.Set(req.Symbol); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"symbol": h.symbols.Current()})
}
