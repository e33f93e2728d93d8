package handler

import (
	"net/http"

	"duoleg/internal/application/service"
)

type PositionHandler struct {
	position *service.PositionService
}

func NewPositionHandler(position *service.PositionService) *PositionHandler {
	return &PositionHandler{position: position}
}

func (h *PositionHandler) SetTarget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetQty float64 `json:"targetQty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.position.SetTarget(req.TargetQty); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	target, filled := h.position.Progress()
	writeJSON(w, http.StatusOK, map[string]float64{"targetQty": target, "filledQty": filled})
}

func (h *PositionHandler) Progress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.position.State())
}
