package server

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"

	"srclens.dev/pkg/srclens/internal/adapter"
	m "srclens.dev/pkg/srclens/internal/model"
)

type transformRequest struct {
	Filename string `json:"filename"`
	Code     string `json:"code"`
}

type transformResponse struct {
	Code      string `json:"code"`
	File      string `json:"file,omitempty"`
	Elements  int    `json:"elements"`
	Annotated int    `json:"annotated"`
	Skipped   int    `json:"skipped"`
	Changed   bool   `json:"changed"`
	Cached    bool   `json:"cached"`
}

// HandleTransform annotates one compiled unit. Units in a language without
// markup support are returned unchanged.
func (h *Handler) HandleTransform(w http.ResponseWriter, r *http.Request) {
	var req transformRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Filename == "" {
		writeError(w, http.StatusBadRequest, "filename is required")
		return
	}

	language, ok := adapter.LanguageForPath(m.Path(req.Filename))
	if !ok {
		writeJSON(w, http.StatusOK, transformResponse{Code: req.Code})
		return
	}

	key := cacheKey(req.Filename, req.Code)
	if cached, hit := h.cache.Get(key); hit {
		cached.Cached = true
		writeJSON(w, http.StatusOK, cached)

		return
	}

	unit, err := h.annotator.Annotate(r.Context(), m.Path(req.Filename), language, []byte(req.Code))
	if err != nil {
		slog.Error("Failed to annotate unit", "file", req.Filename, "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())

		return
	}

	resp := transformResponse{
		Code:      string(unit.Code),
		File:      unit.File,
		Elements:  unit.Elements,
		Annotated: unit.Annotated,
		Skipped:   unit.Skipped,
		Changed:   unit.Changed,
	}

	h.cache.Add(key, resp)
	slog.Debug("Annotated unit", "file", req.Filename, "elements", unit.Elements, "skipped", unit.Skipped)

	writeJSON(w, http.StatusOK, resp)
}

func cacheKey(filename, code string) string {
	sum := sha256.New()
	sum.Write([]byte(filename))
	sum.Write([]byte{0})
	sum.Write([]byte(code))

	return hex.EncodeToString(sum.Sum(nil))
}
