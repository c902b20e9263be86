package server

import (
	"log/slog"
	"net/http"

	m "srclens.dev/pkg/srclens/internal/model"
)

type resolveRequest struct {
	Element *m.ElementSnapshot `json:"element"`
	// Open launches the editor for a found location.
	Open bool `json:"open,omitempty"`
}

type resolveResponse struct {
	Resolution m.Resolution  `json:"resolution"`
	Message    string        `json:"message"`
	Link       *m.EditorLink `json:"link,omitempty"`
	Opened     bool          `json:"opened,omitempty"`
}

// HandleResolve resolves a captured element to its source location.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Element == nil {
		writeError(w, http.StatusBadRequest, "element is required")
		return
	}

	req.Element.Link()

	res := h.resolver.Resolve(req.Element)
	resp := resolveResponse{Resolution: res, Message: res.Message()}

	if res.Found {
		link := h.formatter.Format(res.Location)
		resp.Link = &link

		if req.Open {
			if h.launcher == nil {
				writeError(w, http.StatusForbidden, "editor launching is disabled")
				return
			}

			if _, err := h.launcher.Launch(r.Context(), link.URI); err != nil {
				slog.Error("Failed to launch editor", "uri", link.URI, "error", err)
				writeError(w, http.StatusBadGateway, err.Error())

				return
			}

			resp.Opened = true
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
