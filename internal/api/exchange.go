package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/lazyswap/internal/sideshift"
)

// listCoins handles GET /api/v1/coins
func (s *Server) listCoins(w http.ResponseWriter, r *http.Request) {
	coins, err := s.deps.Exchange.ListCoins(r.Context())
	if err != nil {
		s.upstreamError(w, "list coins", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"coins": coins, "count": len(coins)})
}

// permissions handles GET /api/v1/permissions?ip=
func (s *Server) permissions(w http.ResponseWriter, r *http.Request) {
	perm, err := s.deps.Exchange.CheckPermissions(r.Context(), r.URL.Query().Get("ip"))
	if err != nil {
		s.upstreamError(w, "check permissions", err)
		return
	}
	writeJSON(w, http.StatusOK, perm)
}

// getShift handles GET /api/v1/shifts/{id}
func (s *Server) getShift(w http.ResponseWriter, r *http.Request) {
	shift, err := s.deps.Exchange.GetShift(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		var apiErr *sideshift.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			writeError(w, http.StatusNotFound, "shift not found")
			return
		}
		s.upstreamError(w, "get shift", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"shift":     shift,
		"order_url": sideshift.OrderURL(shift.ID),
	})
}

func (s *Server) upstreamError(w http.ResponseWriter, op string, err error) {
	s.logger.Error("exchange call failed", "op", op, "error", err)
	writeError(w, http.StatusBadGateway, "exchange unavailable")
}
