package timeline

import (
	"errors"
	"net/http"

	"github.com/agaaaptr/open-socmed/internal/posts"
	"github.com/agaaaptr/open-socmed/internal/shared/httpx"
)

type Handler struct{ svc *Service }

func NewHandler(s *Service) *Handler { return &Handler{svc: s} }

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) error {
	uid, err := httpx.UserFromCtx(r)
	if err != nil {
		return err
	}
	items, err := h.svc.Get(r.Context(), uid,
		httpx.QueryInt(r, "limit", posts.DefaultLimit), httpx.QueryInt(r, "offset", 0))
	if errors.Is(err, ErrInvalidID) {
		return httpx.BadRequest("invalid_id", err)
	}
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, items, http.StatusOK)
	return nil
}
