package notification

import (
	"fmt"
	"net/http"

	"github.com/agaaaptr/open-socmed/internal/shared/httpx"
)

type Handler struct{ svc *Service }

func NewHandler(s *Service) *Handler { return &Handler{svc: s} }

func (h *Handler) List(w http.ResponseWriter, r *http.Request) error {
	uid, err := httpx.UserFromCtx(r)
	if err != nil {
		return err
	}
	items, err := h.svc.List(r.Context(), uid, int64(httpx.QueryInt(r, "limit", 50)))
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, items, http.StatusOK)
	return nil
}

func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) error {
	uid, err := httpx.UserFromCtx(r)
	if err != nil {
		return err
	}
	n, err := h.svc.MarkAllRead(r.Context(), uid)
	if err != nil {
		return err
	}
	httpx.WriteJSON(w, map[string]string{"message": fmt.Sprintf("%d notifications marked as read", n)}, http.StatusOK)
	return nil
}
