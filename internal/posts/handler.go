package posts

import (
	"errors"
	"net/http"

	"github.com/agaaaptr/open-socmed/internal/shared/httpx"
)

type Handler struct{ svc Service }

func NewHandler(s Service) *Handler { return &Handler{svc: s} }

// List handles GET /api/posts?user_id=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) error {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		var err error
		if userID, err = httpx.UserFromCtx(r); err != nil {
			return err
		}
	}
	items, err := h.svc.ListByUser(r.Context(), userID,
		httpx.QueryInt(r, "limit", DefaultLimit), httpx.QueryInt(r, "offset", 0))
	if err != nil {
		return toHTTP(err)
	}
	out := make([]Post, 0, len(items))
	httpx.WriteJSON(w, append(out, items...), http.StatusOK)
	return nil
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) error {
	uid, err := httpx.UserFromCtx(r)
	if err != nil {
		return err
	}
	in, err := httpx.Decode[ContentReq](r)
	if err != nil {
		return err
	}
	p, err := h.svc.Create(r.Context(), uid, in.Content)
	if err != nil {
		return toHTTP(err)
	}
	httpx.WriteJSON(w, p, http.StatusCreated)
	return nil
}

// Update handles PUT /api/posts?id=.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) error {
	uid, err := httpx.UserFromCtx(r)
	if err != nil {
		return err
	}
	in, err := httpx.Decode[ContentReq](r)
	if err != nil {
		return err
	}
	p, err := h.svc.Update(r.Context(), uid, r.URL.Query().Get("id"), in.Content)
	if err != nil {
		return toHTTP(err)
	}
	httpx.WriteJSON(w, p, http.StatusOK)
	return nil
}

// Delete handles DELETE /api/posts?id=.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) error {
	uid, err := httpx.UserFromCtx(r)
	if err != nil {
		return err
	}
	id := r.URL.Query().Get("id")
	if err := h.svc.Delete(r.Context(), uid, id); err != nil {
		return toHTTP(err)
	}
	httpx.WriteJSON(w, DeleteResp{Message: "post deleted", ID: id}, http.StatusOK)
	return nil
}

func toHTTP(err error) error {
	switch {
	case errors.Is(err, ErrInvalidID):
		return httpx.BadRequest("invalid_id", err)
	case errors.Is(err, ErrRateLimited):
		return &httpx.StatusError{Status: http.StatusTooManyRequests, Reason: "rate_limited", Err: err}
	default:
		return err
	}
}
