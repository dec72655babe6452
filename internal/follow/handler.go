package follow

import (
	"context"
	"errors"
	"net/http"

	"github.com/agaaaptr/open-socmed/internal/profile"
	"github.com/agaaaptr/open-socmed/internal/shared/httpx"
)

type Handler struct{ svc Service }

func NewHandler(s Service) *Handler { return &Handler{svc: s} }

func (h *Handler) Follow(w http.ResponseWriter, r *http.Request) error {
	uid, err := httpx.UserFromCtx(r)
	if err != nil {
		return err
	}
	in, err := httpx.Decode[Req](r)
	if err != nil {
		return err
	}
	f, err := h.svc.Follow(r.Context(), uid, in.FollowingID)
	if err != nil {
		return toHTTP(err)
	}
	httpx.WriteJSON(w, f, http.StatusCreated)
	return nil
}

func (h *Handler) Unfollow(w http.ResponseWriter, r *http.Request) error {
	uid, err := httpx.UserFromCtx(r)
	if err != nil {
		return err
	}
	in, err := httpx.Decode[Req](r)
	if err != nil {
		return err
	}
	if err := h.svc.Unfollow(r.Context(), uid, in.FollowingID); err != nil {
		return toHTTP(err)
	}
	httpx.WriteJSON(w, map[string]string{"message": "Successfully unfollowed"}, http.StatusOK)
	return nil
}

func (h *Handler) Followers(w http.ResponseWriter, r *http.Request) error {
	return h.list(w, r, h.svc.Followers)
}

func (h *Handler) Following(w http.ResponseWriter, r *http.Request) error {
	return h.list(w, r, h.svc.Following)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id string) ([]profile.Profile, error)) error {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		return httpx.BadRequest("missing_user_id", errors.New("user_id query parameter is required"))
	}
	list, err := fn(r.Context(), userID)
	if err != nil {
		return toHTTP(err)
	}
	httpx.WriteJSON(w, list, http.StatusOK)
	return nil
}

func toHTTP(err error) error {
	switch {
	case errors.Is(err, ErrInvalidID), errors.Is(err, ErrSelfFollow):
		return httpx.BadRequest("validation", err)
	case errors.Is(err, profile.ErrNotFound):
		return &httpx.StatusError{Status: http.StatusNotFound, Reason: "not_found", Err: err}
	default:
		return err
	}
}
