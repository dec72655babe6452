package profile

import (
	"errors"
	"net/http"

	"github.com/agaaaptr/open-socmed/internal/shared/httpx"
)

type Handler struct{ svc Service }

func NewHandler(s Service) *Handler { return &Handler{svc: s} }

// Get returns the caller's profile, or another user's with ?username=.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) error {
	uid, err := httpx.UserFromCtx(r)
	if err != nil {
		return err
	}
	var p *Profile
	if name := r.URL.Query().Get("username"); name != "" {
		p, err = h.svc.GetByUsername(r.Context(), name)
	} else {
		p, err = h.svc.Get(r.Context(), uid)
	}
	if err != nil {
		return toHTTP(err)
	}
	httpx.WriteJSON(w, p, http.StatusOK)
	return nil
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) error {
	uid, err := httpx.UserFromCtx(r)
	if err != nil {
		return err
	}
	in, err := httpx.Decode[UpdateReq](r)
	if err != nil {
		return err
	}
	p, err := h.svc.Update(r.Context(), uid, in)
	if err != nil {
		return toHTTP(err)
	}
	httpx.WriteJSON(w, p, http.StatusOK)
	return nil
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) error {
	list, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		return toHTTP(err)
	}
	if list == nil {
		list = []Profile{}
	}
	httpx.WriteJSON(w, list, http.StatusOK)
	return nil
}

func (h *Handler) CheckUsername(w http.ResponseWriter, r *http.Request) error {
	ok, err := h.svc.UsernameAvailable(r.Context(), r.URL.Query().Get("username"))
	if err != nil {
		return toHTTP(err)
	}
	httpx.WriteJSON(w, AvailabilityResp{Available: ok}, http.StatusOK)
	return nil
}

func toHTTP(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return &httpx.StatusError{Status: http.StatusNotFound, Reason: "not_found", Err: err}
	case errors.Is(err, ErrUsernameTaken):
		return &httpx.StatusError{Status: http.StatusConflict, Reason: "username_taken", Err: err}
	case errors.Is(err, ErrInvalidUsername), errors.Is(err, ErrNothingToUpdate),
		errors.Is(err, ErrInvalidID), errors.Is(err, ErrEmptyQuery):
		return httpx.BadRequest("validation", err)
	default:
		return err
	}
}
