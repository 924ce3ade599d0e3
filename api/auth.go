package api

import (
	"net/http"
	"strconv"

	"github.com/billbatista/acasinha-office/eventlogger"
	"github.com/billbatista/acasinha-office/middleware"
	"github.com/billbatista/acasinha-office/model"
	"github.com/billbatista/acasinha-office/notify"
	"github.com/billbatista/acasinha-office/session"
	"github.com/billbatista/acasinha-office/user"
	"github.com/google/uuid"
)

type credentials struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, u *model.User) {
	sess, err := h.Sessions.Create(r.Context(), u.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decode(r, &c); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.Users.Register(r.Context(), c.Username, c.Email, c.Password, model.RoleUser)
	if err != nil {
		writeError(w, r, err)
		return
	}
	notify.Emit(notify.WithActor(r.Context(), u.ID), h.Notifier, notify.CategorySystem, u.Username+" registered", notify.Related{ID: u.ID, Name: "User"})
	h.startSession(w, r, u)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := decode(r, &c); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := user.Authenticate(r.Context(), h.Users, c.Username, c.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	notify.Emit(notify.WithActor(r.Context(), u.ID), h.Notifier, notify.CategorySystem, u.Username+" logged in", notify.Related{ID: u.ID, Name: "User"})
	h.startSession(w, r, u)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.SessionToken(r); token != "" {
		if err := h.Sessions.Delete(r.Context(), token); err != nil {
			writeError(w, r, err)
			return
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:   session.CookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) activity(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	recipient := uuid.NullUUID{UUID: p.UserID, Valid: !p.IsAdmin()}
	events, err := h.Activity.Recent(r.Context(), recipient, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if events == nil {
		events = []eventlogger.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// runReminders triggers a scan outside the regular interval.
func (h *Handler) runReminders(w http.ResponseWriter, r *http.Request) {
	if !principal(r).IsAdmin() {
		writeError(w, r, model.ErrAccessDenied)
		return
	}
	res, err := h.Scheduler.RunOnce(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
