// internal/membership/handler.go
package membership

import (
	"net/http"

	"librarydesk/internal/access"
	"librarydesk/internal/httpx"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req Registration
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := httpx.RequireFields("student_id", req.StudentID, "student_name", req.StudentName); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	student, err := h.service.Register(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, student)
}

func (h *Handler) HandleEntry(w http.ResponseWriter, r *http.Request) {
	var req EntryRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := httpx.RequireFields("student_id", req.StudentID); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	student, err := h.service.Entry(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, student)
}

// HandleExit takes the id from the path or, failing that, the JSON body.
func (h *Handler) HandleExit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		var req struct {
			StudentID string `json:"student_id"`
		}
		if err := httpx.Decode(r, &req); err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		id = req.StudentID
	}
	if err := httpx.RequireFields("student_id", id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	student, err := h.service.Exit(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, student)
}

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Remove(r.Context(), id, access.RoleFrom(r.Context())); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteMessage(w, http.StatusOK, "student "+id+" removed")
}

func (h *Handler) HandleMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.Members(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, members)
}

func (h *Handler) HandleEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Entries(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, entries)
}
