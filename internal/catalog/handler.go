// internal/catalog/handler.go
package catalog

import (
	"net/http"

	"librarydesk/internal/domain"
	"librarydesk/internal/httpx"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) HandleAddBook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookID   string `json:"book_id"`
		BookName string `json:"book_name"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := httpx.RequireFields("book_id", req.BookID, "book_name", req.BookName); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	book, err := h.service.AddBook(r.Context(), req.BookID, req.BookName)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, book)
}

func (h *Handler) HandleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.RemoveBook(r.Context(), id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteMessage(w, http.StatusOK, "book "+id+" deleted")
}

func (h *Handler) HandleEnquiry(w http.ResponseWriter, r *http.Request) {
	enquiry, err := h.service.Enquiry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, enquiry)
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, status)
}

func (h *Handler) HandleAvailableBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.AvailableBooks(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, books)
}

func (h *Handler) HandleAddLibrarian(w http.ResponseWriter, r *http.Request) {
	var req domain.Librarian
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := httpx.RequireFields("librarian_id", req.ID, "librarian_name", req.Name); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	librarian, err := h.service.AddLibrarian(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, librarian)
}

func (h *Handler) HandleRemoveLibrarian(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.RemoveLibrarian(r.Context(), id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteMessage(w, http.StatusOK, "librarian "+id+" removed")
}

func (h *Handler) HandleListLibrarians(w http.ResponseWriter, r *http.Request) {
	librarians, err := h.service.ListLibrarians(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, librarians)
}
