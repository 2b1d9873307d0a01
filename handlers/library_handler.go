package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/charabracket/charabracket/middleware"
	"github.com/charabracket/charabracket/services"
)

type LibraryHandler struct {
	libraryService services.LibraryService
	statsService   services.StatsService
}

func NewLibraryHandler(ls services.LibraryService, ss services.StatsService) *LibraryHandler {
	return &LibraryHandler{
		libraryService: ls,
		statsService:   ss,
	}
}

// ExportHandler обрабатывает GET /library/export
func (h *LibraryHandler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	filename := fmt.Sprintf("library-%s.zip", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := h.libraryService.ExportLibrary(r.Context(), currentUserID, w); err != nil {
		// Манифест собирается до первых байтов архива, поэтому ошибки БД
		// ещё успевают вернуться обычным статусом.
		w.Header().Del("Content-Disposition")
		mapServiceErrorToHTTP(w, r, err)
		return
	}
}

// ImportHandler обрабатывает POST /library/import
func (h *LibraryHandler) ImportHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer file.Close()

	summary, err := h.libraryService.ImportLibrary(r.Context(), currentUserID, file, header.Size)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"summary": summary}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StatsHandler обрабатывает GET /library/stats
func (h *LibraryHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	stats, err := h.statsService.GetLibraryStats(r.Context(), currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"stats": stats}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
