package handlers

import (
	"net/http"

	"github.com/charabracket/charabracket/middleware"
	"github.com/charabracket/charabracket/services"
)

// maxUploadMemory ограничивает буферизацию multipart-формы в памяти,
// остальное multipart складывает во временные файлы.
const maxUploadMemory = 10 << 20

type ImageHandler struct {
	imageService services.ImageService
}

func NewImageHandler(is services.ImageService) *ImageHandler {
	return &ImageHandler{
		imageService: is,
	}
}

// UploadHandler обрабатывает POST /characters/{characterID}/images
func (h *ImageHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	characterID, err := getIDFromURL(r, "characterID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer file.Close()

	image, err := h.imageService.UploadImage(r.Context(), currentUserID, characterID, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"image": image}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler обрабатывает GET /characters/{characterID}/images
func (h *ImageHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	characterID, err := getIDFromURL(r, "characterID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	images, err := h.imageService.ListImages(r.Context(), currentUserID, characterID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"images": images}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteHandler обрабатывает DELETE /characters/{characterID}/images/{imageID}
func (h *ImageHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	characterID, err := getIDFromURL(r, "characterID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	imageID, err := getIDFromURL(r, "imageID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.imageService.DeleteImage(r.Context(), currentUserID, characterID, imageID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
