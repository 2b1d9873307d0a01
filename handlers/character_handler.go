package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/charabracket/charabracket/middleware"
	"github.com/charabracket/charabracket/services"
)

type CharacterHandler struct {
	characterService services.CharacterService
}

func NewCharacterHandler(cs services.CharacterService) *CharacterHandler {
	return &CharacterHandler{
		characterService: cs,
	}
}

// CreateHandler обрабатывает POST /characters
func (h *CharacterHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var input services.CharacterInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	character, err := h.characterService.CreateCharacter(r.Context(), currentUserID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"character": character}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler обрабатывает GET /characters/{characterID}
func (h *CharacterHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	id, err := getIDFromURL(r, "characterID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	character, err := h.characterService.GetCharacterByID(r.Context(), currentUserID, id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"character": character}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler обрабатывает GET /characters
func (h *CharacterHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var filter services.CharacterListFilter
	query := r.URL.Query()

	if search := query.Get("search"); search != "" {
		filter.Search = &search
	}
	if tagIDStr := query.Get("tag_id"); tagIDStr != "" {
		if id, err := strconv.Atoi(tagIDStr); err == nil && id > 0 {
			filter.TagID = &id
		} else {
			badRequestResponse(w, r, errors.New("invalid tag_id query parameter"))
			return
		}
	}
	if groupIDStr := query.Get("group_id"); groupIDStr != "" {
		if id, err := strconv.Atoi(groupIDStr); err == nil && id > 0 {
			filter.GroupID = &id
		} else {
			badRequestResponse(w, r, errors.New("invalid group_id query parameter"))
			return
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			filter.Limit = limit
		} else {
			badRequestResponse(w, r, errors.New("invalid limit query parameter"))
			return
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		} else {
			badRequestResponse(w, r, errors.New("invalid offset query parameter"))
			return
		}
	}

	characters, err := h.characterService.ListCharacters(r.Context(), currentUserID, filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"characters": characters}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateHandler обрабатывает PUT /characters/{characterID}
func (h *CharacterHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	id, err := getIDFromURL(r, "characterID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.CharacterInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	character, err := h.characterService.UpdateCharacter(r.Context(), currentUserID, id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"character": character}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteHandler обрабатывает DELETE /characters/{characterID}
func (h *CharacterHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	id, err := getIDFromURL(r, "characterID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.characterService.DeleteCharacter(r.Context(), currentUserID, id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// WordFrequenciesHandler обрабатывает GET /characters/word-frequencies
func (h *CharacterHandler) WordFrequenciesHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			badRequestResponse(w, r, errors.New("invalid limit query parameter"))
			return
		}
		limit = parsed
	}

	frequencies, err := h.characterService.WordFrequencies(r.Context(), currentUserID, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"word_frequencies": frequencies}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
