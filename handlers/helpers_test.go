package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charabracket/charabracket/services"
)

func TestReadJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	cases := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "valid", body: `{"name": "Alice"}`},
		{name: "unknown field", body: `{"name": "Alice", "extra": 1}`, wantErr: "unknown key"},
		{name: "malformed", body: `{"name": `, wantErr: "badly-formed"},
		{name: "empty body", body: ``, wantErr: "must not be empty"},
		{name: "wrong field type", body: `{"name": 7}`, wantErr: `incorrect JSON type for field "name"`},
		{name: "trailing value", body: `{"name": "Alice"}{"name": "Bob"}`, wantErr: "single JSON value"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()

			var dst payload
			err := readJSON(rec, req, &dst)
			if tc.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "Alice", dst.Name)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	headers := http.Header{}
	headers.Set("X-Request-Id", "abc")

	err := writeJSON(rec, http.StatusCreated, jsonResponse{"tag": "villain"}, headers)
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "abc", rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "{\n\t\"tag\": \"villain\"\n}\n", rec.Body.String())
}

func TestGetIDFromURL(t *testing.T) {
	request := func(param, value string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rctx := chi.NewRouteContext()
		if param != "" {
			rctx.URLParams.Add(param, value)
		}
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	id, err := getIDFromURL(request("tagID", "15"), "tagID")
	require.NoError(t, err)
	assert.Equal(t, 15, id)

	_, err = getIDFromURL(request("", ""), "tagID")
	require.Error(t, err)

	_, err = getIDFromURL(request("tagID", "abc"), "tagID")
	require.Error(t, err)

	_, err = getIDFromURL(request("tagID", "0"), "tagID")
	require.Error(t, err)

	_, err = getIDFromURL(request("tagID", "-4"), "tagID")
	require.Error(t, err)
}

func TestMapServiceErrorToHTTP(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: services.ErrCharacterNotFound, want: http.StatusNotFound},
		{name: "wrapped not found", err: fmt.Errorf("%w: character 5", services.ErrCharacterNotFound), want: http.StatusNotFound},
		{name: "name conflict", err: services.ErrTagNameConflict, want: http.StatusConflict},
		{name: "duplicate image", err: services.ErrImageDuplicate, want: http.StatusConflict},
		{name: "character in tournament", err: services.ErrCharacterInTournament, want: http.StatusConflict},
		{name: "validation", err: services.ErrNameRequired, want: http.StatusBadRequest},
		{name: "wrapped business rule", err: fmt.Errorf("%w: %q", services.ErrUnknownFormat, "swiss"), want: http.StatusBadRequest},
		{name: "invalid decision", err: services.ErrInvalidDecision, want: http.StatusBadRequest},
		{name: "bad archive", err: services.ErrImportInvalidArchive, want: http.StatusBadRequest},
		{name: "bad credentials", err: services.ErrAuthInvalidCredentials, want: http.StatusUnauthorized},
		{name: "foreign resource", err: services.ErrForbiddenOperation, want: http.StatusForbidden},
		{name: "unexpected", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()

			mapServiceErrorToHTTP(rec, req, tc.err)
			assert.Equal(t, tc.want, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}
