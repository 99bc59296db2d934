package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShashankAtmakur/survey-management-system/internal/model"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	r := mux.NewRouter()
	r.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req model.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid username or password"}`))
			return
		}
		json.NewEncoder(w).Encode(model.LoginResponse{Token: "tok", OwnerID: "owner_1"})
	}).Methods("POST")
	r.HandleFunc("/api/surveys/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(model.Survey{ID: mux.Vars(r)["id"], Title: "Lunch"})
	}).Methods("GET")
	r.HandleFunc("/api/surveys/{id}/responses", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"validation failed","fields":[{"question":"Name","error":"answer is required"}]}`))
	}).Methods("POST")
	r.HandleFunc("/api/surveys/{id}/responses/export", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "csv", r.URL.Query().Get("format"))
		w.Write([]byte("\"Response ID\"\r\n"))
	}).Methods("GET")
	r.HandleFunc("/api/surveys/{id}/analytics", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}).Methods("GET")
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoginKeepsToken(t *testing.T) {
	srv := newServer(t)
	c := New(srv.URL + "/")
	ctx := context.Background()

	_, err := c.Login(ctx, "admin", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid username or password", apiErr.Message)

	resp, err := c.Login(ctx, "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, "owner_1", resp.OwnerID)

	survey, err := c.GetSurvey(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", survey.ID)
}

func TestValidationFields(t *testing.T) {
	c := New(newServer(t).URL)

	_, err := c.SubmitResponse(context.Background(), "s1", model.Answers{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, []FieldError{{Question: "Name", Error: "answer is required"}}, apiErr.Fields)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestNonJSONError(t *testing.T) {
	c := New(newServer(t).URL)

	_, err := c.Analytics(context.Background(), "s1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "upstream down", apiErr.Message)
}

func TestExportCSV(t *testing.T) {
	c := New(newServer(t).URL)
	c.SetToken("tok")

	var buf bytes.Buffer
	require.NoError(t, c.ExportCSV(context.Background(), "s1", &buf))
	assert.Equal(t, "\"Response ID\"\r\n", buf.String())
}

func TestUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).GetSurvey(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrUnavailable)
}
