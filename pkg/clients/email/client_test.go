package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/stockwatch/internal/config"
)

func TestSendEmailPostsPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_123"}`))
	}))
	defer srv.Close()

	client := NewClient(config.EmailConfig{APIKey: "re_test", From: "alerts@example.com", BaseURL: srv.URL + "/"})

	resp, err := client.SendEmail(context.Background(), SendEmailRequest{
		To:      []string{"a@example.com", "b@example.com"},
		Subject: "Low stock",
		HTML:    "<p>hi</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "msg_123", resp.ID)

	assert.Equal(t, "alerts@example.com", got["from"])
	assert.Equal(t, []any{"a@example.com", "b@example.com"}, got["to"])
	assert.Equal(t, "Low stock", got["subject"])
	assert.Equal(t, "<p>hi</p>", got["html"])
}

func TestSendEmailSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"Invalid from field"}`))
	}))
	defer srv.Close()

	client := NewClient(config.EmailConfig{APIKey: "re_test", From: "bad", BaseURL: srv.URL})

	_, err := client.SendEmail(context.Background(), SendEmailRequest{To: []string{"a@example.com"}, Subject: "s", HTML: "h"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code=422")
	assert.Contains(t, err.Error(), "Invalid from field")
}

func TestSendEmailRejectsMissingSender(t *testing.T) {
	client := NewClient(config.EmailConfig{APIKey: "re_test", BaseURL: "http://127.0.0.1:1"})

	_, err := client.SendEmail(context.Background(), SendEmailRequest{To: []string{"a@example.com"}})
	require.Error(t, err)
}
