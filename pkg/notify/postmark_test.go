package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/launchkit/pkg/notify"
)

func validPostmarkConfig() notify.PostmarkConfig {
	return notify.PostmarkConfig{
		ServerToken: "server-token",
		SenderEmail: "alerts@example.com",
		Recipients:  []string{"oncall@example.com", "lead@example.com"},
		Tag:         "launchkit-alert",
	}
}

func TestNewPostmarkSink_InvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*notify.PostmarkConfig)
		msg    string
	}{
		{"empty server token", func(c *notify.PostmarkConfig) { c.ServerToken = "" }, "ServerToken is required"},
		{"invalid sender", func(c *notify.PostmarkConfig) { c.SenderEmail = "not-an-email" }, "SenderEmail must be a valid email address"},
		{"no recipients", func(c *notify.PostmarkConfig) { c.Recipients = nil }, "at least one recipient is required"},
		{"invalid recipient", func(c *notify.PostmarkConfig) { c.Recipients = []string{"nope"} }, `recipient "nope"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validPostmarkConfig()
			tt.mutate(&cfg)

			sink, err := notify.NewPostmarkSink(cfg)
			require.Error(t, err)
			assert.Nil(t, sink)
			assert.ErrorIs(t, err, notify.ErrInvalidPostmarkConfig)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestPostmarkSink_Notify(t *testing.T) {
	t.Parallel()

	var got map[string]any
	var token string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token = r.Header.Get("X-Postmark-Server-Token")
		assert.Equal(t, "/email", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"To":"oncall@example.com","MessageID":"abc","ErrorCode":0,"Message":"OK"}`))
	}))
	defer srv.Close()

	cfg := validPostmarkConfig()
	cfg.BaseURL = srv.URL
	sink, err := notify.NewPostmarkSink(cfg)
	require.NoError(t, err)

	require.NoError(t, sink.Notify(context.Background(), "[WARNING] crash_rate", "crash rate 0.011 exceeds 0.01", 0))
	assert.Equal(t, "server-token", token)
	assert.Equal(t, "[WARNING] crash_rate", got["Subject"])
	assert.Equal(t, "oncall@example.com,lead@example.com", got["To"])
	assert.Equal(t, "alerts@example.com", got["From"])
	assert.Equal(t, "crash rate 0.011 exceeds 0.01", got["TextBody"])
}

func TestPostmarkSink_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ErrorCode":300,"Message":"Invalid email request"}`))
	}))
	defer srv.Close()

	cfg := validPostmarkConfig()
	cfg.BaseURL = srv.URL
	sink, err := notify.NewPostmarkSink(cfg)
	require.NoError(t, err)

	err = sink.Notify(context.Background(), "title", "body", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, notify.ErrDeliveryFailed)
}
