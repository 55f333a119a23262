package mail

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendGridMailer_SendEmail(t *testing.T) {
	t.Run("posts a single plain-text email", func(t *testing.T) {
		var payload map[string]interface{}
		var auth, path string

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			path = r.URL.Path
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &payload)
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		m := NewSendGridMailer("SG.test", "team@example.com", "Teamseats", WithHost(srv.URL))
		err := m.SendEmail(context.Background(), "invitee@example.com", "Join us", "hello")
		require.NoError(t, err)

		assert.Equal(t, "Bearer SG.test", auth)
		assert.Equal(t, "/v3/mail/send", path)
		assert.Equal(t, "Join us", payload["subject"])

		from := payload["from"].(map[string]interface{})
		assert.Equal(t, "team@example.com", from["email"])
		assert.Equal(t, "Teamseats", from["name"])

		personalizations := payload["personalizations"].([]interface{})
		require.Len(t, personalizations, 1)
		to := personalizations[0].(map[string]interface{})["to"].([]interface{})
		assert.Equal(t, "invitee@example.com", to[0].(map[string]interface{})["email"])

		content := payload["content"].([]interface{})
		require.NotEmpty(t, content)
		assert.Equal(t, "text/plain", content[0].(map[string]interface{})["type"])
		assert.Equal(t, "hello", content[0].(map[string]interface{})["value"])
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
		}))
		defer srv.Close()

		m := NewSendGridMailer("SG.bad", "team@example.com", "Teamseats", WithHost(srv.URL))
		err := m.SendEmail(context.Background(), "invitee@example.com", "Join us", "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status 401")
	})
}
