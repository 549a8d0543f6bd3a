package email_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courierd/courierd/pkg/email"
)

func TestMessage_Validate(t *testing.T) {
	t.Parallel()

	valid := email.Message{
		To:       "user@example.com",
		Subject:  "Welcome",
		BodyText: "Hello there",
	}

	tests := []struct {
		name    string
		mutate  func(*email.Message)
		wantErr bool
	}{
		{"valid plain text", func(m *email.Message) {}, false},
		{"valid with html", func(m *email.Message) { m.BodyHTML = "<p>Hello</p>" }, false},
		{"html only body", func(m *email.Message) { m.BodyText = ""; m.BodyHTML = "<p>Hi</p>" }, false},
		{"missing recipient", func(m *email.Message) { m.To = "" }, true},
		{"malformed address", func(m *email.Message) { m.To = "not-an-address" }, true},
		{"missing subject", func(m *email.Message) { m.Subject = "" }, true},
		{"missing body", func(m *email.Message) { m.BodyText = "" }, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := valid
			tt.mutate(&m)
			err := m.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, email.ErrInvalidMessage)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewPostmarkClient_ConfigValidation(t *testing.T) {
	t.Parallel()

	valid := email.Config{
		PostmarkServerToken:  "server-token",
		PostmarkAccountToken: "account-token",
		SenderEmail:          "no-reply@example.com",
		SupportEmail:         "support@example.com",
	}

	t.Run("valid config", func(t *testing.T) {
		t.Parallel()
		sender, err := email.NewPostmarkClient(valid)
		require.NoError(t, err)
		assert.NotNil(t, sender)
	})

	t.Run("missing tokens", func(t *testing.T) {
		t.Parallel()

		cfg := valid
		cfg.PostmarkServerToken = ""
		_, err := email.NewPostmarkClient(cfg)
		assert.ErrorIs(t, err, email.ErrInvalidConfig)

		cfg = valid
		cfg.PostmarkAccountToken = ""
		_, err = email.NewPostmarkClient(cfg)
		assert.ErrorIs(t, err, email.ErrInvalidConfig)
	})

	t.Run("invalid sender address", func(t *testing.T) {
		t.Parallel()

		cfg := valid
		cfg.SenderEmail = "nope"
		_, err := email.NewPostmarkClient(cfg)
		assert.ErrorIs(t, err, email.ErrInvalidConfig)
	})
}

func TestDevSender(t *testing.T) {
	t.Parallel()

	t.Run("writes message files", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		sender := email.NewDevSender(dir)

		err := sender.Send(context.Background(), email.Message{
			To:       "user@example.com",
			Subject:  "Welcome aboard",
			BodyText: "Hello",
			BodyHTML: "<p>Hello</p>",
			Tag:      "welcome_email",
		})
		require.NoError(t, err)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 2)

		var jsonFile, htmlFile string
		for _, e := range entries {
			switch filepath.Ext(e.Name()) {
			case ".json":
				jsonFile = e.Name()
			case ".html":
				htmlFile = e.Name()
			}
		}
		assert.True(t, strings.Contains(jsonFile, "welcome_email"))
		require.NotEmpty(t, htmlFile)

		html, err := os.ReadFile(filepath.Join(dir, htmlFile))
		require.NoError(t, err)
		assert.Equal(t, "<p>Hello</p>", string(html))
	})

	t.Run("rejects invalid message", func(t *testing.T) {
		t.Parallel()

		sender := email.NewDevSender(t.TempDir())
		err := sender.Send(context.Background(), email.Message{To: "user@example.com"})
		assert.ErrorIs(t, err, email.ErrInvalidMessage)
	})
}
