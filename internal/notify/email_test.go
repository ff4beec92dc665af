package notify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/viniciushammett/k8s-crashloop-monitor/internal/config"
	"github.com/viniciushammett/k8s-crashloop-monitor/internal/logger"
)

func TestSendUnconfiguredReturnsFalse(t *testing.T) {
	e := NewEmail(logger.Nop(), config.EmailConfig{SMTPHost: "smtp.gmail.com", SMTPPort: 587})
	assert.False(t, e.Send("subject", "body"))
}

func TestMessageFormat(t *testing.T) {
	e := NewEmail(logger.Nop(), config.EmailConfig{
		From: "alerts@example.com",
		To:   []string{"a@example.com", "b@example.com"},
	})
	msg := e.message("[K8s ALERT] test", "line1\nline2")
	lines := strings.Split(msg, "\r\n")
	assert.Equal(t, "From: alerts@example.com", lines[0])
	assert.Equal(t, "To: a@example.com,b@example.com", lines[1])
	assert.Equal(t, "Subject: [K8s ALERT] test", lines[2])
	assert.Contains(t, msg, "\r\n\r\nline1\nline2")
}
