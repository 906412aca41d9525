package email

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendThroughRecorder(t *testing.T) {
	recorder := &Recorder{}
	SetSender(recorder)
	defer Init(GenerateTestConfig())

	require.Nil(t, SendText("a@example.com", "hello", "body"))
	require.Nil(t, SendHtml("b@example.com", "hi", "<p>x</p>"))

	messages := recorder.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, Message{To: "a@example.com", Subject: "hello", Body: "body"}, messages[0])
	assert.True(t, messages[1].HTML)
}

func TestRecorderError(t *testing.T) {
	recorder := &Recorder{Err: errors.New("smtp down")}
	SetSender(recorder)
	defer Init(GenerateTestConfig())

	assert.NotNil(t, SendText("a@example.com", "hello", "body"))
	assert.Empty(t, recorder.Messages())
}

func TestDisabledSenderDrops(t *testing.T) {
	Init(GenerateTestConfig())
	assert.Nil(t, SendText("a@example.com", "hello", "body"))
}

func TestSMTPSenderFrom(t *testing.T) {
	s := &smtpSender{config: SMTPConfig{UserName: "user@example.com"}}
	assert.Equal(t, "user@example.com", s.from())

	s.config.From = "from@example.com"
	assert.Equal(t, "from@example.com", s.from())
}
