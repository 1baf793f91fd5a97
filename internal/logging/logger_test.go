package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: zerolog.WarnLevel, Output: &buf, NoColor: true})

	log.Info("should be filtered")
	assert.Empty(t, buf.String())

	log.Warn("should appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestWithReactorAndWithFdTagContext(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: zerolog.InfoLevel, Output: &buf, NoColor: true})

	log.WithReactor("worker").WithFd(7).Info("hello")
	out := buf.String()
	assert.Contains(t, out, "worker")
	assert.Contains(t, out, "hello")
}

func TestErrorErrAttachesError(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: zerolog.InfoLevel, Output: &buf, NoColor: true})

	log.ErrorErr("failed", assert.AnError)
	assert.Contains(t, buf.String(), assert.AnError.Error())
}
