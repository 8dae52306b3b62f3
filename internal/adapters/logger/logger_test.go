package logger_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/sw/internal/adapters/logger"
	"go.trai.ch/zerr"
)

func TestLogger_WritesToConfiguredOutput(t *testing.T) {
	var buf bytes.Buffer

	l := logger.New()
	l.SetOutput(&buf)

	l.Info("building")
	l.Warn("slow disk")
	l.Error(zerr.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "building")
	assert.Contains(t, out, "slow disk")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "level=ERROR")
}

func TestLogger_ConcurrentUse(t *testing.T) {
	var buf bytes.Buffer

	l := logger.New()
	l.SetOutput(&buf)

	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 50; j++ {
				l.Info("msg")
			}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}
}
