package corepipeline

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func bufferedLogger(prefix string) (*DefaultLogger, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	l := NewDefaultLogger(prefix, false)
	l.out = log.New(&out, "", 0)
	l.err = log.New(&errOut, "", 0)
	return l, &out, &errOut
}

func TestDefaultLogger_Levels(t *testing.T) {
	l, out, errOut := bufferedLogger("render")

	l.Debugf("hidden %d", 1)
	l.Infof("frame %d", 2)
	l.Warnf("slow")
	l.Errorf("failed: %v", assert.AnError)

	assert.Equal(t, "[render] INFO: frame 2\n", out.String())
	assert.Contains(t, errOut.String(), "[render] WARN: slow\n")
	assert.Contains(t, errOut.String(), "[render] ERROR: failed: "+assert.AnError.Error())

	l.SetDebug(true)
	l.Debugf("shown")
	assert.True(t, l.DebugEnabled())
	assert.Contains(t, out.String(), "[render] DEBUG: shown")
}

func TestDefaultLogger_NoPrefix(t *testing.T) {
	l, out, _ := bufferedLogger("")
	l.Infof("ready")
	assert.Equal(t, "INFO: ready\n", out.String())
}

func TestApp_Logger(t *testing.T) {
	var nilApp *App
	assert.IsType(t, &nopLogger{}, nilApp.Logger())

	app := NewAppBuilder().Build()
	assert.IsType(t, &nopLogger{}, app.Logger())

	app = NewAppBuilder().UseModule(LoggingModule{Prefix: "test"}).Build()
	assert.IsType(t, &DefaultLogger{}, app.Logger())

	logger := &captureLogger{}
	app = NewAppBuilder().UseModule(captureLoggerModule{logger: logger}).Build()
	app.Logger().Errorf("boom")
	assert.Equal(t, []string{"boom"}, logger.Errors())
}
