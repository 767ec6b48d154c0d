package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger(LogConfig{Level: "loud"})
	require.Error(t, err)
}

func TestNewLogger_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bot.log")
	log, err := NewLogger(LogConfig{Level: "info", Format: "json", LogToFile: true, LogFilePath: path})
	require.NoError(t, err)

	log.Info("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"hello"`)
}

func TestCustomFormatter_SortsFields(t *testing.T) {
	entry := &logrus.Entry{
		Time:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   logrus.InfoLevel,
		Message: "checked",
		Data:    logrus.Fields{"b": 2, "a": 1},
	}

	out, err := (&CustomFormatter{}).Format(entry)
	require.NoError(t, err)
	line := string(out)
	assert.True(t, strings.HasPrefix(line, "2024-01-02 03:04:05.000"))
	assert.Contains(t, line, "checked | a=1 b=2")
}

func TestLogError_MergesFields(t *testing.T) {
	base, hook := test.NewNullLogger()
	log := Wrap(base)

	log.LogError("monitor", "get_account_info", errors.New("boom"), logrus.Fields{"account": "abc"})

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "monitor", entry.Data["component"])
	assert.Equal(t, "get_account_info", entry.Data["operation"])
	assert.Equal(t, "abc", entry.Data["account"])
	assert.EqualError(t, entry.Data[logrus.ErrorKey].(error), "boom")
}
