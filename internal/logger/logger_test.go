package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesToFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "app.log")

	closer, err := Init(Config{Level: "debug", Format: "json", File: logFile})
	require.NoError(t, err)

	Info().Str("component", "test").Msg("hello file")
	StdLogger("[std] ").Print("via std logger")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err, "日志文件应已创建")
	content := string(data)
	assert.True(t, strings.Contains(content, "hello file"), "日志文件应包含写入的消息")
	assert.True(t, strings.Contains(content, "via std logger"))
}

func TestInitInvalidLevelFallsBackToInfo(t *testing.T) {
	closer, err := Init(Config{Level: "loud", Format: "json"})
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, "info", Logger.GetLevel().String())
}
