package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xpanvictor/annotator/internal/ingest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func writeConfig(t *testing.T, dbPath string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config_test.yaml")
	content := "database:\n  driver: sqlite\n  path: " + dbPath + "\nstorage:\n  root: " + t.TempDir() + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestMigrateCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "annotator.db")

	cmd := rootCommand()
	cmd.SetArgs([]string{"--config", writeConfig(t, dbPath), "migrate"})
	require.NoError(t, cmd.Execute())

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()
	for _, table := range []string{"recording", "hypothesis", "transcription", "user"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestRootRejectsMissingConfigFile(t *testing.T) {
	cmd := rootCommand()
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "migrate"})
	assert.ErrorContains(t, cmd.Execute(), "failed to load configuration")
}

func TestReadInputStdin(t *testing.T) {
	raw, err := readInput(bytes.NewBufferString(`{"id":"x"}`), "-")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"x"}`, string(raw))
}

func TestNormalizeMessage(t *testing.T) {
	raw := []byte(`{
		"id": "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		"model": "en",
		"body": "AQACAA==",
		"frame_rate": 16000,
		"alternatives": [{"transcript": "hello", "confidence": 0.9}],
		"worker": "asr-3"
	}`)

	msg, normalized, err := normalizeMessage(raw)
	require.NoError(t, err)
	assert.NotContains(t, string(normalized), "worker")
	assert.NotContains(t, string(normalized), "\n")

	again, err := ingest.Decode(normalized)
	require.NoError(t, err)
	assert.Equal(t, msg, again)
	assert.Equal(t, []byte{1, 0, 2, 0}, again.Body)
}

func TestNormalizeMessageRejectsInvalid(t *testing.T) {
	_, _, err := normalizeMessage([]byte(`{"model": "en"}`))
	var de *ingest.DecodeError
	assert.ErrorAs(t, err, &de)
}
