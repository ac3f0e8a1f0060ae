package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGo(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("package q\n\n"+body), 0o644))
	return path
}

func TestInlineQueriesCarryMarkers(t *testing.T) {
	violations, err := lint([]string{"../../sqlinline"})
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestMissingMarker(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "q.go", "const QBad = `select 1`\n")

	violations, err := lint([]string{dir})
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Equal(t, "QBad", violations[0].name)
	assert.Equal(t, 3, violations[0].line)
}

func TestDuplicateMarker(t *testing.T) {
	dir := t.TempDir()
	marker := "--sql 11111111-2222-4333-8444-555555555555\n"
	writeGo(t, dir, "a.go", "const QA = `"+marker+"select 1`\n")
	writeGo(t, dir, "b.go", "const QB = `"+marker+"select 2`\n")

	violations, err := lint([]string{dir})
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0].message, "already used")
}

func TestNonSQLStringsIgnored(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "c.go", "const greeting = \"hello there\"\n")

	var stderr bytes.Buffer
	assert.Equal(t, 0, run([]string{dir}, &stderr))
	assert.Empty(t, stderr.String())
}
