package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestLintFindsMissingAndDuplicateMarkers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package q\n\nconst QGood = `\n--sql 0f5c2a8e-4b1d-4c6e-9a7f-1d2e3f4a5b6c\nselect 1`\n\nconst QMissing = `select id from campaigns`\n")
	writeFile(t, dir, "b.go", "package q\n\nconst (\n\tQDup = `--sql 0f5c2a8e-4b1d-4c6e-9a7f-1d2e3f4a5b6c\nupdate campaigns set title = $1`\n\tlabel = \"not sql at all\"\n)\n")
	writeFile(t, dir, "b_test.go", "package q\n\nconst qFixture = `select 2`\n")

	findings, err := lint([]string{dir})
	require.NoError(t, err)
	require.Len(t, findings, 2)

	assert.Equal(t, "QMissing", findings[0].name)
	assert.Contains(t, findings[0].message, "missing or invalid")
	assert.Equal(t, "QDup", findings[1].name)
	assert.Contains(t, findings[1].message, "already used by QGood")
}

func TestLintCleanTree(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "q.go", "package q\n\nconst QOne = \"--sql 11111111-2222-4333-8444-555555555555\\nselect 1\"\n")

	findings, err := lint([]string{dir})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestSQLInlineMarkersAreUnique(t *testing.T) {
	findings, err := lint([]string{"../../sqlinline"})
	require.NoError(t, err)
	for _, f := range findings {
		t.Errorf("%s", f)
	}
}
