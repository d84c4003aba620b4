package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDocs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

const validDoc = `
comprehension: squares: {
	code: "[x * x for x in range(10) if x % 2 == 0]"
}

comprehension: pairs: {
	kind:    "list"
	element: "(i, j)"
	generators: [
		{"var": "i", range: {stop: 1000}},
		{"var": "j", range: {stop: 1000}, filters: ["i * j > 500"]},
	]
}
`

func TestCompile_TextOutput(t *testing.T) {
	dir := writeDocs(t, map[string]string{"docs.cue": validDoc})

	out, _, err := execute(t, "compile", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "Compiled 2 comprehension(s)")
	assert.Contains(t, out, "squares")
	assert.Contains(t, out, "pairs")
}

func TestCompile_JSONOutput(t *testing.T) {
	dir := writeDocs(t, map[string]string{"docs.cue": validDoc})

	out, _, err := execute(t, "--format", "json", "compile", dir)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data := resp.Data.(map[string]any)
	comps := data["comprehensions"].([]any)
	require.Len(t, comps, 2)
	first := comps[0].(map[string]any)
	assert.NotEmpty(t, first["name"])
	assert.Len(t, first["hash"], 64)
	assert.NotNil(t, first["ir"])
}

func TestCompile_HashIsStableAcrossRuns(t *testing.T) {
	dir := writeDocs(t, map[string]string{"docs.cue": validDoc})

	first, _, err := execute(t, "--format", "json", "compile", dir)
	require.NoError(t, err)
	second, _, err := execute(t, "--format", "json", "compile", dir)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCompile_WritesOutputFile(t *testing.T) {
	dir := writeDocs(t, map[string]string{"docs.cue": validDoc})
	path := filepath.Join(t.TempDir(), "compiled.json")

	_, _, err := execute(t, "compile", dir, "-o", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var result CompilationResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Len(t, result.Comprehensions, 2)
}

func TestCompile_MissingDirectory(t *testing.T) {
	out, _, err := execute(t, "compile", filepath.Join(t.TempDir(), "absent"))

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestCompile_NoCUEFiles(t *testing.T) {
	out, _, err := execute(t, "compile", t.TempDir())

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")
}

func TestCompile_CollectsDocumentErrors(t *testing.T) {
	dir := writeDocs(t, map[string]string{"docs.cue": `
comprehension: broken: {
	code: "[x for x in range(0, 10, 0)]"
}

comprehension: alsobad: {
	code: "prod(x for x in range(10))"
}
`})

	out, _, err := execute(t, "compile", dir)

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E104]")
	assert.Contains(t, out, "2 document error(s)")
}
