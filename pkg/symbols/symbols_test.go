package symbols

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureSource = `package web

import "net/http"

// Server handles incoming requests.
type Server struct {
	addr string
}

func (s *Server) Start() error {
	return http.ListenAndServe(s.addr, nil)
}

func NewServer(addr string) *Server {
	return &Server{addr: addr}
}

var defaultAddr = ":8080"
`

func writeFixture(t *testing.T, source string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "web.go")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}

func TestExtractFileEmitsClassesMethodsFunctionsAndGlobals(t *testing.T) {
	records, err := ExtractFile(writeFixture(t, fixtureSource))
	require.NoError(t, err)

	byName := make(map[string]int)
	for i, r := range records {
		byName[r.Name] = i
	}

	require.Contains(t, byName, "Server")
	require.Contains(t, byName, "Start")
	require.Contains(t, byName, "NewServer")
	require.Contains(t, byName, "defaultAddr")

	server := records[byName["Server"]]
	assert.Equal(t, "ClassDef", server.Type)

	start := records[byName["Start"]]
	assert.Equal(t, "FunctionDef", start.Type)
	assert.Equal(t, "Server", start.ParentName, "a method's ParentName is its receiver type")
	assert.True(t, start.HaveReturn)

	newServer := records[byName["NewServer"]]
	assert.Equal(t, "FunctionDef", newServer.Type)
	assert.Empty(t, newServer.ParentName)
	assert.Equal(t, []string{"string"}, newServer.Params)

	global := records[byName["defaultAddr"]]
	assert.Equal(t, "GlobalVar", global.Type)
}

func TestExtractFileLineRangesAndContent(t *testing.T) {
	records, err := ExtractFile(writeFixture(t, fixtureSource))
	require.NoError(t, err)

	for _, r := range records {
		assert.LessOrEqual(t, r.StartLine, r.EndLine, "%s: start must not exceed end", r.Name)
		assert.NotEmpty(t, r.CodeContent, "%s: raw code must be captured", r.Name)
	}
}

func TestExtractFileRejectsUnparsableSource(t *testing.T) {
	_, err := ExtractFile(writeFixture(t, "package web\n\nfunc broken( {\n"))
	assert.Error(t, err)
}

func TestExtractDirSkipsGitAndVendor(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vendor", "dep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "junk.go"), []byte("not go"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "vendor", "dep", "dep.go"), []byte("package dep\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o644))

	out, err := ExtractDir(root)
	require.NoError(t, err)

	assert.Contains(t, out, "main.go")
	assert.NotContains(t, out, "vendor/dep/dep.go")
	assert.Len(t, out, 1)
}
