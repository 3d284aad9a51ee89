package graph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan:
// - Python: extract a function, a class, and a bare-name call inside a function
// - TypeScript: extract a member-call (obj.method()) as a one-level bare name
// - Calls outside any function body get no caller attributed
// - A language with no registered grammar produces no structure, not an error

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestTreeSitterExtractor_Python_FunctionClassAndCall(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeTemp(t, dir, "mod.py", `
class Greeter:
    def greet(self):
        helper()

def helper():
    pass
`)

	extr := NewTreeSitterExtractor(dir, "python")
	result, err := extr.ExtractCodeStructure(path)
	require.NoError(t, err)

	var sawClass bool
	for _, ty := range result.Types {
		if ty.Name == "Greeter" {
			sawClass = true
		}
	}
	assert.True(t, sawClass, "expected to find Greeter class")

	var sawHelper bool
	for _, fn := range result.Functions {
		if fn.Name == "helper" {
			sawHelper = true
		}
	}
	assert.True(t, sawHelper, "expected to find helper function")

	require.Len(t, result.FunctionCalls, 1)
	assert.Equal(t, "helper", result.FunctionCalls[0].CalleeName)
}

func TestTreeSitterExtractor_TypeScript_MemberCallIsBareJoined(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeTemp(t, dir, "mod.ts", `
function run() {
    console.log("hi");
}
`)

	extr := NewTreeSitterExtractor(dir, "typescript")
	result, err := extr.ExtractCodeStructure(path)
	require.NoError(t, err)

	require.Len(t, result.FunctionCalls, 1)
	assert.Equal(t, "console.log", result.FunctionCalls[0].CalleeName)
	assert.Equal(t, "run", functionName(result.Functions, result.FunctionCalls[0].CallerFunctionID))
}

func TestTreeSitterExtractor_CallOutsideFunctionHasNoCaller(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeTemp(t, dir, "mod.rb", `
setup()

def run
end
`)

	extr := NewTreeSitterExtractor(dir, "ruby")
	result, err := extr.ExtractCodeStructure(path)
	require.NoError(t, err)

	require.Len(t, result.FunctionCalls, 1)
	assert.Equal(t, "setup", result.FunctionCalls[0].CalleeName)
	assert.Equal(t, "", result.FunctionCalls[0].CallerFunctionID)
}

func functionName(functions []Function, id string) string {
	for _, fn := range functions {
		if fn.ID == id {
			return fn.Name
		}
	}
	return ""
}

func TestMultiExtractor_SupportsFile(t *testing.T) {
	t.Parallel()
	assert.True(t, SupportsFile("main.go"))
	assert.True(t, SupportsFile("main.py"))
	assert.True(t, SupportsFile("main.rs"))
	assert.False(t, SupportsFile("README.md"))
	assert.False(t, SupportsFile("data.json"))
}
