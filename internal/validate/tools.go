package validate

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const toolDiscoveryTimeout = 5 * time.Second
const toolRunTimeout = 10 * time.Second

// toolCache memoizes whether an external tool was found on PATH, for the
// lifetime of the process, keyed by tool name — the Go equivalent of
// validation_service.py's repeated shutil.which probes, which it does not
// itself cache; this package adds the cache per SPEC_FULL §6.13.
type toolCache struct {
	cache *lru.Cache[string, bool]
}

func newToolCache() *toolCache {
	c, _ := lru.New[string, bool](32)
	return &toolCache{cache: c}
}

func (t *toolCache) available(ctx context.Context, tool string, versionArgs ...string) bool {
	if found, ok := t.cache.Get(tool); ok {
		return found
	}

	ctx, cancel := context.WithTimeout(ctx, toolDiscoveryTimeout)
	defer cancel()

	path, err := exec.LookPath(tool)
	found := err == nil
	if found {
		cmd := exec.CommandContext(ctx, path, versionArgs...)
		found = cmd.Run() == nil
	}
	t.cache.Add(tool, found)
	return found
}

// runWithTempFile writes content to a temp file with the given extension,
// runs args against it, and returns stdout regardless of exit code (the
// callers below parse diagnostics out of a non-zero exit's stdout).
func runWithTempFile(ctx context.Context, content, ext string, args ...string) (stdout string, path string, cleanup func(), err error) {
	f, err := os.CreateTemp("", "sourcelens-validate-*"+ext)
	if err != nil {
		return "", "", func() {}, err
	}
	path = f.Name()
	cleanup = func() { os.Remove(path) }

	if _, err := f.WriteString(content); err != nil {
		f.Close()
		cleanup()
		return "", "", func() {}, err
	}
	f.Close()

	ctx, cancel := context.WithTimeout(ctx, toolRunTimeout)
	defer cancel()

	fullArgs := append(append([]string{}, args...), path)
	cmd := exec.CommandContext(ctx, args[0], fullArgs[1:]...)
	out, _ := cmd.CombinedOutput()
	return string(out), path, cleanup, nil
}

// typeCheck runs mypy (Python) or tsc (TypeScript) against content, per
// validation_service.py::_validate_types_python / _validate_types_typescript.
// Returns (nil, nil) when the tool is unavailable.
func (t *toolCache) typeCheck(ctx context.Context, lang, content string) (*bool, []Issue) {
	switch lang {
	case "python":
		if !t.available(ctx, "mypy", "--version") {
			return nil, nil
		}
		out, tmpPath, cleanup, err := runWithTempFile(ctx, content, ".py", "mypy", "--no-error-summary")
		defer cleanup()
		if err != nil {
			return nil, nil
		}
		issues := parseColonDelimited(out, tmpPath, "mypy", SeverityError)
		return boolPtr(len(issues) == 0), issues

	case "typescript":
		if !t.available(ctx, "tsc", "--version") {
			return nil, nil
		}
		out, tmpPath, cleanup, err := runWithTempFile(ctx, content, ".ts", "tsc", "--noEmit")
		defer cleanup()
		if err != nil {
			return nil, nil
		}
		issues := parseColonDelimited(out, tmpPath, "typescript", SeverityError)
		return boolPtr(len(issues) == 0), issues
	}
	return nil, nil
}

// lint runs flake8 (Python) or eslint (JS/TS) against content, per
// validation_service.py::_lint_python / _lint_javascript. Returns (nil, nil)
// when the tool is unavailable.
func (t *toolCache) lint(ctx context.Context, lang, content, ext string) (*bool, []Issue) {
	switch lang {
	case "python":
		if !t.available(ctx, "flake8", "--version") {
			return nil, nil
		}
		out, tmpPath, cleanup, err := runWithTempFile(ctx, content, ".py", "flake8", "--format=default")
		defer cleanup()
		if err != nil {
			return nil, nil
		}
		issues := parseFlake8(out, tmpPath)
		return boolPtr(len(issues) == 0), issues

	case "typescript", "javascript":
		if !t.available(ctx, "eslint", "--version") {
			return nil, nil
		}
		out, tmpPath, cleanup, err := runWithTempFile(ctx, content, ext, "eslint")
		defer cleanup()
		if err != nil {
			return nil, nil
		}
		issues := parseColonDelimited(out, tmpPath, "eslint", SeverityWarning)
		return boolPtr(len(issues) == 0), issues
	}
	return nil, nil
}

// parseColonDelimited parses "path:line:col: message" style tool output
// (mypy, tsc, eslint's non-JSON formatters), mirroring the `line.split(':')`
// parsing validation_service.py applies to mypy/tsc stdout.
func parseColonDelimited(output, tmpPath, rule string, severity Severity) []Issue {
	var issues []Issue
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		line := sc.Text()
		if !strings.Contains(line, tmpPath) {
			continue
		}
		parts := strings.SplitN(line, ":", 4)
		if len(parts) < 4 {
			continue
		}
		lineNum, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			continue
		}
		col, _ := strconv.Atoi(strings.TrimSpace(parts[2]))
		issues = append(issues, Issue{
			Severity: severity,
			Line:     lineNum,
			Column:   col,
			Message:  strings.TrimSpace(parts[3]),
			Rule:     rule,
		})
	}
	return issues
}

// parseFlake8 parses "path:line:col: CODE message", splitting severity by
// the E/W rule-code prefix exactly as validation_service.py::_lint_python does.
func parseFlake8(output, tmpPath string) []Issue {
	var issues []Issue
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		line := sc.Text()
		if !strings.Contains(line, tmpPath) {
			continue
		}
		parts := strings.SplitN(line, ":", 4)
		if len(parts) < 4 {
			continue
		}
		lineNum, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			continue
		}
		col, _ := strconv.Atoi(strings.TrimSpace(parts[2]))
		codeAndMsg := strings.SplitN(strings.TrimSpace(parts[3]), " ", 2)
		rule := codeAndMsg[0]
		msg := strings.TrimSpace(parts[3])
		if len(codeAndMsg) > 1 {
			msg = codeAndMsg[1]
		}

		severity := SeverityWarning
		if strings.HasPrefix(rule, "E") {
			severity = SeverityError
		}

		issues = append(issues, Issue{Severity: severity, Line: lineNum, Column: col, Message: msg, Rule: rule})
	}
	return issues
}
