package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// CommandContext is the function used to create exec.Cmd instances.
// It can be replaced in tests to mock command execution.
var CommandContext = exec.CommandContext

// ClaudeCLI runs the Claude Code CLI in print mode. It has no native tool
// calling, so the argument schema is appended to the prompt and the text
// result is returned as the arguments.
type ClaudeCLI struct {
	Timeout time.Duration
}

// ClaudeAvailable reports whether the claude command exists in PATH.
func ClaudeAvailable() bool {
	_, err := exec.LookPath("claude")
	return err == nil
}

// Name returns the backend name.
func (c *ClaudeCLI) Name() string { return "claude-cli" }

// Complete runs the CLI and returns its result text.
func (c *ClaudeCLI) Complete(ctx context.Context, req Request) ([]byte, error) {
	ctx, cancel := withDefaultTimeout(ctx, c.Timeout)
	defer cancel()

	prompt, err := cliPrompt(req)
	if err != nil {
		return nil, err
	}

	cmd := CommandContext(ctx, "claude", "-p", prompt, "--output-format", "json")
	// drop CLAUDECODE so the CLI doesn't refuse to nest
	cmd.Env = nil
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, "CLAUDECODE=") {
			cmd.Env = append(cmd.Env, env)
		}
	}

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, unavailable(ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, unavailable(fmt.Errorf("claude exited %d: %s", exitErr.ExitCode(), strings.TrimSpace(string(exitErr.Stderr))))
		}
		return nil, unavailable(err)
	}

	// --output-format json wraps the answer in {"result": "..."}
	var parsed struct {
		Result  string `json:"result"`
		IsError bool   `json:"is_error"`
	}
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("%w: unreadable CLI envelope: %v", ErrNoOutput, err)
	}
	if parsed.IsError {
		return nil, unavailable(errors.New(parsed.Result))
	}
	result := unfence(parsed.Result)
	if result == "" {
		return nil, ErrNoOutput
	}
	return []byte(result), nil
}

func cliPrompt(req Request) (string, error) {
	schema, err := json.MarshalIndent(req.Tool.Parameters, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal tool schema: %w", err)
	}
	var b strings.Builder
	b.WriteString(req.System)
	b.WriteString("\n\n## Output\n\n")
	fmt.Fprintf(&b, "Respond with exactly one JSON object: the arguments of %s (%s). ", req.Tool.Name, req.Tool.Description)
	b.WriteString("No prose, no markdown. It must match this JSON Schema:\n\n")
	b.Write(schema)
	b.WriteString("\n\n## Message\n\n")
	b.WriteString(req.User)
	return b.String(), nil
}

// unfence strips one enclosing markdown code fence, which the CLI adds
// around JSON even when told not to. The content itself is left alone.
func unfence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
		inner = inner[nl+1:]
	} else {
		return s
	}
	return strings.TrimSpace(inner)
}
