// ABOUTME: Tests for server command resolution and payload text helpers.
// ABOUTME: Also defines the shared fake Caller used across the adapter tests.
package browser

import (
	"context"
	"reflect"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// fakeCaller records tool calls and answers them through a closure.
type fakeCaller struct {
	callFn func(ctx context.Context, tool string, args map[string]any) (string, error)
	calls  []toolCall
}

type toolCall struct {
	tool string
	args map[string]any
}

func (f *fakeCaller) Call(ctx context.Context, tool string, args map[string]any) (string, error) {
	f.calls = append(f.calls, toolCall{tool: tool, args: args})
	if f.callFn != nil {
		return f.callFn(ctx, tool, args)
	}
	return "", nil
}

func (f *fakeCaller) tools() []string {
	names := make([]string, len(f.calls))
	for i, c := range f.calls {
		names[i] = c.tool
	}
	return names
}

func TestServerCommandDefaults(t *testing.T) {
	name, args := serverCommand(SessionConfig{})
	if name != "npx" {
		t.Errorf("name = %q, want npx", name)
	}
	if !reflect.DeepEqual(args, []string{"@playwright/mcp@latest"}) {
		t.Errorf("args = %v", args)
	}
}

func TestServerCommandHeadlessFlag(t *testing.T) {
	_, args := serverCommand(SessionConfig{Headless: true})
	if !reflect.DeepEqual(args, []string{"@playwright/mcp@latest", "--headless"}) {
		t.Errorf("args = %v, want headless appended", args)
	}
}

func TestServerCommandOverride(t *testing.T) {
	name, args := serverCommand(SessionConfig{Command: "/usr/local/bin/mcp-server", Args: []string{"--port", "0"}})
	if name != "/usr/local/bin/mcp-server" {
		t.Errorf("name = %q", name)
	}
	if !reflect.DeepEqual(args, []string{"--port", "0"}) {
		t.Errorf("args = %v", args)
	}
}

func TestJoinTextContentConcatenatesTextParts(t *testing.T) {
	res := &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "first"},
			&mcp.ImageContent{Data: []byte{1}, MIMEType: "image/png"},
			&mcp.TextContent{Text: "second"},
		},
	}
	if got := joinTextContent(res); got != "first\nsecond" {
		t.Errorf("joinTextContent = %q", got)
	}
}

func TestFirstLineTruncates(t *testing.T) {
	if got := firstLine("one\ntwo\nthree"); got != "one" {
		t.Errorf("firstLine = %q", got)
	}
	if got := firstLine("single"); got != "single" {
		t.Errorf("firstLine = %q", got)
	}
}
