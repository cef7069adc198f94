// ABOUTME: MCP session over a Playwright tool server spawned as a subprocess.
// ABOUTME: Exposes Call for text tools and Screenshot for image capture; adapters build on Caller.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ErrToolFailed marks a tool-reported failure, as opposed to a transport
// fault. Adapters match on it to classify expected action failures.
var ErrToolFailed = errors.New("browser: tool reported failure")

// Caller issues one MCP tool call and returns the concatenated text content.
// Session implements it; tests substitute a closure-backed fake.
type Caller interface {
	Call(ctx context.Context, tool string, args map[string]any) (string, error)
}

// SessionConfig controls how the tool server process is started.
type SessionConfig struct {
	Headless bool
	// Command and Args override the default npx invocation, for pinned
	// installs or test stubs.
	Command string
	Args    []string
}

// serverCommand resolves the tool server invocation.
func serverCommand(cfg SessionConfig) (string, []string) {
	if cfg.Command != "" {
		return cfg.Command, cfg.Args
	}
	args := []string{"@playwright/mcp@latest"}
	if cfg.Headless {
		args = append(args, "--headless")
	}
	return "npx", args
}

// Session is a live connection to the Playwright MCP server.
type Session struct {
	session *mcp.ClientSession
}

// Connect starts the tool server subprocess and performs the MCP handshake.
func Connect(ctx context.Context, cfg SessionConfig) (*Session, error) {
	name, args := serverCommand(cfg)
	client := mcp.NewClient(&mcp.Implementation{Name: "gauntlet", Version: "0.1.0"}, nil)
	sess, err := client.Connect(ctx, &mcp.CommandTransport{Command: exec.Command(name, args...)}, nil)
	if err != nil {
		return nil, fmt.Errorf("browser: connecting to tool server: %w", err)
	}
	return &Session{session: sess}, nil
}

// Call invokes a tool and concatenates its text content. A tool-reported
// error returns the text alongside an ErrToolFailed-wrapped error so callers
// can distinguish it from a dead transport.
func (s *Session) Call(ctx context.Context, tool string, args map[string]any) (string, error) {
	res, err := s.session.CallTool(ctx, &mcp.CallToolParams{Name: tool, Arguments: args})
	if err != nil {
		return "", fmt.Errorf("browser: calling %s: %w", tool, err)
	}
	text := joinTextContent(res)
	if res.IsError {
		return text, fmt.Errorf("%w: %s: %s", ErrToolFailed, tool, firstLine(text))
	}
	return text, nil
}

// Screenshot captures the current page as an image.
func (s *Session) Screenshot(ctx context.Context) ([]byte, string, error) {
	res, err := s.session.CallTool(ctx, &mcp.CallToolParams{Name: "browser_take_screenshot"})
	if err != nil {
		return nil, "", fmt.Errorf("browser: taking screenshot: %w", err)
	}
	if res.IsError {
		return nil, "", fmt.Errorf("%w: browser_take_screenshot: %s", ErrToolFailed, firstLine(joinTextContent(res)))
	}
	for _, c := range res.Content {
		if img, ok := c.(*mcp.ImageContent); ok {
			return img.Data, img.MIMEType, nil
		}
	}
	return nil, "", errors.New("browser: screenshot returned no image content")
}

// Close shuts down the MCP session and the server subprocess.
func (s *Session) Close() error {
	return s.session.Close()
}

func joinTextContent(res *mcp.CallToolResult) string {
	var b strings.Builder
	for _, c := range res.Content {
		if t, ok := c.(*mcp.TextContent); ok {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
