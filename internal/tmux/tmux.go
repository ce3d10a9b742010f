// Package tmux wraps the tmux CLI. Every operation shells out through a
// Runner so session management stays testable without a live server.
package tmux

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrNotInstalled means the tmux binary is not on PATH. Callers fall back to
// direct execution mode.
var ErrNotInstalled = errors.New("tmux is not installed")

// Runner executes a tmux command and returns its combined trimmed output.
type Runner interface {
	Run(args ...string) (string, error)
}

// execRunner shells out to the real tmux binary.
type execRunner struct{}

func (execRunner) Run(args ...string) (string, error) {
	out, err := exec.Command("tmux", args...).CombinedOutput()
	text := strings.TrimSpace(string(out))
	if err != nil {
		return text, fmt.Errorf("tmux %s: %w (%s)", args[0], err, text)
	}
	return text, nil
}

// Client issues tmux commands through a Runner.
type Client struct {
	runner Runner
}

// NewClient returns a client backed by the tmux binary.
func NewClient() *Client {
	return &Client{runner: execRunner{}}
}

// NewClientWithRunner returns a client backed by a custom runner (for testing).
func NewClientWithRunner(r Runner) *Client {
	return &Client{runner: r}
}

// Installed reports whether the tmux binary is available on PATH.
func Installed() bool {
	_, err := exec.LookPath("tmux")
	return err == nil
}

// Window is one tmux window inside a session.
type Window struct {
	ID   string
	Name string
}

// Pane is one tmux pane, with the server-reported start time for age ordering.
type Pane struct {
	ID        string
	StartTime int64 // unix seconds
}

// HasSession reports whether a session with the exact name exists.
func (c *Client) HasSession(name string) bool {
	_, err := c.runner.Run("has-session", "-t", "="+name)
	return err == nil
}

// NewSession creates a detached session.
func (c *Client) NewSession(name string) error {
	_, err := c.runner.Run("new-session", "-d", "-s", name)
	return err
}

// KillSession destroys a session and every window in it.
func (c *Client) KillSession(name string) error {
	_, err := c.runner.Run("kill-session", "-t", "="+name)
	return err
}

// ListSessions returns the names of all sessions on the server. A missing
// server is not an error; there are just no sessions.
func (c *Client) ListSessions() ([]string, error) {
	out, err := c.runner.Run("list-sessions", "-F", "#{session_name}")
	if err != nil {
		if strings.Contains(out, "no server running") || strings.Contains(err.Error(), "no server running") {
			return nil, nil
		}
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// NewWindow creates a named window in a session and returns its ID.
func (c *Client) NewWindow(session, name string) (string, error) {
	return c.runner.Run("new-window", "-t", "="+session, "-n", name, "-P", "-F", "#{window_id}")
}

// ListWindows returns the windows of a session.
func (c *Client) ListWindows(session string) ([]Window, error) {
	out, err := c.runner.Run("list-windows", "-t", "="+session, "-F", "#{window_id} #{window_name}")
	if err != nil {
		return nil, err
	}
	var windows []Window
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		id, name, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		windows = append(windows, Window{ID: id, Name: name})
	}
	return windows, nil
}

// KillWindow destroys a window by target (session:window or window ID).
func (c *Client) KillWindow(target string) error {
	_, err := c.runner.Run("kill-window", "-t", target)
	return err
}

// ListPanes returns the panes of a window, with start times for LRU eviction.
func (c *Client) ListPanes(target string) ([]Pane, error) {
	out, err := c.runner.Run("list-panes", "-t", target, "-F", "#{pane_id} #{pane_start_time}")
	if err != nil {
		return nil, err
	}
	var panes []Pane
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		id, startStr, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		var start int64
		_, _ = fmt.Sscanf(startStr, "%d", &start)
		panes = append(panes, Pane{ID: id, StartTime: start})
	}
	return panes, nil
}

// SplitWindow splits the target window horizontally and returns the new pane ID.
func (c *Client) SplitWindow(target string) (string, error) {
	return c.runner.Run("split-window", "-h", "-t", target, "-P", "-F", "#{pane_id}")
}

// KillPane destroys a pane by ID.
func (c *Client) KillPane(paneID string) error {
	_, err := c.runner.Run("kill-pane", "-t", paneID)
	return err
}

// SelectLayout applies the even-horizontal layout so panes stay visible.
func (c *Client) SelectLayout(target string) error {
	_, err := c.runner.Run("select-layout", "-t", target, "even-horizontal")
	return err
}

// SendKeys types a command into a pane and presses Enter. The command runs
// fire-and-forget; its exit status is not observed.
func (c *Client) SendKeys(target, command string) error {
	_, err := c.runner.Run("send-keys", "-t", target, command, "Enter")
	return err
}

// CapturePane returns the visible contents of a pane.
func (c *Client) CapturePane(target string) (string, error) {
	return c.runner.Run("capture-pane", "-t", target, "-p")
}

// Attach attaches the current terminal to a session, or switches the active
// client when already inside tmux.
func (c *Client) Attach(session string) error {
	if os.Getenv("TMUX") != "" {
		_, err := c.runner.Run("switch-client", "-t", "="+session)
		return err
	}
	cmd := exec.Command("tmux", "attach-session", "-t", "="+session)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
