package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// maxStderrDetail caps how much stderr is kept in an error message.
const maxStderrDetail = 512

// Runner executes a command and returns its captured output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// execRunner runs real subprocesses.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Client invokes the extraction tool to dump format metadata without downloading media.
type Client struct {
	runner Runner
	cfg    Config
}

// Option configures a Client.
type Option func(*Client)

// WithRunner replaces the subprocess runner, mainly for tests.
func WithRunner(r Runner) Option {
	return func(c *Client) {
		if r != nil {
			c.runner = r
		}
	}
}

// NewClient creates a Client. It returns an error if the configuration is invalid.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ytdlp config: %w", err)
	}
	c := &Client{cfg: cfg, runner: execRunner{}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Args returns the command-line arguments used for url.
func (c *Client) Args(url string) []string {
	args := []string{
		"--dump-single-json",
		"--skip-download",
		"--no-warnings",
		"--no-playlist",
	}
	if c.cfg.Proxy != "" {
		args = append(args, "--proxy", c.cfg.Proxy)
	}
	if c.cfg.CookiesFile != "" {
		if _, err := os.Stat(c.cfg.CookiesFile); err == nil {
			args = append(args, "--cookies", c.cfg.CookiesFile)
		} else {
			slog.Warn("[YTDLP] cookies file not readable, continuing without it",
				"path", c.cfg.CookiesFile,
				"error", err,
			)
		}
	}
	return append(args, url)
}

// Extract dumps metadata for url. A non-zero exit or unparsable output is a hard failure.
func (c *Client) Extract(ctx context.Context, url string) (*Info, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrEmptyURL
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	stdout, stderr, err := c.runner.Run(ctx, c.cfg.Binary, c.Args(url)...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			slog.Warn("[YTDLP] extraction timed out",
				"url", url,
				"timeout", c.cfg.Timeout,
			)
			return nil, fmt.Errorf("%w after %v", ErrTimeout, c.cfg.Timeout)
		}
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrBinaryNotFound, c.cfg.Binary)
		}

		detail := truncate(strings.TrimSpace(string(stderr)), maxStderrDetail)
		slog.Warn("[YTDLP] extraction failed",
			"url", url,
			"error", err,
			"stderr", detail,
		)
		if cause := mapStderr(detail); cause != nil {
			return nil, fmt.Errorf("%w: %w: %s", ErrExtractionFailed, cause, detail)
		}
		return nil, fmt.Errorf("%w: %v: %s", ErrExtractionFailed, err, detail)
	}

	info, err := parseInfo(stdout)
	if err != nil {
		return nil, err
	}

	slog.Debug("[YTDLP] extraction completed",
		"url", url,
		"formats", len(info.Formats),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return info, nil
}

func parseInfo(stdout []byte) (*Info, error) {
	trimmed := bytes.TrimSpace(stdout)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidOutput)
	}
	var info Info
	if err := json.Unmarshal(trimmed, &info); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	return &info, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
