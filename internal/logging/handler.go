package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
)

const (
	// MaxLineLength is the maximum length of a single output line before truncation.
	MaxLineLength = 4096

	// MaxBufferedLines is the maximum number of child output lines to retain.
	MaxBufferedLines = 200
)

// OutputHandler captures the supervised child's stdout/stderr when the
// dashboard owns the terminal. It buffers recent lines for display and
// logs them at a level inferred from content.
//
// It implements io.Writer so it can be assigned directly to exec.Cmd
// Stdout/Stderr. Writes are line-buffered; a partial line is held until
// its newline arrives.
type OutputHandler struct {
	logger  *slog.Logger
	stream  string // "stdout" or "stderr"
	verbose bool

	mu      sync.Mutex
	partial bytes.Buffer
	buffer  []string
	bufIdx  int
}

// NewOutputHandler creates a handler for one child output stream.
func NewOutputHandler(stream string, logger *slog.Logger, verbose bool) *OutputHandler {
	return &OutputHandler{
		logger:  logger,
		stream:  stream,
		verbose: verbose,
		buffer:  make([]string, MaxBufferedLines),
	}
}

// Write implements io.Writer. Safe for use as exec.Cmd output.
func (h *OutputHandler) Write(p []byte) (int, error) {
	h.mu.Lock()
	h.partial.Write(p)

	var lines []string
	for {
		data := h.partial.Bytes()
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimRight(string(data[:idx]), "\r")
		h.partial.Next(idx + 1)
		lines = append(lines, line)
	}

	for _, line := range lines {
		h.storeLocked(line)
	}
	h.mu.Unlock()

	// Log outside the lock
	for _, line := range lines {
		h.logLine(line)
	}

	return len(p), nil
}

// HandleLine processes a single complete line of child output.
func (h *OutputHandler) HandleLine(line string) {
	h.mu.Lock()
	h.storeLocked(line)
	h.mu.Unlock()

	h.logLine(line)
}

// storeLocked appends a line to the circular buffer. Caller holds mu.
func (h *OutputHandler) storeLocked(line string) {
	if len(line) > MaxLineLength {
		line = line[:MaxLineLength] + "...(truncated)"
	}
	h.buffer[h.bufIdx] = line
	h.bufIdx = (h.bufIdx + 1) % MaxBufferedLines
}

// logLine logs the line at a level inferred from content.
func (h *OutputHandler) logLine(line string) {
	level := classifyLine(line)

	// In non-verbose mode, only surface warnings and errors
	if !h.verbose && level == slog.LevelDebug {
		return
	}

	h.logger.Log(nil, level, "child_output",
		"stream", h.stream,
		"line", line,
	)
}

// classifyLine determines the log level for a line based on content.
// Patterns cover Python logging output and tracebacks, since the usual
// supervised process is a Python bot.
func classifyLine(line string) slog.Level {
	lower := strings.ToLower(line)

	if strings.Contains(lower, "traceback (most recent call last)") ||
		strings.Contains(lower, "error") ||
		strings.Contains(lower, "critical") ||
		strings.Contains(lower, "exception") {
		return slog.LevelWarn
	}

	if strings.Contains(lower, "warning") ||
		strings.Contains(lower, "deprecat") {
		return slog.LevelWarn
	}

	return slog.LevelDebug
}

// RecentLines returns up to n most recent lines, oldest first.
func (h *OutputHandler) RecentLines(n int) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n > MaxBufferedLines {
		n = MaxBufferedLines
	}

	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		idx := (h.bufIdx - n + i + MaxBufferedLines) % MaxBufferedLines
		if h.buffer[idx] != "" {
			lines = append(lines, h.buffer[idx])
		}
	}

	return lines
}
