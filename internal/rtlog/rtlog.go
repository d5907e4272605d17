// Package rtlog is the component-tagged debug logging sink shared by every
// pass and the scheduler. It never panics and never writes unless a sink has
// been configured, so it is safe to call from hot inference loops.
package rtlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EnableDebug can be overridden at build time:
// go build -ldflags "-X github.com/standardbeagle/rbtc/internal/rtlog.EnableDebug=true"
var EnableDebug = "false"

var (
	mu     sync.Mutex
	output io.Writer
	file   *os.File
)

// SetOutput sets the writer debug output is sent to. Pass nil to disable.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// InitLogFile creates a timestamped log file under os.TempDir()/rbtc-debug-logs
// and routes all debug output to it. Returns the path.
func InitLogFile() (string, error) {
	mu.Lock()
	defer mu.Unlock()

	dir := filepath.Join(os.TempDir(), "rbtc-debug-logs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create debug log dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("debug-%s.log", time.Now().Format("2006-01-02T150405")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("create debug log file: %w", err)
	}
	file = f
	output = f
	return path, nil
}

// Close closes the log file opened by InitLogFile, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	output = nil
	return err
}

// Enabled reports whether debug logging is currently active.
func Enabled() bool {
	if EnableDebug == "true" {
		return true
	}
	v := os.Getenv("RBTC_DEBUG")
	return v == "1" || v == "true"
}

func writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return output
}

// Log writes a component-tagged line, e.g. Log("namer", "registered %s", name).
func Log(component, format string, args ...interface{}) {
	if !Enabled() {
		return
	}
	w := writer()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[DEBUG:%s] "+format+"\n", append([]interface{}{component}, args...)...)
}

func LogNamer(format string, args ...interface{})     { Log("namer", format, args...) }
func LogResolver(format string, args ...interface{})  { Log("resolver", format, args...) }
func LogInfer(format string, args ...interface{})     { Log("infer", format, args...) }
func LogScheduler(format string, args ...interface{}) { Log("scheduler", format, args...) }
func LogCFG(format string, args ...interface{})       { Log("cfg", format, args...) }

// Fatal formats a catastrophic-internal-error message and returns it as an
// error; it never exits the process. Callers at ENFORCE checkpoints decide
// whether to abort.
func Fatal(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if w := writer(); w != nil {
		fmt.Fprintf(w, "[FATAL] %s\n", msg)
	}
	return fmt.Errorf("internal invariant violated: %s", msg)
}
