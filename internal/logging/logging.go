// Package logging configures the process-wide logger and formats the
// request and event lines emitted by the service.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var (
	mu      sync.Mutex
	logFile *os.File
)

// Init sends log output to stdout and, when logPath is set, appends it to that file too.
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	writers := []io.Writer{os.Stdout}

	if logPath != "" {
		if dir := filepath.Dir(logPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create log directory: %w", err)
			}
		}
		file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logFile = file
		writers = append(writers, logFile)
	}

	log.SetOutput(io.MultiWriter(writers...))
	return nil
}

// Close detaches and closes the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	log.SetOutput(os.Stderr)
	err := logFile.Close()
	logFile = nil
	return err
}

// LogEvent logs a formatted application event.
func LogEvent(format string, args ...any) {
	log.Println(fmt.Sprintf(format, args...))
}

// LogRequest records a call to a model provider. direction is "out" for
// requests and "in" for responses.
func LogRequest(direction, host, model, op string, payload any) {
	log.Println(buildRequestMessage(direction, host, model, op, payload))
}

// LogHTTP records one served HTTP request.
func LogHTTP(method, path string, status int, elapsed time.Duration) {
	log.Printf("[HTTP] %s %s status=%d elapsed=%s", method, path, status, elapsed.Round(time.Millisecond))
}

func buildRequestMessage(direction, host, model, op string, payload any) string {
	dir := strings.ToUpper(strings.TrimSpace(direction))
	hostValue := strings.TrimSpace(host)
	if hostValue == "" {
		hostValue = "default"
	}
	modelValue := strings.TrimSpace(model)
	if modelValue == "" {
		modelValue = "unknown"
	}
	parts := []string{
		fmt.Sprintf("[%s]", dir),
		fmt.Sprintf("host=%s", hostValue),
		fmt.Sprintf("model=%s", modelValue),
	}
	if op = strings.TrimSpace(op); op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", op))
	}
	parts = append(parts, fmt.Sprintf("payload=%s", formatPayload(payload)))
	return strings.Join(parts, " ")
}

func formatPayload(payload any) string {
	switch v := payload.(type) {
	case nil:
		return "null"
	case string:
		if strings.TrimSpace(v) == "" {
			return `""`
		}
		return v
	case []byte:
		if len(v) == 0 {
			return "[]"
		}
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
