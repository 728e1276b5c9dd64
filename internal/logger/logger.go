// Package logger appends validation verdicts to a JSONL audit log. Every
// line is one event; command text is redacted before it touches disk.
package logger

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/cmdguard/cmdguard/internal/redact"
)

// defaultMaxLogBytes is the rotation threshold. One .1 backup is kept.
const defaultMaxLogBytes = 10 << 20

// AuditEvent is one validation verdict as persisted to the audit log.
type AuditEvent struct {
	Timestamp   string   `json:"timestamp"`
	Command     string   `json:"command"`
	SafetyLevel string   `json:"safety_level"`
	Decision    string   `json:"decision"`
	Risk        string   `json:"risk"`
	RuleIDs     []string `json:"rule_ids,omitempty"`
	Degraded    bool     `json:"degraded,omitempty"`
	UserAction  string   `json:"user_action,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// AuditLogger writes events to an append-only file. Safe for concurrent use.
type AuditLogger struct {
	path string
	file *os.File
	mu   sync.Mutex
}

func New(path string) (*AuditLogger, error) {
	file, err := openAppend(path)
	if err != nil {
		return nil, err
	}
	return &AuditLogger{path: path, file: file}, nil
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

// Log appends one event. The timestamp is filled in when absent, and the
// command and error text pass through redaction first.
func (l *AuditLogger) Log(event AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	event.Command = redact.Redact(event.Command)
	if event.Error != "" {
		event.Error = redact.Redact(event.Error)
	}

	if err := l.rotateIfNeeded(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = l.file.Write(data)
	return err
}

// rotateIfNeeded moves the log aside once it reaches the size limit,
// keeping a single .1 backup. Called with the mutex held.
func (l *AuditLogger) rotateIfNeeded() error {
	info, err := l.file.Stat()
	if err != nil || info.Size() < defaultMaxLogBytes {
		return err
	}
	if err := l.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(l.path, l.path+".1"); err != nil {
		return err
	}
	file, err := openAppend(l.path)
	if err != nil {
		return err
	}
	l.file = file
	return nil
}

func (l *AuditLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
