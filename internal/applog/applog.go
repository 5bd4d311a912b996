// Package applog writes structured event lines to the autogroup log file:
//
//	2026-10-16T09:12:01.204Z INFO router.updated tab=7 url=https://a.com
package applog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	fileName    = "autogroup.log"
	maxFileSize = 5 << 20 // 5 MB
	maxValueLen = 200
	truncSuffix = "…"
)

var (
	mu     sync.Mutex
	file   *os.File
	mirror io.Writer
)

// Init opens the log file for appending. Call once at startup.
// If the file exceeds 5 MB, it is rotated (renamed to .log.1) before opening.
// Safe to skip; all log calls become no-ops if not initialized.
func Init(dir string) error {
	path := filepath.Join(dir, fileName)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	if info, err := os.Stat(path); err == nil && info.Size() > maxFileSize {
		os.Rename(path, path+".1")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	mu.Lock()
	if file != nil {
		file.Close()
	}
	file = f
	mu.Unlock()
	return nil
}

// Mirror copies every line to w as well, e.g. os.Stderr when the daemon
// runs in the foreground with --verbose. Pass nil to stop mirroring.
func Mirror(w io.Writer) {
	mu.Lock()
	mirror = w
	mu.Unlock()
}

// Close closes the log file and stops mirroring.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		file.Close()
		file = nil
	}
	mirror = nil
}

// Info logs a structured event line.
//
//	applog.Info("ws.connected", "remote", addr)
//	applog.Info("grouper.create", "group", 12, "title", "Mail")
func Info(event string, kv ...any) {
	write("INFO", event, nil, kv)
}

// Error logs an event with an error.
//
//	applog.Error("router.fetch", err, "tab", 7)
func Error(event string, err error, kv ...any) {
	write("ERROR", event, err, kv)
}

func write(level, event string, err error, kv []any) {
	mu.Lock()
	active := file != nil || mirror != nil
	mu.Unlock()
	if !active {
		return
	}

	line := format(time.Now(), level, event, err, kv)

	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		file.WriteString(line)
	}
	if mirror != nil {
		io.WriteString(mirror, line)
	}
}

func format(ts time.Time, level, event string, err error, kv []any) string {
	var b strings.Builder
	b.WriteString(ts.UTC().Format("2006-01-02T15:04:05.000Z"))
	b.WriteByte(' ')
	b.WriteString(level)
	b.WriteByte(' ')
	b.WriteString(event)

	if err != nil {
		b.WriteString(" err=")
		b.WriteString(quote(err.Error()))
	}

	for i := 0; i+1 < len(kv); i += 2 {
		b.WriteByte(' ')
		b.WriteString(fmt.Sprint(kv[i]))
		b.WriteByte('=')
		b.WriteString(quote(fmt.Sprint(kv[i+1])))
	}
	b.WriteByte('\n')
	return b.String()
}

func quote(s string) string {
	if len(s) > maxValueLen {
		s = s[:maxValueLen] + truncSuffix
	}
	if strings.ContainsAny(s, " \t\n\"") {
		return "\"" + strings.ReplaceAll(s, "\"", "\\\"") + "\""
	}
	return s
}
