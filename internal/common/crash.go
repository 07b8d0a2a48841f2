package common

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// crashLogDir is where crash reports land. Set once at startup.
var crashLogDir = "./logs"

// InstallCrashHandler sets the crash report directory and makes sure it
// exists. Call at the top of main before anything can panic.
func InstallCrashHandler(logDir string) {
	if logDir != "" {
		crashLogDir = logDir
	}
	if err := os.MkdirAll(crashLogDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: failed to create log directory: %v\n", err)
	}
}

// RecoverWithCrashFile is a deferred recovery for main. A panic that reaches
// it is fatal: the report is written and the process exits nonzero.
func RecoverWithCrashFile() {
	if r := recover(); r != nil {
		WriteCrashFile(r, GetStackTrace())
		os.Exit(1)
	}
}

// WriteCrashFile writes a crash report and returns its path. Falls back to
// stderr when the file cannot be created, so the report is never lost.
func WriteCrashFile(panicVal interface{}, stackTrace string) string {
	path := filepath.Join(crashLogDir, fmt.Sprintf("crash-%s.log", time.Now().Format("2006-01-02T15-04-05")))

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	var b strings.Builder
	fmt.Fprintf(&b, "=== SOLDER CRASH REPORT ===\n")
	fmt.Fprintf(&b, "Time: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "Version: %s\n\n", GetFullVersion())
	fmt.Fprintf(&b, "Panic: %v\n\n", panicVal)
	fmt.Fprintf(&b, "=== STACK ===\n%s\n", stackTrace)
	fmt.Fprintf(&b, "=== RUNTIME ===\n")
	fmt.Fprintf(&b, "Goroutines: %d  CPUs: %d  %s/%s\n", runtime.NumGoroutine(), runtime.NumCPU(), runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&b, "Alloc: %d MB  Sys: %d MB  NumGC: %d\n", memStats.Alloc/1024/1024, memStats.Sys/1024/1024, memStats.NumGC)

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "CRASH: failed to write crash file: %v\n%s", err, b.String())
		return ""
	}

	fmt.Fprintf(os.Stderr, "\nFATAL CRASH - report saved to %s\nPanic: %v\n", path, panicVal)
	return path
}

// GetStackTrace returns the current goroutine's stack trace
func GetStackTrace() string {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
