/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic during a command into a report file and a
// non-zero exit.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	applog "storywiki/internal/log"
	"storywiki/internal/telemetry"
	"storywiki/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Job describes what was running when the panic happened.
type Job struct {
	Command string
	Inputs  []string
	// ReportDir defaults to SW_CRASH_DIR, then the system temp dir.
	ReportDir string
}

// Recover captures a panic, logs it with its stack, writes a report file and
// exits with code 2.
//
// Usage: defer crash.Recover(&crash.Job{Command: "convert", Inputs: files})
func Recover(job *Job) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		reportPath, err := writeReport(job, r, stack)
		if err != nil {
			l.Error("crash report not written", slog.Any("err", err), slog.String("path", reportPath))
		}
		if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
			l.Error("failed to write crash message to stderr", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
			l.Error("failed to write version info to stderr", slog.Any("err", err))
		}
		exitFn(2)
	}
}

func reportDir(job *Job) string {
	if job != nil && job.ReportDir != "" {
		return job.ReportDir
	}
	if d := strings.TrimSpace(os.Getenv("SW_CRASH_DIR")); d != "" {
		return d
	}
	return os.TempDir()
}

func writeReport(job *Job, panicVal any, stack []byte) (string, error) {
	dir := reportDir(job)
	_ = os.MkdirAll(dir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("storywiki-crash-%s.log", stamp))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "storywiki crash report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if job != nil {
		_, _ = fmt.Fprintf(&buf, "Command: %s\n", job.Command)
		for _, in := range job.Inputs {
			_, _ = fmt.Fprintf(&buf, "Input: %s\n", in)
		}
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}

	// Input paths stay local; the upload carries the panic and stack only.
	telemetry.Default().UploadCrash(anonymize(buf.Bytes()))
	return path, nil
}

func anonymize(report []byte) []byte {
	var out bytes.Buffer
	for _, line := range bytes.SplitAfter(report, []byte("\n")) {
		if bytes.HasPrefix(line, []byte("Input: ")) {
			continue
		}
		out.Write(line)
	}
	return out.Bytes()
}
