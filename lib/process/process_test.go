// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestReportExitCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"plain", errors.New("boom"), 1},
		{"usage", Usage("unexpected argument %q", "x"), 2},
		{"wrapped usage", fmt.Errorf("parsing flags: %w", Usage("bad")), 2},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var output bytes.Buffer
			if code := report(&output, test.err); code != test.code {
				t.Errorf("code = %d, want %d", code, test.code)
			}
			if !strings.HasPrefix(output.String(), "error: ") {
				t.Errorf("output = %q", output.String())
			}
		})
	}
}

func TestLoggerFormatAndLevel(t *testing.T) {
	var output bytes.Buffer
	logger := newLogger(&output, false, false)
	logger.Debug("hidden")
	logger.Info("shown", "kind", "NEW_TASK")

	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %q", lines)
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if record["msg"] != "shown" || record["kind"] != "NEW_TASK" {
		t.Errorf("record = %v", record)
	}

	output.Reset()
	newLogger(&output, true, true).Debug("visible", "from", "hub")
	if text := output.String(); !strings.Contains(text, "level=DEBUG") || !strings.Contains(text, "from=hub") {
		t.Errorf("text output = %q", text)
	}
}
