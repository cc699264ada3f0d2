// BookHub - Bookstore Storefront and Real-time Catalog Sync
// Copyright 2026 BookHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookhubhq/bookhub

package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSlogHandlerWritesThroughZerolog(t *testing.T) {
	var buf bytes.Buffer

	Init(Config{Level: "debug", Format: "json", Output: &buf})

	slogger := NewSlogLogger()
	slogger.Info("supervisor event", slog.String("service", "hub"))

	output := buf.String()
	if !strings.Contains(output, "supervisor event") {
		t.Errorf("expected message in output, got: %s", output)
	}
	if !strings.Contains(output, `"service":"hub"`) {
		t.Errorf("expected attribute in output, got: %s", output)
	}
}

func TestSlogHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer

	Init(Config{Level: "debug", Format: "json", Output: &buf})

	slogger := NewSlogLogger().With(slog.Int("attempt", 3))
	slogger.Warn("restarting")

	output := buf.String()
	if !strings.Contains(output, `"attempt":3`) {
		t.Errorf("expected pre-configured attribute, got: %s", output)
	}
	if !strings.Contains(output, `"level":"warn"`) {
		t.Errorf("expected warn level, got: %s", output)
	}
}

func TestSlogHandlerWithGroup(t *testing.T) {
	var buf bytes.Buffer

	Init(Config{Level: "debug", Format: "json", Output: &buf})

	slogger := NewSlogLogger().WithGroup("suture")
	slogger.Error("service failed", slog.String("name", "http"))

	output := buf.String()
	if !strings.Contains(output, `"suture.name":"http"`) {
		t.Errorf("expected grouped attribute key, got: %s", output)
	}
}
