// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"go.astrophena.name/addheader/testutil"
)

func TestAttachAndLevel(t *testing.T) {
	l := New(nil)
	ctx := Put(context.Background(), l)

	var first, second bytes.Buffer
	l.Attach(slog.NewTextHandler(&first, &slog.HandlerOptions{Level: l.Level}))
	l.Attach(slog.NewTextHandler(&second, &slog.HandlerOptions{Level: l.Level}))

	Info(ctx, "visible", slog.String("path", "a.js"))
	Debug(ctx, "hidden")
	for _, buf := range []*bytes.Buffer{&first, &second} {
		if got := buf.String(); !strings.Contains(got, "msg=visible path=a.js") || strings.Contains(got, "hidden") {
			t.Fatalf("unexpected log output: %q", got)
		}
	}

	LevelVar(ctx).Set(slog.LevelDebug)
	Debug(ctx, "now visible")
	if !strings.Contains(second.String(), "now visible") {
		t.Fatalf("debug message not logged after level change: %q", second.String())
	}
}

func TestNewConsole(t *testing.T) {
	cases := map[string]struct {
		color     bool
		wantColor bool
	}{
		"plain":   {color: false, wantColor: false},
		"colored": {color: true, wantColor: true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			ctx := Put(context.Background(), NewConsole(&buf, tc.color))

			Error(ctx, "cannot process file", slog.String("path", "a.js"), Err(errors.New("permission denied")))
			Debug(ctx, "skipped file")

			got := buf.String()
			for _, want := range []string{"cannot process file", "a.js", "permission denied"} {
				if !strings.Contains(got, want) {
					t.Errorf("output must contain %q, got: %q", want, got)
				}
			}
			if strings.Contains(got, "skipped file") {
				t.Errorf("debug records must be filtered at the default level, got: %q", got)
			}
			testutil.AssertEqual(t, strings.Contains(got, "\x1b["), tc.wantColor)
		})
	}
}

func TestGetDefault(t *testing.T) {
	l := Get(context.Background())
	testutil.AssertEqual(t, IsDefault(l), true)
	testutil.AssertEqual(t, IsDefault(New(nil)), false)
	// Must not panic.
	Warn(context.Background(), "discarded")
}
