package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"bridge/bridge"
)

// fakeHost is a minimal stand-in for an embedding Python interpreter,
// just enough surface to exercise every Install hook manually.
type fakeHost struct {
	mu sync.Mutex

	stdout io.Writer
	stderr io.Writer

	displayhook    bridge.DisplayhookFunc
	displayPublish bridge.DisplayPublishFunc
	cellFinished   func(bridge.CellResult)
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		stdout:         os.Stdout,
		stderr:         os.Stderr,
		displayhook:    func(result any) { fmt.Printf("Out: %v\n", result) },
		displayPublish: func(bridge.DisplayData) {},
	}
}

func (h *fakeHost) PythonVersion() string { return "3.11.0 (bridgedemo)" }

func (h *fakeHost) EnableFormatters(mimeTypes []string) {
	// fakeHost has no real formatter registry to toggle.
}

func (h *fakeHost) Format(value any) (map[string]any, map[string]any, error) {
	return map[string]any{"text/plain": fmt.Sprintf("%v", value)}, map[string]any{}, nil
}

func (h *fakeHost) EvalExpression(name, expr string) (string, error) {
	return fmt.Sprintf("<fake eval of %q>", expr), nil
}

func (h *fakeHost) Stdout() io.Writer {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stdout
}

func (h *fakeHost) SetStdout(w io.Writer) io.Writer {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.stdout
	h.stdout = w
	return prev
}

func (h *fakeHost) Stderr() io.Writer {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stderr
}

func (h *fakeHost) SetStderr(w io.Writer) io.Writer {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.stderr
	h.stderr = w
	return prev
}

func (h *fakeHost) WrapDisplayhook(wrap func(next bridge.DisplayhookFunc) bridge.DisplayhookFunc) func() {
	h.mu.Lock()
	prev := h.displayhook
	h.displayhook = wrap(prev)
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		h.displayhook = prev
		h.mu.Unlock()
	}
}

func (h *fakeHost) WrapDisplayPublisher(wrap func(next bridge.DisplayPublishFunc) bridge.DisplayPublishFunc) func() {
	h.mu.Lock()
	prev := h.displayPublish
	h.displayPublish = wrap(prev)
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		h.displayPublish = prev
		h.mu.Unlock()
	}
}

func (h *fakeHost) OnCellFinished(fn func(bridge.CellResult)) func() {
	h.mu.Lock()
	h.cellFinished = fn
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		h.cellFinished = nil
		h.mu.Unlock()
	}
}

// finishCell simulates a completed cell, driving whatever observer
// Install registered via OnCellFinished.
func (h *fakeHost) finishCell(result any, errInExec error) {
	h.mu.Lock()
	fn := h.cellFinished
	h.mu.Unlock()
	if fn != nil {
		fn(bridge.CellResult{Result: result, ErrorInExec: errInExec})
	}
}
