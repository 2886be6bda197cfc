package bridge

import "io"

// teeWriter wraps a host's original stdout/stderr stream. Every write
// is forwarded to the original stream first (so the text still reaches
// wherever it used to go); if the write produced non-empty text and the
// displayhook is not currently active, the same text is also published
// on IOPub as a stream message. Installation.Close restores the
// original writer directly, so this type never needs an explicit
// teardown of its own.
type teeWriter struct {
	orig  io.Writer
	name  string
	b     *Bridge
	guard *Installation
}

func newTeeWriter(orig io.Writer, name string, b *Bridge, inst *Installation) io.Writer {
	return &teeWriter{orig: orig, name: name, b: b, guard: inst}
}

func (t *teeWriter) Write(p []byte) (int, error) {
	n, err := t.orig.Write(p)
	if len(p) > 0 && !t.guard.guard.Load() {
		if pubErr := t.b.PublishStream(t.name, string(p)); pubErr != nil {
			t.b.logger.Printf("tee: failed to publish stream %q: %v", t.name, pubErr)
		}
	}
	return n, err
}
