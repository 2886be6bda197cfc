package bridge

import "bridge/inspector"

// publishRaw signs and sends one IOPub message under iopubMu, so it is
// serialized against every other IOPub writer (the host goroutine and
// the Shell responder's kernel-info-handshake status message) per
// spec.md's concurrency model.
func (b *Bridge) publishRaw(msgType string, parent *Header, content map[string]any) error {
	header, err := b.newHeader(msgType)
	if err != nil {
		return err
	}

	b.iopubMu.Lock()
	err = send(b.ep.iopub, b.signer, header, parent, nil, content)
	b.iopubMu.Unlock()

	if err != nil {
		return err
	}

	if b.onPublish != nil {
		b.onPublish(msgType, parent, content)
	}
	if b.inspector != nil {
		var parentID string
		if parent != nil {
			parentID = parent.MsgID
		}
		b.inspector.Feed(inspector.Message{MsgType: msgType, Parent: parentID, Content: content})
	}
	return nil
}

// PublishStream emits a stream message. name must be "stdout" or
// "stderr".
func (b *Bridge) PublishStream(name, text string) error {
	return b.publishRaw("stream", nil, map[string]any{
		"name": name,
		"text": text,
	})
}

// PublishExecuteResult emits an execute_result message. data is
// rewritten to strip any widget-view MIME entry before publishing.
func (b *Bridge) PublishExecuteResult(data, metadata map[string]any, count int) error {
	return b.publishRaw("execute_result", nil, map[string]any{
		"execution_count": count,
		"data":            rewriteWidgetData(data),
		"metadata":        metadata,
	})
}

// PublishDisplayData emits a display_data message.
func (b *Bridge) PublishDisplayData(data, metadata, transient map[string]any) error {
	return b.publishRaw("display_data", nil, map[string]any{
		"data":      rewriteWidgetData(data),
		"metadata":  metadata,
		"transient": transient,
	})
}

// PublishUpdateDisplayData emits an update_display_data message.
func (b *Bridge) PublishUpdateDisplayData(data, metadata, transient map[string]any) error {
	return b.publishRaw("update_display_data", nil, map[string]any{
		"data":      rewriteWidgetData(data),
		"metadata":  metadata,
		"transient": transient,
	})
}

// PublishError emits an error message.
func (b *Bridge) PublishError(ename, evalue string, traceback []string) error {
	return b.publishRaw("error", nil, map[string]any{
		"ename":     ename,
		"evalue":    evalue,
		"traceback": traceback,
	})
}

// executionState enumerates the three values status.execution_state may
// carry.
type executionState string

const (
	StateStarting executionState = "starting"
	StateBusy     executionState = "busy"
	StateIdle     executionState = "idle"
)

// PublishStatus emits a status message. parent is nil when there is no
// request this status is reacting to (e.g. the one-time "idle" emitted
// right after Install completes).
func (b *Bridge) PublishStatus(state executionState, parent *Header) error {
	return b.publishRaw("status", parent, map[string]any{
		"execution_state": string(state),
	})
}
