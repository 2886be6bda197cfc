package bridge

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"bridge/history"
)

// Installation is the handle returned by Install. Close reverses every
// hook it registered, restoring the host to its pre-install state.
type Installation struct {
	b    *Bridge
	host Host

	guard atomic.Bool

	revertDisplayhook func()
	revertPublisher   func()
	revertCellHook    func()

	prevStdout io.Writer
	prevStderr io.Writer
}

// Install attaches b to h, performing the five steps of host
// integration: enabling rich formatters, wrapping the displayhook,
// registering the cell-finished observer, teeing stdout/stderr, and
// wrapping the display publisher. It is not idempotent: calling it
// twice on the same Host registers two independent sets of hooks, and
// nothing detects or merges a repeated call.
func Install(b *Bridge, h Host) (*Installation, error) {
	if h == nil {
		return nil, fmt.Errorf("bridge: Install requires a non-nil Host")
	}

	inst := &Installation{b: b, host: h}

	h.EnableFormatters(richMIMETypes)

	inst.revertDisplayhook = h.WrapDisplayhook(func(next DisplayhookFunc) DisplayhookFunc {
		return func(result any) {
			inst.guard.Store(true)
			defer inst.guard.Store(false)
			next(result)
		}
	})

	inst.revertCellHook = h.OnCellFinished(func(cr CellResult) {
		inst.onCellFinished(cr)
	})

	inst.prevStdout = h.SetStdout(newTeeWriter(h.Stdout(), "stdout", b, inst))
	inst.prevStderr = h.SetStderr(newTeeWriter(h.Stderr(), "stderr", b, inst))

	inst.revertPublisher = h.WrapDisplayPublisher(func(next DisplayPublishFunc) DisplayPublishFunc {
		return func(d DisplayData) {
			next(d)
			inst.publishDisplay(d)
		}
	})

	b.setHost(h)

	if err := b.PublishStatus(StateIdle, nil); err != nil {
		return inst, err
	}
	return inst, nil
}

// onCellFinished implements spec.md §4.9's state machine: busy, then
// either an error or an execute_result (or nothing), then idle. idle is
// always emitted, even if the intermediate publish failed.
func (inst *Installation) onCellFinished(cr CellResult) {
	b := inst.b
	startedAt := time.Now().UTC()

	b.iopubMu.Lock()
	count := b.nextExecutionCount()
	b.iopubMu.Unlock()

	if err := b.PublishStatus(StateBusy, nil); err != nil {
		b.logger.Printf("install: failed to publish busy status: %v", err)
	}

	status, errName := "ok", ""
	switch {
	case cr.ErrorInExec != nil:
		status = "error"
		errName = errorTypeName(cr.ErrorInExec)
		if err := b.PublishError(errName, cr.ErrorInExec.Error(), nil); err != nil {
			b.logger.Printf("install: failed to publish error: %v", err)
		}
	case cr.Result != nil:
		data, metadata, err := inst.host.Format(cr.Result)
		if err != nil {
			data = map[string]any{"text/plain": fmt.Sprintf("%v", cr.Result)}
			metadata = map[string]any{}
		}
		if err := b.PublishExecuteResult(data, metadata, count); err != nil {
			b.logger.Printf("install: failed to publish execute_result: %v", err)
		}
	}

	if err := b.PublishStatus(StateIdle, nil); err != nil {
		b.logger.Printf("install: failed to publish idle status: %v", err)
	}

	b.recordHistory(history.Entry{
		MsgID:          fmt.Sprintf("cell-%d", count),
		Session:        b.SessionID(),
		ExecutionCount: count,
		Status:         status,
		Error:          errName,
		StartedAt:      startedAt,
		FinishedAt:     time.Now().UTC(),
	})
}

// publishDisplay is the display-publisher wrapper's after-call action.
func (inst *Installation) publishDisplay(d DisplayData) {
	var err error
	if d.Update {
		err = inst.b.PublishUpdateDisplayData(d.Data, d.Metadata, d.Transient)
	} else {
		err = inst.b.PublishDisplayData(d.Data, d.Metadata, d.Transient)
	}
	if err != nil {
		inst.b.logger.Printf("install: failed to publish display data: %v", err)
	}
}

// Close reverses every hook Install registered, in roughly reverse
// order, and clears the Bridge's installed Host.
func (inst *Installation) Close() {
	if inst.revertPublisher != nil {
		inst.revertPublisher()
	}
	inst.host.SetStdout(inst.prevStdout)
	inst.host.SetStderr(inst.prevStderr)
	if inst.revertCellHook != nil {
		inst.revertCellHook()
	}
	if inst.revertDisplayhook != nil {
		inst.revertDisplayhook()
	}
	inst.b.setHost(nil)
}
