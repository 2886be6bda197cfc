package bridge

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"bridge/history"
	"bridge/inspector"
)

// Options configures a new Bridge. The zero value is valid: it binds
// on loopback and logs to log.Default().
type Options struct {
	// IP is the address every socket binds to. Defaults to 127.0.0.1.
	IP string

	// Logger receives diagnostic messages from the responder loops.
	// Defaults to log.Default(), mirroring kernel/kernel.go's package-
	// global logger but injectable since Bridge is a library, not a
	// standalone binary (see SPEC_FULL.md's Ambient Stack / Logging).
	Logger *log.Logger

	// OnPublish, if set, is called with every IOPub message after it is
	// sent on the wire, in addition to (not instead of) InspectorAddr's
	// own mirroring.
	OnPublish func(msgType string, parent *Header, content map[string]any)

	// InspectorAddr, if non-empty, starts an inspector.Server listening
	// at this address (e.g. ":8090") mirroring every IOPub message to
	// connected websocket clients. Left empty, no inspector runs.
	InspectorAddr string

	// HistoryDSN, if non-empty, opens a history.Store against this
	// Postgres DSN and records one row per cell-finished event. A
	// failure to open is logged and otherwise ignored: the audit log
	// is optional and must never prevent a bridge from starting.
	HistoryDSN string
}

// Bridge is the long-lived object owned by the host process. New brings
// up the wire endpoint and writes the connection file; Install wires
// observation hooks into a Host; Close tears everything down.
type Bridge struct {
	logger *log.Logger

	ep       *endpoint
	signer   *signer
	connFile *connectionFile
	sessionID string

	running atomic.Bool

	iopubMu        sync.Mutex
	executionCount int

	shellDone chan struct{}
	hbDone    chan struct{}

	hostMu sync.RWMutex
	host   Host

	onPublish func(msgType string, parent *Header, content map[string]any)

	inspector *inspector.Server
	history   *history.Store
}

// setHost records the currently-installed Host, if any, so the Shell
// responder can route user_expressions evaluation and kernel_info_reply
// language_info through it. Install calls this; Installation.Close
// clears it again.
func (b *Bridge) setHost(h Host) {
	b.hostMu.Lock()
	b.host = h
	b.hostMu.Unlock()
}

func (b *Bridge) getHost() Host {
	b.hostMu.RLock()
	defer b.hostMu.RUnlock()
	return b.host
}

// New constructs a Bridge: it creates the ZeroMQ context, binds all
// five sockets to random ports, writes the connection file, and starts
// the Shell and Heartbeat responder goroutines. Control and Stdin
// remain bound but idle, per spec.md's explicit instruction not to
// guess at servicing them.
func New(opts Options) (*Bridge, error) {
	ip := opts.IP
	if ip == "" {
		ip = "127.0.0.1"
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	key, err := newHexSecret()
	if err != nil {
		return nil, err
	}
	sessionID, err := newHexSecret()
	if err != nil {
		return nil, err
	}

	ep, err := newEndpoint(context.Background(), ip)
	if err != nil {
		return nil, err
	}
	ep.info.Key = key
	ep.info.SignatureScheme = "hmac-sha256"
	ep.info.KernelName = "python3"

	connFile, err := writeConnectionFile(ep.info)
	if err != nil {
		ep.closeAll()
		return nil, err
	}

	b := &Bridge{
		logger:    logger,
		ep:        ep,
		signer:    newSigner(key),
		connFile:  connFile,
		sessionID: sessionID,
		shellDone: make(chan struct{}),
		hbDone:    make(chan struct{}),
		onPublish: opts.OnPublish,
	}
	b.running.Store(true)

	if opts.InspectorAddr != "" {
		b.inspector = inspector.NewServer(logger)
		b.inspector.ListenInBackground(opts.InspectorAddr)
	}

	if opts.HistoryDSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		store, err := history.Open(ctx, opts.HistoryDSN)
		cancel()
		if err != nil {
			logger.Printf("bridge: history store disabled, failed to open: %v", err)
		} else {
			b.history = store
		}
	}

	go b.runShellResponder()
	go b.runHeartbeatResponder()

	return b, nil
}

// ConnectionFilePath returns the absolute path of the JSON connection
// file written at construction. It exists for the entire interval
// between New and the start of Close.
func (b *Bridge) ConnectionFilePath() string {
	return b.connFile.Path()
}

// SessionID returns the session identifier placed in every outgoing
// header for the life of this Bridge.
func (b *Bridge) SessionID() string {
	return b.sessionID
}

// nextExecutionCount increments and returns the execution counter. It
// must be called under iopubMu so it is serialized with IOPub writes,
// per spec.md's concurrency model.
func (b *Bridge) nextExecutionCount() int {
	b.executionCount++
	return b.executionCount
}

func (b *Bridge) currentExecutionCount() int {
	return b.executionCount
}

func (b *Bridge) newHeader(msgType string) (Header, error) {
	id, err := newMsgID()
	if err != nil {
		return Header{}, err
	}
	return Header{
		MsgID:    id,
		MsgType:  msgType,
		Username: "kernel",
		Session:  b.sessionID,
		Date:     time.Now().UTC().Format(time.RFC3339Nano),
		Version:  protocolVersion,
	}, nil
}

// Close stops the responder goroutines, tears down the ZeroMQ context,
// and removes the connection file. It is safe to call once; shutdown
// order follows spec.md §4.3/§5: responders are given up to 2s each to
// notice the running flag (accelerated here by closing their sockets,
// which unblocks a pending Recv immediately), then every socket is
// closed, then the connection file and its directory are removed,
// ignoring filesystem errors.
func (b *Bridge) Close() {
	if !b.running.CompareAndSwap(true, false) {
		return
	}

	_ = b.ep.shell.Close()
	_ = b.ep.hb.Close()

	waitWithTimeout(b.shellDone, 2*time.Second)
	waitWithTimeout(b.hbDone, 2*time.Second)

	b.ep.closeAll()
	b.connFile.remove()

	if b.inspector != nil {
		b.inspector.Close()
	}
	if b.history != nil {
		if err := b.history.Close(); err != nil {
			b.logger.Printf("bridge: failed to close history store: %v", err)
		}
	}
}

// recordHistory stores one execution's audit row if a history.Store was
// configured; otherwise it is a no-op. Failures are logged, never
// propagated - the audit log must never affect cell execution.
func (b *Bridge) recordHistory(entry history.Entry) {
	if b.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.history.Record(ctx, entry); err != nil {
		b.logger.Printf("bridge: failed to record history entry: %v", err)
	}
}

func waitWithTimeout(done chan struct{}, timeout time.Duration) {
	select {
	case <-done:
	case <-time.After(timeout):
	}
}
