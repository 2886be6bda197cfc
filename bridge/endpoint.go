package bridge

import (
	"context"
	"fmt"
	"net"

	"github.com/go-zeromq/zmq4"
)

// pollTimeout records the 1 s polling granularity; no code in this
// package reads it, and the responder loops do not poll. The sockets in this
// package are plain go-zeromq sockets with no built-in poll-with-
// timeout primitive (neither the teacher's kernel/kernel.go nor
// janpfeifer-gonb's internal/kernel/kernel.go uses one; both simply
// block on Recv inside a goroutine and rely on closing the socket to
// unblock it), so shutdown here closes each socket to interrupt Recv
// immediately rather than waiting out a timer - strictly tighter than
// the 1s/2s bounds spec.md allows, never looser.
const pollTimeout = 1000 // milliseconds, documented for parity with spec.md's stated polling granularity

// transport is the wire transport every bound socket uses.
const transport = "tcp"

// endpoint owns the ZeroMQ context and the five bound sockets a Jupyter
// kernel exposes: IOPub (PUB), Shell (ROUTER), Control (ROUTER), Stdin
// (ROUTER), and Heartbeat (REP).
type endpoint struct {
	ctx context.Context

	iopub   zmq4.Socket
	shell   zmq4.Socket
	control zmq4.Socket
	stdin   zmq4.Socket
	hb      zmq4.Socket

	info ConnectionInfo
}

// reservePort asks the OS for a free TCP port on ip and immediately
// releases it, so a ZeroMQ socket can be bound to the same port right
// after. This is the "kernel library's random-port-binding primitive"
// spec.md's Endpoint construction refers to; the pattern is grounded on
// janpfeifer-gonb's cmd/nbexec/nbexec.go, which resolves a free port
// the same way before handing it to a child process.
func reservePort(ip string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(ip, "0"))
	if err != nil {
		return 0, fmt.Errorf("failed to reserve a port: %w", err)
	}
	defer l.Close()
	addr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("unexpected listener address type %T", l.Addr())
	}
	return addr.Port, nil
}

// newEndpoint creates a ZeroMQ context, binds all five sockets to
// random ports on ip, and returns the endpoint with its info field
// describing it (minus the Key, SignatureScheme and KernelName fields,
// which the caller fills in).
func newEndpoint(ctx context.Context, ip string) (*endpoint, error) {
	e := &endpoint{ctx: ctx, info: ConnectionInfo{IP: ip, Transport: transport}}

	bind := func(sock zmq4.Socket, portOut *int) error {
		port, err := reservePort(ip)
		if err != nil {
			return err
		}
		addr := fmt.Sprintf("%s://%s:%d", transport, ip, port)
		if err := sock.Listen(addr); err != nil {
			return fmt.Errorf("failed to bind to %s: %w", addr, err)
		}
		*portOut = port
		return nil
	}

	e.iopub = zmq4.NewPub(ctx)
	if err := bind(e.iopub, &e.info.IOPubPort); err != nil {
		return nil, err
	}

	e.shell = zmq4.NewRouter(ctx)
	if err := bind(e.shell, &e.info.ShellPort); err != nil {
		e.closeAll()
		return nil, err
	}

	e.hb = zmq4.NewRep(ctx)
	if err := bind(e.hb, &e.info.HBPort); err != nil {
		e.closeAll()
		return nil, err
	}

	e.control = zmq4.NewRouter(ctx)
	if err := bind(e.control, &e.info.ControlPort); err != nil {
		e.closeAll()
		return nil, err
	}

	e.stdin = zmq4.NewRouter(ctx)
	if err := bind(e.stdin, &e.info.StdinPort); err != nil {
		e.closeAll()
		return nil, err
	}

	return e, nil
}

// closeAll closes every bound socket, ignoring individual errors -
// shutdown is best-effort once the bridge has decided to tear down.
func (e *endpoint) closeAll() {
	for _, sock := range []zmq4.Socket{e.iopub, e.shell, e.hb, e.control, e.stdin} {
		if sock != nil {
			_ = sock.Close()
		}
	}
}

// send signs and writes one message to sock, prefixed with the given
// routing identities (empty for IOPub, the identities received with
// the matching request for Shell/Control/Stdin replies).
func send(sock zmq4.Socket, s *signer, header Header, parent *Header, metadata, content map[string]any, identities ...[]byte) error {
	payload, err := buildFrames(s, header, parent, metadata, content)
	if err != nil {
		return err
	}

	frames := make([][]byte, 0, len(identities)+1+len(payload))
	frames = append(frames, identities...)
	frames = append(frames, []byte(delimiter))
	frames = append(frames, payload...)

	msg := zmq4.NewMsgFrom(frames...)
	if err := sock.Send(msg); err != nil {
		return transportErrorf("send", err)
	}
	return nil
}

// recvEnvelope reads one multipart message from sock and parses it
// into an envelope. A *ProtocolError means the message should be
// dropped and polling should continue; any other error means the
// socket itself failed and the responder loop should exit.
func recvEnvelope(sock zmq4.Socket) (*envelope, error) {
	msg, err := sock.Recv()
	if err != nil {
		return nil, transportErrorf("recv", err)
	}
	return parseEnvelope(msg.Frames)
}
