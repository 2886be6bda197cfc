package bridge

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/go-zeromq/zmq4"
)

func newTestBridge(t *testing.T) *Bridge {
	t.Helper()
	b, err := New(Options{IP: "127.0.0.1", Logger: log.New(testWriter{t}, "", 0)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(b.Close)
	return b
}

// testWriter adapts testing.T into an io.Writer so bridge diagnostics
// show up attributed to the right test.
type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func sendRequest(t *testing.T, sock zmq4.Socket, s *signer, header Header, content map[string]any) {
	t.Helper()
	payload, err := buildFrames(s, header, nil, nil, content)
	if err != nil {
		t.Fatalf("buildFrames: %v", err)
	}
	frames := append([][]byte{[]byte(delimiter)}, payload...)
	if err := sock.Send(zmq4.NewMsgFrom(frames...)); err != nil {
		t.Fatalf("send: %v", err)
	}
}

// Scenario 1 - heartbeat round trip.
func TestHeartbeatRoundTrip(t *testing.T) {
	b := newTestBridge(t)

	req := zmq4.NewReq(context.Background())
	addr := "tcp://127.0.0.1:" + portOf(t, b.ConnectionFilePath(), "hb_port")
	if err := req.Dial(addr); err != nil {
		t.Fatalf("dial hb: %v", err)
	}
	defer req.Close()

	if err := req.Send(zmq4.NewMsg([]byte("ping"))); err != nil {
		t.Fatalf("send ping: %v", err)
	}

	done := make(chan zmq4.Msg, 1)
	go func() {
		msg, err := req.Recv()
		if err != nil {
			t.Errorf("recv: %v", err)
			return
		}
		done <- msg
	}()

	select {
	case msg := <-done:
		if len(msg.Frames) != 1 || string(msg.Frames[0]) != "ping" {
			t.Fatalf("expected echoed ping, got %#v", msg.Frames)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for heartbeat echo")
	}
}

// Scenario 2 - kernel-info handshake.
func TestKernelInfoHandshake(t *testing.T) {
	b := newTestBridge(t)
	s := newSigner(extractKey(t, b.ConnectionFilePath()))

	shellAddr := "tcp://127.0.0.1:" + portOf(t, b.ConnectionFilePath(), "shell_port")
	iopubAddr := "tcp://127.0.0.1:" + portOf(t, b.ConnectionFilePath(), "iopub_port")

	shell := zmq4.NewDealer(context.Background())
	if err := shell.Dial(shellAddr); err != nil {
		t.Fatalf("dial shell: %v", err)
	}
	defer shell.Close()

	sub := zmq4.NewSub(context.Background())
	if err := sub.Dial(iopubAddr); err != nil {
		t.Fatalf("dial iopub: %v", err)
	}
	if err := sub.SetOption(zmq4.OptionSubscribe, ""); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	// Give the SUB socket a moment to complete its subscription before
	// the request that triggers the correlated status message.
	time.Sleep(100 * time.Millisecond)

	reqHeader := Header{MsgID: "req-1", MsgType: "kernel_info_request", Session: "test-session", Version: protocolVersion}
	sendRequest(t, shell, s, reqHeader, map[string]any{})

	replyCh := make(chan *envelope, 1)
	go func() {
		msg, err := shell.Recv()
		if err != nil {
			t.Errorf("recv reply: %v", err)
			return
		}
		env, err := parseEnvelope(msg.Frames)
		if err != nil {
			t.Errorf("parse reply: %v", err)
			return
		}
		replyCh <- env
	}()

	select {
	case env := <-replyCh:
		if env.header.MsgType != "kernel_info_reply" {
			t.Fatalf("expected kernel_info_reply, got %q", env.header.MsgType)
		}
		if env.content["status"] != "ok" {
			t.Fatalf("expected status ok, got %v", env.content["status"])
		}
		if env.content["implementation"] != "ipython-bridge" {
			t.Fatalf("expected implementation ipython-bridge, got %v", env.content["implementation"])
		}
		langInfo, _ := env.content["language_info"].(map[string]any)
		if langInfo["name"] != "python" {
			t.Fatalf("expected language_info.name python, got %v", langInfo["name"])
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for kernel_info_reply")
	}

	statusCh := make(chan *envelope, 1)
	go func() {
		for {
			msg, err := sub.Recv()
			if err != nil {
				return
			}
			env, err := parseEnvelope(msg.Frames)
			if err != nil {
				continue
			}
			if env.header.MsgType == "status" {
				statusCh <- env
				return
			}
		}
	}()

	select {
	case env := <-statusCh:
		if env.content["execution_state"] != "idle" {
			t.Fatalf("expected execution_state idle, got %v", env.content["execution_state"])
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for handshake status message")
	}
}

// Scenario 3 - user_expressions round trip.
func TestUserExpressionsRoundTrip(t *testing.T) {
	b := newTestBridge(t)
	s := newSigner(extractKey(t, b.ConnectionFilePath()))

	_, err := Install(b, newStubHost())
	if err != nil {
		t.Fatalf("Install: %v", err)
	}

	shellAddr := "tcp://127.0.0.1:" + portOf(t, b.ConnectionFilePath(), "shell_port")
	shell := zmq4.NewDealer(context.Background())
	if err := shell.Dial(shellAddr); err != nil {
		t.Fatalf("dial shell: %v", err)
	}
	defer shell.Close()

	header := Header{MsgID: "req-2", MsgType: "execute_request", Session: "test-session", Version: protocolVersion}
	content := map[string]any{
		"code":             "os.getcwd()",
		"user_expressions": map[string]any{"cwd": "__import__('os').getcwd()"},
	}
	sendRequest(t, shell, s, header, content)

	msg, err := shell.Recv()
	if err != nil {
		t.Fatalf("recv reply: %v", err)
	}
	env, err := parseEnvelope(msg.Frames)
	if err != nil {
		t.Fatalf("parse reply: %v", err)
	}
	if env.header.MsgType != "execute_reply" {
		t.Fatalf("expected execute_reply, got %q", env.header.MsgType)
	}

	userExprs, _ := env.content["user_expressions"].(map[string]any)
	cwd, _ := userExprs["cwd"].(map[string]any)
	if cwd["status"] != "ok" {
		t.Fatalf("expected cwd status ok, got %#v", cwd)
	}
	data, _ := cwd["data"].(map[string]any)
	if _, ok := data["text/plain"]; !ok {
		t.Fatalf("expected a text/plain entry, got %#v", data)
	}
}

// portOf and extractKey re-read the connection file rather than
// reaching into Bridge internals, exercising the same external
// interface a real sidecar would use.
func portOf(t *testing.T, connFile, field string) string {
	t.Helper()
	info := readConnInfo(t, connFile)
	switch field {
	case "hb_port":
		return strconv.Itoa(info.HBPort)
	case "shell_port":
		return strconv.Itoa(info.ShellPort)
	case "iopub_port":
		return strconv.Itoa(info.IOPubPort)
	default:
		t.Fatalf("unknown field %q", field)
		return ""
	}
}

func extractKey(t *testing.T, connFile string) string {
	t.Helper()
	return readConnInfo(t, connFile).Key
}

func readConnInfo(t *testing.T, connFile string) ConnectionInfo {
	t.Helper()
	raw, err := os.ReadFile(connFile)
	if err != nil {
		t.Fatalf("read connection file: %v", err)
	}
	var info ConnectionInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		t.Fatalf("unmarshal connection file: %v", err)
	}
	return info
}
