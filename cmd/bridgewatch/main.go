// Command bridgewatch is a raw-terminal live viewer of a bridge's
// IOPub traffic: point it at a connection file and it subscribes to
// every broadcast message and prints a one-line summary per message,
// until 'q' is pressed or the terminal is closed.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-zeromq/zmq4"
	"golang.org/x/term"

	"bridge/bridge"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: bridgewatch <connection-file>\n")
		os.Exit(2)
	}

	if err := watch(os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "bridgewatch: %v\n", err)
		os.Exit(1)
	}
}

func watch(connFile string) error {
	raw, err := os.ReadFile(connFile)
	if err != nil {
		return fmt.Errorf("read connection file: %w", err)
	}

	var info bridge.ConnectionInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return fmt.Errorf("parse connection file: %w", err)
	}

	sub := zmq4.NewSub(context.Background())
	defer sub.Close()

	endpoint := fmt.Sprintf("%s://%s:%d", info.Transport, info.IP, info.IOPubPort)
	if err := sub.Dial(endpoint); err != nil {
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}
	if err := sub.SetOption(zmq4.OptionSubscribe, ""); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	quit := make(chan struct{})
	go watchForQuitKey(quit)

	fmt.Printf("watching %s (press q to quit)\n", endpoint)
	for {
		select {
		case <-quit:
			return nil
		default:
		}

		msg, err := sub.Recv()
		if err != nil {
			return fmt.Errorf("recv: %w", err)
		}
		printSummary(msg.Frames)
	}
}

// printSummary prints msg_type and content for a raw IOPub frame set
// without bothering to verify the signature - bridgewatch is a
// read-only debugging aid, not a protocol participant.
func printSummary(frames [][]byte) {
	for i, f := range frames {
		if string(f) == "<IDS|MSG>" {
			if i+5 >= len(frames) {
				return
			}
			var header struct {
				MsgType string `json:"msg_type"`
			}
			if err := json.Unmarshal(frames[i+2], &header); err != nil {
				return
			}
			fmt.Printf("[%s] %s\n", header.MsgType, string(frames[i+5]))
			return
		}
	}
}

// watchForQuitKey puts stdin into raw mode (if it is a terminal) and
// closes quit as soon as 'q' is read.
func watchForQuitKey(quit chan struct{}) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return
	}
	defer term.Restore(fd, state)

	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil || n == 0 {
			return
		}
		if buf[0] == 'q' {
			close(quit)
			return
		}
	}
}
