// Command bridgedemo starts a bridge wired to a minimal fake Python
// host, prints its connection file path, and feeds it one scripted
// cell completion. It exists for manual smoke-testing
// against a real Jupyter client (connect with `jupyter console
// --existing <connection-file>`), not as a production entry point.
package main

import (
	"fmt"
	"os"

	"bridge/bridge"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "-h", "--help", "help":
		usage()
	case "run":
		os.Exit(runCommand(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand: %s\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  bridgedemo run [ip]   start a bridge with a fake host and idle forever\n")
}

func runCommand(args []string) int {
	ip := ""
	if len(args) > 0 {
		ip = args[0]
	}

	b, err := bridge.New(bridge.Options{IP: ip})
	if err != nil {
		fmt.Fprintf(os.Stderr, "bridgedemo: failed to start bridge: %v\n", err)
		return 1
	}
	defer b.Close()

	fmt.Printf("connection file: %s\n", b.ConnectionFilePath())
	fmt.Printf("session: %s\n", b.SessionID())

	host := newFakeHost()
	inst, err := bridge.Install(b, host)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bridgedemo: failed to install: %v\n", err)
		return 1
	}
	defer inst.Close()

	fmt.Fprintln(host.Stdout(), "bridgedemo ready")
	host.finishCell(42, nil)

	// Idle so a real client can attach and poke at the bridge.
	select {}
}
