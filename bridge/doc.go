// Package bridge implements the IOPub Bridge: a server-side Jupyter
// kernel endpoint synthesized from the side of a host interpreter that
// was never a Jupyter kernel to begin with.
//
// It exposes a connection file, five ZeroMQ channels (IOPub, Shell,
// Control, Stdin, Heartbeat), HMAC-SHA256 signed multipart messages, and
// a bounded execution lifecycle (status: busy -> content frames ->
// status: idle) to any Jupyter-protocol consumer (a "sidecar") that
// subscribes to IOPub.
//
// The bridge does not execute user code. The host process embedding it
// implements the Host interface (see host.go) so Install can observe
// cell completions, tee standard output, and wrap the host's display
// publisher.
//
// Two collaborators named in the specification stay entirely external
// to this package and are never implemented here:
//
//   - Binary discovery: locating a sidecar executable on disk. The
//     contract (env var override, then a platform scripts directory,
//     then PATH) belongs to whatever process launches a sidecar; this
//     package only ever writes a connection file.
//   - The sidecar launcher: invoking `<runt-binary> sidecar [--quiet]
//     [--dump <path>] <connection-file>` and tracking the child
//     process. Such a launcher is a consumer of the connection file
//     this package writes, nothing more.
package bridge
