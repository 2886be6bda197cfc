package bridge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/uuid"
)

// ConnectionInfo is the JSON descriptor written to disk that tells a
// Jupyter client how to connect to the bridge's five channels and sign
// its own messages.
type ConnectionInfo struct {
	IP              string `json:"ip"`
	Transport       string `json:"transport"`
	ShellPort       int    `json:"shell_port"`
	IOPubPort       int    `json:"iopub_port"`
	StdinPort       int    `json:"stdin_port"`
	ControlPort     int    `json:"control_port"`
	HBPort          int    `json:"hb_port"`
	Key             string `json:"key"`
	SignatureScheme string `json:"signature_scheme"`
	KernelName      string `json:"kernel_name"`
}

// newHexSecret returns a fresh 32-hex-character random value, suitable
// for a BridgeKey or a SessionId. It is grounded on the same
// uuid-v4-hex convention KevinZonda-go-jupyter and janpfeifer-gonb use
// for Jupyter message ids, rather than the teacher's own
// kernel/kernel.go newUUID helper, which is neither random nor unique
// (a timestamp concatenated with sixteen zero bytes).
func newHexSecret() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(id.String(), "-", ""), nil
}

// newMsgID returns a fresh message id for a header's msg_id field.
func newMsgID() (string, error) {
	return newHexSecret()
}

// connectionFile owns the on-disk JSON descriptor and its containing
// temporary directory, both removed together on close.
type connectionFile struct {
	dir  string
	path string
}

// writeConnectionFile creates a runtimed-bridge-* temporary directory,
// writes info as kernel-bridge-<8 hex>.json inside it, and returns a
// handle that can remove both on close.
func writeConnectionFile(info ConnectionInfo) (*connectionFile, error) {
	dir, err := os.MkdirTemp("", "runtimed-bridge-")
	if err != nil {
		return nil, fmt.Errorf("failed to create connection directory: %w", err)
	}

	suffix, err := newHexSecret()
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to generate connection file name: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("kernel-bridge-%s.json", suffix[:8]))
	data, err := json.Marshal(info)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to marshal connection info: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to write connection file: %w", err)
	}

	return &connectionFile{dir: dir, path: path}, nil
}

// Path returns the absolute path of the connection file on disk.
func (c *connectionFile) Path() string {
	return c.path
}

// remove deletes the connection file and its parent directory,
// ignoring filesystem errors per spec.md's TeardownFilesystemFailure
// policy: the directory may already be gone.
func (c *connectionFile) remove() {
	os.Remove(c.path)
	os.Remove(c.dir)
}
