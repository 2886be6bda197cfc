package bridge

import "fmt"

// ProtocolError reports a malformed inbound Jupyter message: the
// <IDS|MSG> delimiter is missing, payload frames are missing, or the
// header or content frame is not valid JSON. The responder that
// encounters one drops the message and keeps polling. A signature
// mismatch is dropped the same way but is not reported as a
// ProtocolError.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("malformed jupyter message: %s", e.Reason)
}

func protocolErrorf(format string, args ...any) *ProtocolError {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...)}
}

// TransportError wraps a ZeroMQ-level failure on send, receive, or
// poll. On a responder loop it is terminal; from the Publisher it
// propagates to the host goroutine.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func transportErrorf(op string, err error) *TransportError {
	if err == nil {
		return nil
	}
	return &TransportError{Op: op, Err: err}
}

// EvaluationError reports that a user_expressions entry raised in the
// host. It is always reported inline in the execute_reply content,
// never propagated to the caller of EvalExpression's caller.
type EvaluationError struct {
	Name  string
	Value string
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Value)
}
