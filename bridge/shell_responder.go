package bridge

import (
	"errors"
)

// runShellResponder is the Shell ROUTER responder loop: receive one
// multipart message, dispatch on msg_type, repeat until the socket is
// closed by Bridge.Close. Per-message ProtocolError failures are logged
// and swallowed, and evaluation failures are reported inline in the
// execute_reply; only a transport failure (the socket closing) ends the
// loop.
func (b *Bridge) runShellResponder() {
	defer close(b.shellDone)

	for {
		env, err := recvEnvelope(b.ep.shell)
		if err != nil {
			var perr *ProtocolError
			if errors.As(err, &perr) {
				b.logger.Printf("shell: dropping malformed message: %v", err)
				continue
			}
			b.logger.Printf("shell: responder exiting: %v", err)
			return
		}

		if b.signatureVerificationEnabled() && !env.verifySignature(b.signer) {
			b.logger.Printf("shell: dropping message with invalid signature (msg_type=%s)", env.header.MsgType)
			continue
		}

		switch env.header.MsgType {
		case "kernel_info_request":
			b.handleKernelInfoRequest(env)
		case "execute_request":
			b.handleExecuteRequest(env)
		default:
			// Any other msg_type is silently ignored per spec.md §4.4.
		}
	}
}

// signatureVerificationEnabled resolves the Open Question in spec.md
// §9: this bridge makes inbound Shell signature verification mandatory
// (but non-fatal to the responder - see runShellResponder above),
// rather than the reference consumer's silent accept-anything.
func (b *Bridge) signatureVerificationEnabled() bool {
	return true
}

func (b *Bridge) handleKernelInfoRequest(env *envelope) {
	parent := env.header

	pythonVersion := "unknown"
	if host := b.getHost(); host != nil {
		pythonVersion = host.PythonVersion()
	}

	content := map[string]any{
		"status":                 "ok",
		"protocol_version":       protocolVersion,
		"implementation":         "ipython-bridge",
		"implementation_version": "0.1.0",
		"debugger":               false,
		"help_links":             []any{},
		"banner":                 "IPython Bridge for runtimed sidecar",
		"language_info": map[string]any{
			"name":               "python",
			"version":            pythonVersion,
			"mimetype":           "text/x-python",
			"file_extension":     ".py",
			"pygments_lexer":     "ipython3",
			"codemirror_mode":    map[string]any{"name": "ipython", "version": 3},
			"nbconvert_exporter": "python",
		},
	}

	header, err := b.newHeader("kernel_info_reply")
	if err != nil {
		b.logger.Printf("shell: failed to build kernel_info_reply header: %v", err)
		return
	}
	if err := send(b.ep.shell, b.signer, header, &parent, nil, content, env.identities...); err != nil {
		b.logger.Printf("shell: failed to send kernel_info_reply: %v", err)
	}

	// A freshly-connecting consumer should see at least one status
	// frame correlated to its handshake.
	if err := b.PublishStatus(StateIdle, &parent); err != nil {
		b.logger.Printf("shell: failed to publish handshake status: %v", err)
	}
}

func (b *Bridge) handleExecuteRequest(env *envelope) {
	parent := env.header

	b.iopubMu.Lock()
	count := b.currentExecutionCount()
	b.iopubMu.Unlock()

	rawExprs, _ := env.content["user_expressions"].(map[string]any)
	results := make(map[string]any, len(rawExprs))
	for name, raw := range rawExprs {
		expr, _ := raw.(string)
		results[name] = b.evalUserExpression(name, expr)
	}

	content := map[string]any{
		"status":           "ok",
		"execution_count":  count,
		"user_expressions": results,
	}

	header, err := b.newHeader("execute_reply")
	if err != nil {
		b.logger.Printf("shell: failed to build execute_reply header: %v", err)
		return
	}
	if err := send(b.ep.shell, b.signer, header, &parent, nil, content, env.identities...); err != nil {
		b.logger.Printf("shell: failed to send execute_reply: %v", err)
	}
}

// evalUserExpression evaluates one user_expressions entry through the
// installed Host's expression evaluator, if any, and shapes the result
// per spec.md §4.4. If no Host is installed yet, every expression
// reports an evaluation error - there is nothing to evaluate against.
func (b *Bridge) evalUserExpression(name, expr string) map[string]any {
	host := b.getHost()
	if host == nil {
		return map[string]any{
			"status":    "error",
			"ename":     "EvaluationUnavailable",
			"evalue":    "no host installed to evaluate user_expressions",
			"traceback": []string{},
		}
	}

	repr, err := host.EvalExpression(name, expr)
	if err != nil {
		return map[string]any{
			"status":    "error",
			"ename":     errorTypeName(err),
			"evalue":    err.Error(),
			"traceback": []string{},
		}
	}
	return map[string]any{
		"status":   "ok",
		"data":     map[string]any{"text/plain": repr},
		"metadata": map[string]any{},
	}
}

func errorTypeName(err error) string {
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return evalErr.Name
	}
	return "Error"
}
