package bridge

// runHeartbeatResponder is the Heartbeat REP loop: receive one opaque
// frame, echo it back unchanged, repeat until the socket is closed by
// Bridge.Close.
func (b *Bridge) runHeartbeatResponder() {
	defer close(b.hbDone)

	for {
		msg, err := b.ep.hb.Recv()
		if err != nil {
			b.logger.Printf("heartbeat: responder exiting: %v", err)
			return
		}
		if err := b.ep.hb.Send(msg); err != nil {
			b.logger.Printf("heartbeat: failed to echo frame: %v", err)
			return
		}
	}
}
