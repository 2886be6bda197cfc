package bridge

import "testing"

func TestBuildFramesEmptyParentAndMetadataAreCurlyBraces(t *testing.T) {
	s := newSigner("key")
	header := Header{MsgID: "m1", MsgType: "status", Session: "sess", Version: protocolVersion}

	frames, err := buildFrames(s, header, nil, nil, map[string]any{"execution_state": "idle"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 5 {
		t.Fatalf("expected 5 frames, got %d", len(frames))
	}
	if string(frames[2]) != "{}" {
		t.Fatalf("expected parent frame to be {}, got %q", frames[2])
	}
	if string(frames[3]) != "{}" {
		t.Fatalf("expected metadata frame to be {}, got %q", frames[3])
	}
}

func TestBuildFramesSignatureVerifies(t *testing.T) {
	s := newSigner("key")
	header := Header{MsgID: "m1", MsgType: "status", Session: "sess", Version: protocolVersion}
	parent := &Header{MsgID: "parent-1"}

	frames, err := buildFrames(s, header, parent, nil, map[string]any{"a": 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sig := string(frames[0])
	if !s.verify(sig, frames[1], frames[2], frames[3], frames[4]) {
		t.Fatalf("expected buildFrames' signature to verify against its own payload frames")
	}
}

func TestParseEnvelopeRoundTrip(t *testing.T) {
	s := newSigner("key")
	header := Header{MsgID: "m1", MsgType: "execute_request", Session: "sess", Version: protocolVersion}
	payload, err := buildFrames(s, header, nil, nil, map[string]any{"code": "1+1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	frames := append([][]byte{[]byte("identity-1"), []byte(delimiter)}, payload...)
	env, err := parseEnvelope(frames)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(env.identities) != 1 || string(env.identities[0]) != "identity-1" {
		t.Fatalf("unexpected identities: %#v", env.identities)
	}
	if env.header.MsgType != "execute_request" {
		t.Fatalf("unexpected msg_type: %q", env.header.MsgType)
	}
	if !env.verifySignature(s) {
		t.Fatalf("expected round-tripped envelope to verify")
	}
}

func TestParseEnvelopeMissingDelimiterIsProtocolError(t *testing.T) {
	_, err := parseEnvelope([][]byte{[]byte("a"), []byte("b")})
	if err == nil {
		t.Fatalf("expected an error")
	}
	if _, ok := err.(*ProtocolError); !ok {
		t.Fatalf("expected *ProtocolError, got %T", err)
	}
}

func TestParseEnvelopeTruncatedPayloadIsProtocolError(t *testing.T) {
	_, err := parseEnvelope([][]byte{[]byte(delimiter), []byte("sig"), []byte("{}")})
	if err == nil {
		t.Fatalf("expected an error")
	}
	if _, ok := err.(*ProtocolError); !ok {
		t.Fatalf("expected *ProtocolError, got %T", err)
	}
}
