package bridge

import "encoding/json"

// delimiter is the fixed literal that separates routing identities from
// the five payload frames of a Jupyter wire message.
const delimiter = "<IDS|MSG>"

// protocolVersion is the Jupyter messaging protocol version this bridge
// speaks on every outgoing header.
const protocolVersion = "5.3"

// Header is the Jupyter message header carried on every frame.
type Header struct {
	MsgID    string `json:"msg_id"`
	MsgType  string `json:"msg_type"`
	Username string `json:"username"`
	Session  string `json:"session"`
	Date     string `json:"date"`
	Version  string `json:"version"`
}

var emptyObject = []byte("{}")

// marshalOrEmpty marshals a possibly-nil *Header, encoding a nil
// parent header as {} rather than null.
func marshalOrEmpty(h *Header) ([]byte, error) {
	if h == nil {
		return emptyObject, nil
	}
	return json.Marshal(h)
}

// marshalMapOrEmpty marshals a possibly-nil/possibly-empty map as {},
// never as null or "".
func marshalMapOrEmpty(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return emptyObject, nil
	}
	return json.Marshal(m)
}

// buildFrames signs and serializes one outbound message into the five
// payload frames (signature, header, parent_header, metadata, content),
// in wire order, not including the delimiter or any routing identities.
func buildFrames(s *signer, header Header, parent *Header, metadata, content map[string]any) ([][]byte, error) {
	headerBytes, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	parentBytes, err := marshalOrEmpty(parent)
	if err != nil {
		return nil, err
	}
	metadataBytes, err := marshalMapOrEmpty(metadata)
	if err != nil {
		return nil, err
	}
	contentBytes, err := marshalMapOrEmpty(content)
	if err != nil {
		return nil, err
	}
	sig := s.sign(headerBytes, parentBytes, metadataBytes, contentBytes)
	return [][]byte{
		[]byte(sig),
		headerBytes,
		parentBytes,
		metadataBytes,
		contentBytes,
	}, nil
}

// envelope is a parsed inbound Jupyter message: the routing identities
// that preceded the delimiter, the decoded header, the decoded
// content, and the raw bytes of all four payload parts (needed to
// re-verify the signature).
type envelope struct {
	identities [][]byte
	header     Header
	content    map[string]any

	signature                               string
	headerRaw, parentRaw, metadataRaw, contentRaw []byte
}

// parseEnvelope locates the <IDS|MSG> delimiter in frames and splits
// them into routing identities and the five payload frames. It returns
// a *ProtocolError if the delimiter is missing, fewer than five frames
// follow it, or the header or content frame is not valid JSON; the
// parent_header and metadata frames are not decoded.
func parseEnvelope(frames [][]byte) (*envelope, error) {
	delimIdx := -1
	for i, f := range frames {
		if string(f) == delimiter {
			delimIdx = i
			break
		}
	}
	if delimIdx == -1 {
		return nil, protocolErrorf("missing %s delimiter", delimiter)
	}
	if len(frames) < delimIdx+6 {
		return nil, protocolErrorf("truncated envelope: need 5 payload frames after delimiter")
	}

	e := &envelope{
		identities:  frames[:delimIdx],
		signature:   string(frames[delimIdx+1]),
		headerRaw:   frames[delimIdx+2],
		parentRaw:   frames[delimIdx+3],
		metadataRaw: frames[delimIdx+4],
		contentRaw:  frames[delimIdx+5],
	}

	if err := json.Unmarshal(e.headerRaw, &e.header); err != nil {
		return nil, protocolErrorf("invalid header JSON: %v", err)
	}
	if len(e.contentRaw) > 0 {
		if err := json.Unmarshal(e.contentRaw, &e.content); err != nil {
			return nil, protocolErrorf("invalid content JSON: %v", err)
		}
	}
	return e, nil
}

// verifySignature reports whether the envelope's signature matches the
// HMAC-SHA256 digest of its four raw payload parts under s.
func (e *envelope) verifySignature(s *signer) bool {
	return s.verify(e.signature, e.headerRaw, e.parentRaw, e.metadataRaw, e.contentRaw)
}
