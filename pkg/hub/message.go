package hub

// MessageType distinguishes the two dashboard streams: JSON-encoded
// status events and raw JPEG preview frames.
type MessageType int

const (
	// JSONMessage carries a JSON-encoded status event
	JSONMessage MessageType = iota
	// BinaryMessage carries a raw JPEG preview frame
	BinaryMessage
)

// Message is one broadcast payload, fanned out to every client.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage wraps pre-encoded JSON for broadcast
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage wraps a preview frame for broadcast
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}
