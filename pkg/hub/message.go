package hub

// MessageType selects the websocket frame type used for a Message.
type MessageType int

const (
	// JSONMessage is sent as a text frame and may be replayed to new clients.
	JSONMessage MessageType = iota
	// BinaryMessage carries an encoded camera frame and is never replayed.
	BinaryMessage
)

// Message is one broadcast payload.
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage wraps pre-encoded JSON.
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage wraps a binary payload such as a JPEG frame.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}
