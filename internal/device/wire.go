package device

import "github.com/openbias/biasd/internal/codec"

// Envelope literals.
const (
	payloadAction = "ACTION"
	actionRead    = "READ"
	actionWrite   = "WRITE"
)

type envelope struct {
	ClientID string   `json:"clientId,omitempty"`
	Payload  *payload `json:"payload"`
}

type payload struct {
	Type   string      `json:"type"`
	Action *wireAction `json:"action"`
}

type wireAction struct {
	Type   string      `json:"type"`
	Values []wireValue `json:"values"`
}

type wireValue struct {
	ID     string      `json:"id"`
	Single bool        `json:"single"`
	Data   *codec.Data `json:"data,omitempty"`
	Result *int        `json:"result,omitempty"`
}
