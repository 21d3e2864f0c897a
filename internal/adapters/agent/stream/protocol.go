package stream

import "encoding/json"

// Outbound message types.
const (
	typeInitiation = "conversation_initiation_client_data"
	typeTranscript = "user_transcript"
	typePong       = "pong"
)

// Inbound message types.
const (
	typeAgentResponse     = "agent_response"
	typeAgentResponsePart = "agent_chat_response_part"
	typePing              = "ping"
)

// text_response_part.type values
const (
	partDelta = "delta"
	partStop  = "stop"
)

type initiationMessage struct {
	Type     string               `json:"type"`
	Override conversationOverride `json:"conversation_config_override"`
}

type conversationOverride struct {
	Agent agentOverride `json:"agent"`
}

type agentOverride struct {
	Prompt   promptOverride `json:"prompt"`
	Language string         `json:"language,omitempty"`
}

type promptOverride struct {
	Prompt string `json:"prompt"`
}

type transcriptMessage struct {
	Type  string          `json:"type"`
	Event transcriptEvent `json:"user_transcription_event"`
}

type transcriptEvent struct {
	UserTranscript string `json:"user_transcript"`
}

type pongMessage struct {
	Type    string `json:"type"`
	EventID int64  `json:"event_id"`
}

type inboundMessage struct {
	Type string `json:"type"`

	AgentResponseEvent *struct {
		AgentResponse string `json:"agent_response"`
	} `json:"agent_response_event,omitempty"`

	TextResponsePart *struct {
		Text string `json:"text"`
		Type string `json:"type"`
	} `json:"text_response_part,omitempty"`

	PingEvent *struct {
		EventID int64 `json:"event_id"`
		PingMS  int   `json:"ping_ms"`
	} `json:"ping_event,omitempty"`
}

func newInitiation(prompt string) initiationMessage {
	return initiationMessage{
		Type: typeInitiation,
		Override: conversationOverride{
			Agent: agentOverride{
				Prompt:   promptOverride{Prompt: prompt},
				Language: "en",
			},
		},
	}
}

func newTranscript(question string) transcriptMessage {
	return transcriptMessage{
		Type:  typeTranscript,
		Event: transcriptEvent{UserTranscript: question},
	}
}

func decodeInbound(data []byte) (inboundMessage, error) {
	var msg inboundMessage
	err := json.Unmarshal(data, &msg)
	return msg, err
}

// pingID reports the correlation id when msg is a keepalive ping.
func (m inboundMessage) pingID() (int64, bool) {
	if m.Type != typePing || m.PingEvent == nil {
		return 0, false
	}
	return m.PingEvent.EventID, true
}

// event translates an answer-bearing message into a reducer event.
func (m inboundMessage) event() (Event, bool) {
	switch m.Type {
	case typeAgentResponse:
		if m.AgentResponseEvent == nil {
			return Event{}, false
		}
		return Event{Kind: EventFinal, Text: m.AgentResponseEvent.AgentResponse}, true

	case typeAgentResponsePart:
		if m.TextResponsePart == nil {
			return Event{}, false
		}
		if m.TextResponsePart.Type == partStop {
			return Event{Kind: EventFinal, Text: ""}, true
		}
		return Event{Kind: EventPartial, Text: m.TextResponsePart.Text}, true
	}
	return Event{}, false
}
