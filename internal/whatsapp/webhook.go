package whatsapp

import "encoding/json"

// InboundMessage is one customer message lifted out of a webhook envelope.
type InboundMessage struct {
	From      string    `json:"from"`
	ID        string    `json:"id"`
	Timestamp string    `json:"timestamp"`
	Type      string    `json:"type"`
	Text      *TextBody `json:"text,omitempty"`
}

// TextBody carries the text of an inbound message.
type TextBody struct {
	Body string `json:"body"`
}

// Body returns the message text, or "" for non-text messages.
func (m InboundMessage) Body() string {
	if m.Text == nil {
		return ""
	}
	return m.Text.Body
}

// DecodeEnvelope extracts the inbound messages from a Cloud API webhook
// payload. Only a payload that is not valid JSON is an error; entries,
// changes, and messages that are missing or of the wrong shape are skipped,
// since the Cloud API also delivers status updates and other change kinds
// on the same webhook.
func DecodeEnvelope(data []byte) ([]InboundMessage, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	var entries []json.RawMessage
	if raw, ok := envelope["entry"]; ok {
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, nil
		}
	}
	var messages []InboundMessage
	for _, rawEntry := range entries {
		var entry struct {
			Changes []json.RawMessage `json:"changes"`
		}
		if json.Unmarshal(rawEntry, &entry) != nil {
			continue
		}
		for _, rawChange := range entry.Changes {
			var change struct {
				Value struct {
					Messages []json.RawMessage `json:"messages"`
				} `json:"value"`
			}
			if json.Unmarshal(rawChange, &change) != nil {
				continue
			}
			for _, rawMessage := range change.Value.Messages {
				var msg InboundMessage
				if json.Unmarshal(rawMessage, &msg) != nil {
					continue
				}
				if msg.From == "" {
					continue
				}
				messages = append(messages, msg)
			}
		}
	}
	return messages, nil
}
