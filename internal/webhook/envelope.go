package webhook

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"quote_assistant_backend/internal/inbound"
)

// Envelope is the Cloud API webhook body.
type Envelope struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

type Value struct {
	MessagingProduct string          `json:"messaging_product"`
	Metadata         Metadata        `json:"metadata"`
	Contacts         []Contact       `json:"contacts"`
	Messages         []RawMessage    `json:"messages"`
	Statuses         json.RawMessage `json:"statuses,omitempty"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type RawMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply,omitempty"`
		ListReply *struct {
			ID          string `json:"id"`
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"list_reply,omitempty"`
	} `json:"interactive,omitempty"`
	Button *struct {
		Payload string `json:"payload"`
		Text    string `json:"text"`
	} `json:"button,omitempty"`
	Audio    *Media `json:"audio,omitempty"`
	Image    *Media `json:"image,omitempty"`
	Document *Media `json:"document,omitempty"`
}

type Media struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Caption  string `json:"caption,omitempty"`
	Voice    bool   `json:"voice,omitempty"`
}

// ParseEnvelope decodes body and returns the customer messages it carries.
// Status callbacks and unsupported message types are skipped.
func ParseEnvelope(body []byte) ([]inbound.Message, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode webhook envelope: %w", err)
	}

	var out []inbound.Message
	for _, entry := range env.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" {
				continue
			}
			names := contactNames(change.Value.Contacts)
			for _, raw := range change.Value.Messages {
				msg, ok := raw.toMessage()
				if !ok {
					continue
				}
				msg.Name = names[raw.From]
				out = append(out, msg)
			}
		}
	}
	return out, nil
}

func contactNames(contacts []Contact) map[string]string {
	names := make(map[string]string, len(contacts))
	for _, c := range contacts {
		names[c.WaID] = strings.TrimSpace(c.Profile.Name)
	}
	return names
}

func (r RawMessage) toMessage() (inbound.Message, bool) {
	if r.ID == "" || r.From == "" {
		return inbound.Message{}, false
	}
	msg := inbound.Message{
		ID:        r.ID,
		From:      r.From,
		Type:      r.Type,
		Timestamp: parseUnix(r.Timestamp),
	}

	switch r.Type {
	case inbound.TypeText:
		if r.Text == nil {
			return msg, false
		}
		msg.Text = r.Text.Body
	case inbound.TypeInteractive:
		if r.Interactive == nil {
			return msg, false
		}
		switch {
		case r.Interactive.ButtonReply != nil:
			msg.ReplyID = r.Interactive.ButtonReply.ID
			msg.Text = r.Interactive.ButtonReply.Title
		case r.Interactive.ListReply != nil:
			msg.ReplyID = r.Interactive.ListReply.ID
			msg.Text = r.Interactive.ListReply.Title
		default:
			return msg, false
		}
	case inbound.TypeButton:
		if r.Button == nil {
			return msg, false
		}
		msg.ReplyID = r.Button.Payload
		msg.Text = r.Button.Text
	case inbound.TypeAudio:
		if r.Audio == nil {
			return msg, false
		}
		msg.MediaID = r.Audio.ID
		msg.MimeType = r.Audio.MimeType
	case inbound.TypeImage, inbound.TypeDocument:
		media := r.Image
		if r.Type == inbound.TypeDocument {
			media = r.Document
		}
		if media == nil {
			return msg, false
		}
		msg.MediaID = media.ID
		msg.MimeType = media.MimeType
		msg.Text = media.Caption
	default:
		// Stickers, reactions and locations reach the flow without text and
		// are answered with the current prompt.
	}
	return msg, true
}

func parseUnix(ts string) time.Time {
	secs, err := strconv.ParseInt(strings.TrimSpace(ts), 10, 64)
	if err != nil || secs <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(secs, 0).UTC()
}
