package whatsapp

import "unicode/utf8"

// Cloud API limits for interactive messages.
const (
	MaxButtons          = 3
	MaxButtonTitleLen   = 20
	MaxListRows         = 10
	MaxRowTitleLen      = 24
	MaxRowDescLen       = 72
	MaxSectionTitleLen  = 24
	MaxListButtonLen    = 20
	MaxInteractiveBody  = 1024
	MaxTextBody         = 4096
	MaxDocumentCaption  = 1024
	messagingProduct    = "whatsapp"
	recipientIndividual = "individual"
)

// Button is a quick-reply button.
type Button struct {
	ID    string
	Title string
}

// Row is one selectable list row.
type Row struct {
	ID          string
	Title       string
	Description string
}

// Section groups list rows.
type Section struct {
	Title string
	Rows  []Row
}

// Document is sent by public link or by previously uploaded media id.
type Document struct {
	Link     string
	MediaID  string
	Filename string
	Caption  string
}

// Media is downloaded inbound media.
type Media struct {
	MimeType string
	Content  []byte
}

// ── Wire format ─────────────────────────────────────────────────────────

type messageRequest struct {
	MessagingProduct string           `json:"messaging_product"`
	RecipientType    string           `json:"recipient_type,omitempty"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	Text             *textPayload     `json:"text,omitempty"`
	Interactive      *interactive     `json:"interactive,omitempty"`
	Document         *documentPayload `json:"document,omitempty"`
}

type textPayload struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url"`
}

type interactive struct {
	Type   string            `json:"type"`
	Body   interactiveBody   `json:"body"`
	Action interactiveAction `json:"action"`
}

type interactiveBody struct {
	Text string `json:"text"`
}

type interactiveAction struct {
	Button   string        `json:"button,omitempty"`
	Buttons  []replyButton `json:"buttons,omitempty"`
	Sections []listSection `json:"sections,omitempty"`
}

type replyButton struct {
	Type  string     `json:"type"`
	Reply replyTitle `json:"reply"`
}

type replyTitle struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type listSection struct {
	Title string    `json:"title,omitempty"`
	Rows  []listRow `json:"rows"`
}

type listRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type documentPayload struct {
	ID       string `json:"id,omitempty"`
	Link     string `json:"link,omitempty"`
	Filename string `json:"filename,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

type readReceipt struct {
	MessagingProduct string `json:"messaging_product"`
	Status           string `json:"status"`
	MessageID        string `json:"message_id"`
}

type messageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type mediaUploadResponse struct {
	ID string `json:"id"`
}

type mediaInfoResponse struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// truncate cuts s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n <= 1 {
		return string(runes[:n])
	}
	return string(runes[:n-1]) + "…"
}
