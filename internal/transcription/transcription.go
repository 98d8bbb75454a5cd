// Package transcription turns WhatsApp voice notes into text with the OpenAI
// audio API.
package transcription

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"quote_assistant_backend/platform/config"
	"quote_assistant_backend/platform/logger"
)

const (
	defaultModel   = "whisper-1"
	requestTimeout = 60 * time.Second
)

// ErrEmptyAudio is returned for zero-length input.
var ErrEmptyAudio = errors.New("transcription: empty audio")

// Client transcribes audio.
type Client struct {
	client openai.Client
	model  string
	log    *logger.Logger
}

// NewClient returns nil when transcription is not configured. Extra options
// are appended after the API key (base URL overrides in tests).
func NewClient(cfg config.TranscriptionConfig, log *logger.Logger, opts ...option.RequestOption) *Client {
	if !cfg.IsTranscriptionEnabled() {
		return nil
	}
	model := strings.TrimSpace(cfg.GetTranscriptionModel())
	if model == "" {
		model = defaultModel
	}

	all := append([]option.RequestOption{
		option.WithAPIKey(cfg.GetOpenAIAPIKey()),
		option.WithRequestTimeout(requestTimeout),
		option.WithMaxRetries(1),
	}, opts...)

	return &Client{
		client: openai.NewClient(all...),
		model:  model,
		log:    log,
	}
}

// Transcribe returns the spoken text of audio.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}

	mediaType := baseMimeType(mimeType)
	start := time.Now()
	resp, err := c.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: openai.AudioModel(c.model),
		File:  openai.File(bytes.NewReader(audio), "voice"+extensionFor(mediaType), mediaType),
	})
	if err != nil {
		c.log.Error("transcription failed", "model", c.model, "bytes", len(audio), "error", err)
		return "", fmt.Errorf("transcribe audio: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	c.log.Info("voice note transcribed", "model", c.model, "chars", len(text), "latencyMs", time.Since(start).Milliseconds())
	return text, nil
}

func baseMimeType(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil || mediaType == "" {
		return "audio/ogg"
	}
	return mediaType
}

// extensionFor maps WhatsApp audio types onto the file extensions the
// transcription endpoint recognizes.
func extensionFor(mediaType string) string {
	switch mediaType {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/mp4", "audio/m4a", "audio/x-m4a", "audio/aac":
		return ".m4a"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/webm":
		return ".webm"
	case "audio/amr":
		return ".amr"
	default:
		return ".ogg"
	}
}
