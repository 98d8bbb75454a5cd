package whatsapp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
)

// MaxMediaSize bounds inbound media downloads (voice notes, images).
const MaxMediaSize = 16 << 20

// UploadMedia uploads content and returns the media id usable in SendDocument.
func (c *Client) UploadMedia(ctx context.Context, filename, mimeType string, content []byte) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("messaging_product", messagingProduct); err != nil {
		return "", err
	}
	if err := w.WriteField("type", mimeType); err != nil {
		return "", err
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", mimeType)
	part, err := w.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(content); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/%s/media", c.baseURL, c.phoneNumberID), &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var resp mediaUploadResponse
	if err := c.do(req, &resp); err != nil {
		c.log.Error("whatsapp media upload failed", "filename", filename, "error", err)
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("whatsapp media upload: response carried no id")
	}
	return resp.ID, nil
}

// DownloadMedia resolves an inbound media id and fetches its bytes.
func (c *Client) DownloadMedia(ctx context.Context, mediaID string) (*Media, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", c.baseURL, mediaID), nil)
	if err != nil {
		return nil, err
	}
	var info mediaInfoResponse
	if err := c.do(req, &info); err != nil {
		return nil, fmt.Errorf("resolve media %s: %w", mediaID, err)
	}
	if info.URL == "" {
		return nil, fmt.Errorf("resolve media %s: no download url", mediaID)
	}
	if info.FileSize > MaxMediaSize {
		return nil, fmt.Errorf("media %s is %d bytes, limit is %d", mediaID, info.FileSize, MaxMediaSize)
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, info.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download media %s: %w", mediaID, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, readAPIError(resp)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, MaxMediaSize+1))
	if err != nil {
		return nil, fmt.Errorf("read media %s: %w", mediaID, err)
	}
	if len(content) > MaxMediaSize {
		return nil, fmt.Errorf("media %s exceeds %d bytes", mediaID, MaxMediaSize)
	}

	mimeType := info.MimeType
	if mimeType == "" {
		mimeType = resp.Header.Get("Content-Type")
	}
	return &Media{MimeType: mimeType, Content: content}, nil
}
