package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"coursechat/internal/common"
	"coursechat/internal/dbmongo"
)

// HTTPUploader is the client-side file-storage collaborator: it posts
// attachments to the media facade and returns the durable URL.
// Implements common.FileStorage.
type HTTPUploader struct {
	baseURL string
	client  *http.Client
}

func NewHTTPUploader(baseURL string, client *http.Client) *HTTPUploader {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPUploader{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (u *HTTPUploader) Upload(ctx context.Context, file common.UploadFile) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	mime := file.Mime
	if mime == "" {
		mime = "application/octet-stream"
	}
	header.Set("Content-Type", mime)

	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if _, err := io.Copy(part, file.Content); err != nil {
		return "", fmt.Errorf("read attachment: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/media", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("upload: unexpected status %s", resp.Status)
	}

	var stored dbmongo.StoredFile
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	return fmt.Sprintf("%s/media/%s", u.baseURL, stored.ID), nil
}
