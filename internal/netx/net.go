package netx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// StatusError is returned when the server answers with anything but 200.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upload failed: %d %s; body: %s", e.Status, http.StatusText(e.Status), e.Body)
}

// PostStream sends body to url as an octet stream of unknown length and returns
// the trimmed response text.
func PostStream(ctx context.Context, client *http.Client, url string, body io.Reader) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", err
	}
	req.ContentLength = -1
	req.Header.Set("Content-Type", "application/octet-stream")

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return strings.TrimSpace(string(b)), nil
}
