package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"live-transcript-service/internal/ingest"
	"live-transcript-service/internal/models"
)

// client talks to the service's HTTP control surface.
type client struct {
	base string
	http *http.Client
}

func newClient(base string, timeout time.Duration) *client {
	return &client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

func (c *client) do(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if body.Error == "" {
			body.Error = resp.Status
		}
		return nil, fmt.Errorf("%s %s: %s", method, path, body.Error)
	}
	return resp, nil
}

func (c *client) status(ctx context.Context, method, path string) (ingest.Status, error) {
	var st ingest.Status
	resp, err := c.do(ctx, method, path)
	if err != nil {
		return st, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("decode status: %w", err)
	}
	return st, nil
}

func (c *client) export(ctx context.Context, w io.Writer) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/transcript/export")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("read export: %w", err)
	}
	return fileNameFrom(resp.Header.Get("Content-Disposition")), nil
}

func fileNameFrom(disposition string) string {
	_, name, ok := strings.Cut(disposition, "filename=")
	if !ok {
		return ""
	}
	return strings.Trim(name, `"`)
}

// watch streams views from the websocket endpoint to fn until ctx is done or
// the server closes the connection.
func (c *client) watch(ctx context.Context, fn func(models.TranscriptView)) error {
	url := "ws" + strings.TrimPrefix(c.base, "http") + "/v1/transcript/ws"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var view models.TranscriptView
		if err := conn.ReadJSON(&view); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read view: %w", err)
		}
		fn(view)
	}
}

// printer renders views incrementally: each segment once, and the current
// partials when they change.
type printer struct {
	w        io.Writer
	session  string
	printed  int
	partials string
}

func (p *printer) print(view models.TranscriptView) {
	if view.SessionID != p.session {
		p.session = view.SessionID
		p.printed = 0
		p.partials = ""
		fmt.Fprintf(p.w, "-- session %s\n", view.SessionID)
	}
	for _, s := range view.Segments[min(p.printed, len(view.Segments)):] {
		fmt.Fprintf(p.w, "[%s] Speaker %s (%s): %s\n", s.Timestamp(), s.Speaker, models.LevelOf(s.Confidence), s.Text)
	}
	p.printed = len(view.Segments)

	var b strings.Builder
	for _, pt := range view.Partials {
		fmt.Fprintf(&b, "   ... Speaker %s: %s\n", pt.Speaker, pt.Text)
	}
	if b.String() != p.partials {
		p.partials = b.String()
		fmt.Fprint(p.w, p.partials)
	}
}
