// Package facematch identifies a captured subject against the recognition
// endpoint on the currently configured backend.
package facematch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"sitesync/internal/media"
	"sitesync/internal/metrics"
	"sitesync/internal/session"
)

const endpointCheckFace = "check_face"

// Worker is a matched subject record: identity plus whatever extra
// attributes the backend tacks on (completion flags and the like).
type Worker struct {
	ID    string
	Name  string
	Extra map[string]any
}

// UnmarshalJSON keeps unknown attributes instead of dropping them; the
// backend contract is informal and callers read variant-specific flags out
// of Extra.
func (w *Worker) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	w.Extra = make(map[string]any, len(raw))
	for k, v := range raw {
		switch k {
		case "person_id":
			w.ID = asString(v)
		case "name":
			w.Name = asString(v)
		default:
			w.Extra[k] = v
		}
	}
	return nil
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// JSON numbers arrive as float64; ids are integral in practice.
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// MatchResult is the normalized recognition outcome. MatchFound implies a
// non-nil Worker.
type MatchResult struct {
	MatchFound bool
	Worker     *Worker
	Err        string
}

// Client posts captured photos to the recognition endpoint. Identify never
// returns an error: transport failures, bad statuses, and unparseable bodies
// all collapse into the MatchResult.
type Client struct {
	sess     *session.Session
	preparer *media.Preparer
	http     *http.Client

	mu   sync.Mutex
	last *Worker
}

// New builds a recognition client around the shared session.
func New(sess *session.Session, preparer *media.Preparer) *Client {
	return &Client{
		sess:     sess,
		preparer: preparer,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Identify uploads the photo at imageURI and normalizes the response. On a
// match the worker record is also cached for LastMatch.
func (c *Client) Identify(ctx context.Context, imageURI string) MatchResult {
	res := c.identify(ctx, imageURI)

	outcome := "error"
	if res.Err == "" {
		outcome = "no_match"
		if res.MatchFound {
			outcome = "match"
		}
	}
	metrics.FaceMatches.WithLabelValues(outcome).Inc()

	if res.MatchFound && res.Worker != nil {
		c.mu.Lock()
		c.last = res.Worker
		c.mu.Unlock()
	}
	return res
}

// LastMatch returns the most recent matched worker, nil before any match.
func (c *Client) LastMatch() *Worker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func (c *Client) identify(ctx context.Context, imageURI string) MatchResult {
	base, err := c.sess.BackendURL()
	if err != nil {
		return MatchResult{Err: err.Error()}
	}

	prepared := c.preparer.Prepare(imageURI)
	body, contentType, err := imageBody(prepared)
	if err != nil {
		return MatchResult{Err: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+endpointCheckFace+"/", body)
	if err != nil {
		return MatchResult{Err: err.Error()}
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.BackendDuration.WithLabelValues(endpointCheckFace).Observe(time.Since(start).Seconds())
	if err != nil {
		return MatchResult{Err: err.Error()}
	}
	defer resp.Body.Close()

	// Lenient body policy, same as the submitter: empty or unparseable
	// bodies degrade to an empty envelope.
	raw, _ := io.ReadAll(resp.Body)
	var env struct {
		MatchFound bool    `json:"matchFound"`
		Worker     *Worker `json:"matched_worker"`
		Error      string  `json:"error"`
		ErrorType  string  `json:"error_type"`
	}
	_ = json.Unmarshal(raw, &env)

	if resp.StatusCode >= 300 {
		detail := env.Error
		if detail == "" && env.ErrorType != "" {
			detail = env.ErrorType
		}
		if detail == "" {
			detail = strings.TrimSpace(string(raw))
		}
		if detail == "" {
			detail = "recognition failed: " + resp.Status
		}
		return MatchResult{Err: detail}
	}

	if !env.MatchFound || env.Worker == nil {
		return MatchResult{Err: env.Error}
	}
	return MatchResult{MatchFound: true, Worker: env.Worker}
}

// imageBody builds the single-field multipart upload the recognition
// endpoint expects.
func imageBody(uri string) (*bytes.Buffer, string, error) {
	f, err := os.Open(strings.TrimPrefix(uri, "file://"))
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	filename := media.FileName(uri)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	h.Set("Content-Type", media.MIMEType(filename))
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
