// Package record covers supervisor actions against previously created
// attendance records: approving or discarding a pending record, and listing
// pending special re-entries.
package record

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"sitesync/internal/metrics"
	"sitesync/internal/session"
)

const (
	endpointHandle    = "handle_attendance"
	endpointReEntries = "get_special_re_entries"
)

// Type distinguishes which record kind a mutation targets.
type Type string

const (
	TypeCheckIn  Type = "checkin"
	TypeCheckOut Type = "checkout"
)

// Action is what to do with the record.
type Action string

const (
	ActionApprove Action = "approve"
	ActionDelete  Action = "delete"
)

// Mutator sends approve/delete actions for pending attendance records.
type Mutator struct {
	sess *session.Session
	http *http.Client
}

// New builds a mutator around the shared session.
func New(sess *session.Session) *Mutator {
	return &Mutator{
		sess: sess,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// Mutate approves (POST) or discards (DELETE) the record. Detailed error
// information is deliberately dropped: the caller gets a bool it can branch
// on, nothing else.
func (m *Mutator) Mutate(ctx context.Context, attendanceID int64, recordType Type, action Action) bool {
	ok := m.mutate(ctx, attendanceID, recordType, action)

	outcome := "failure"
	if ok {
		outcome = "success"
	}
	metrics.RecordMutations.WithLabelValues(string(action), outcome).Inc()
	return ok
}

func (m *Mutator) mutate(ctx context.Context, attendanceID int64, recordType Type, action Action) bool {
	base, err := m.sess.BackendURL()
	if err != nil {
		return false
	}

	method := http.MethodPost
	if action == ActionDelete {
		method = http.MethodDelete
	}

	body, _ := json.Marshal(map[string]any{
		"id":   attendanceID,
		"type": recordType,
	})
	req, err := http.NewRequestWithContext(ctx, method, base+endpointHandle+"/", bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode < 300
}

// ReEntry is a pending special re-entry awaiting a supervisor decision.
type ReEntry struct {
	Subject struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"subject"`
}

// PendingReEntries lists the special re-entries pending for a project.
func (m *Mutator) PendingReEntries(ctx context.Context, projectID string) ([]ReEntry, error) {
	base, err := m.sess.BackendURL()
	if err != nil {
		return nil, err
	}

	reqURL := base + endpointReEntries + "?project_id=" + url.QueryEscape(projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("re-entry listing failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		var env struct {
			ErrorType string `json:"error_type"`
		}
		_ = json.Unmarshal(raw, &env)
		if env.ErrorType != "" {
			return nil, fmt.Errorf("errors.%s", env.ErrorType)
		}
		return nil, fmt.Errorf("re-entry listing error: %s", resp.Status)
	}

	var out struct {
		Entries []ReEntry `json:"special_re_entries"`
	}
	_ = json.Unmarshal(raw, &out)
	return out.Entries, nil
}
