// Package attend implements the attendance-submission pipeline: it gathers
// proof of presence, prepares the captured photo, assembles the multipart
// submission, and normalizes whatever the backend sends back into a Result.
package attend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/google/uuid"

	"sitesync/internal/media"
	"sitesync/internal/metrics"
	"sitesync/internal/probe"
	"sitesync/internal/session"
)

// EndpointAttendance is the attendance submission endpoint, joined to the
// backend origin resolved at call time.
const EndpointAttendance = "attendance"

// SubjectUnknown is the sentinel subject name used when the backend reports
// none.
const SubjectUnknown = "unknown"

// Message keys consumed by the caller's localization layer.
const (
	msgTimeAndLocation  = "errors.TimeAndLocationError"
	msgCheckinConfirmed = "ui.checkinConfirmed"
	msgCheckoutConfirm  = "ui.checkoutConfirmed"
)

// errCodeAwaitingSupervisor is the discriminated error code the backend
// returns for a submission parked on supervisor approval.
const errCodeAwaitingSupervisor = "awaiting_supervisor_permission"

const photoField = "attendance_photo"

// Media references a captured photo. An empty URI means no photo part is
// attached.
type Media struct {
	URI string
}

// Subject identifies who is being checked in or out. Unauthorized captures
// carry no subject id; they are still submitted for audit.
type Subject struct {
	ID           string
	Unauthorized bool
}

// Result is the normalized outcome of one submission. Message is either a
// dotted localization key or a raw transport error string; failed results
// still carry a usable Message.
type Result struct {
	Success      bool
	Message      string
	AttendanceID *int64
	SubjectName  string

	// AwaitingSupervisor marks a submission parked on supervisor approval,
	// resolved by a subsequent record mutation against AttendanceID.
	AwaitingSupervisor bool
}

// Submitter is the orchestration core. Submit never returns an error or
// panics: every path, including transport failure and malformed responses,
// terminates in a Result.
type Submitter struct {
	sess     *session.Session
	probe    *probe.Probe
	preparer *media.Preparer
	client   *http.Client
}

// New builds a submitter around the shared session.
func New(sess *session.Session, p *probe.Probe, preparer *media.Preparer) *Submitter {
	return &Submitter{
		sess:     sess,
		probe:    p,
		preparer: preparer,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// CheckIn submits a check-in for the matched (or unauthorized) subject.
func (s *Submitter) CheckIn(ctx context.Context, m Media, subj Subject) Result {
	return s.Submit(ctx, EndpointAttendance, m, true, subjectFields(subj))
}

// CheckOut submits a check-out with the task-verification flags. An
// incomplete checkout is derived, not caller-supplied: it is the negation of
// work completion.
func (s *Submitter) CheckOut(ctx context.Context, m Media, subj Subject, workCompleted, equipmentReturned bool) Result {
	extra := subjectFields(subj)
	extra["attendance_is_work_completed"] = workCompleted
	extra["attendance_is_incomplete_checkout"] = !workCompleted
	extra["attendance_equipment_returned"] = equipmentReturned
	return s.Submit(ctx, EndpointAttendance, m, false, extra)
}

// SpecialReEntry submits a supervisor-mediated re-entry for a previously
// flagged subject. It is a check-in on the wire.
func (s *Submitter) SpecialReEntry(ctx context.Context, m Media, subjectID string, approved bool) Result {
	return s.Submit(ctx, EndpointAttendance, m, true, Fields{
		"attendance_subject_id":                subjectID,
		"attendance_is_special_re_entry":       true,
		"attendance_is_approved_by_supervisor": approved,
		"attendance_is_entry_permitted":        approved,
	})
}

func subjectFields(subj Subject) Fields {
	f := Fields{"attendance_is_unauthorized": subj.Unauthorized}
	if !subj.Unauthorized && subj.ID != "" {
		f["attendance_subject_id"] = subj.ID
	}
	return f
}

// Submit runs the full pipeline against {origin}{endpoint}/. The backend
// origin is read from the session at call time, never cached, so a
// mid-session swap takes effect on the next call.
func (s *Submitter) Submit(ctx context.Context, endpoint string, m Media, isCheckIn bool, extra Fields) Result {
	direction := "checkout"
	if isCheckIn {
		direction = "checkin"
	}
	res := s.submit(ctx, endpoint, m, isCheckIn, extra)

	outcome := "failure"
	if res.Success {
		outcome = "success"
	}
	metrics.Submissions.WithLabelValues(direction, outcome).Inc()
	return res
}

func (s *Submitter) submit(ctx context.Context, endpoint string, m Media, isCheckIn bool, extra Fields) Result {
	pop := s.probe.Acquire(ctx)
	if pop == nil {
		// No network call is made without proof of presence.
		return Result{Message: msgTimeAndLocation, SubjectName: SubjectUnknown}
	}

	base, err := s.sess.BackendURL()
	if err != nil {
		return Result{Message: err.Error(), SubjectName: SubjectUnknown}
	}

	body, contentType, err := s.buildBody(pop, m, isCheckIn, extra)
	if err != nil {
		return Result{Message: err.Error(), SubjectName: SubjectUnknown}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+endpoint+"/", body)
	if err != nil {
		return Result{Message: err.Error(), SubjectName: SubjectUnknown}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token := s.sess.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	metrics.BackendDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		return Result{Message: err.Error(), SubjectName: SubjectUnknown}
	}
	defer resp.Body.Close()

	// Lenient body handling: read as bytes, then try JSON. A decode failure
	// degrades to an empty envelope so field access below yields zero values
	// instead of failing the submission.
	raw, _ := io.ReadAll(resp.Body)
	var env struct {
		AttendanceID *int64 `json:"attendance_id"`
		SubjectName  string `json:"subject_name"`
		ErrorType    string `json:"error_type"`
	}
	_ = json.Unmarshal(raw, &env)

	// attendance_id and subject_name are extracted regardless of status: a
	// failed request may still carry a partial body worth surfacing.
	subjectName := env.SubjectName
	if subjectName == "" {
		subjectName = SubjectUnknown
	}

	if resp.StatusCode >= 300 {
		errType := env.ErrorType
		if errType == "" {
			errType = "serverError"
		}
		return Result{
			Message:            "errors." + errType,
			AttendanceID:       env.AttendanceID,
			SubjectName:        subjectName,
			AwaitingSupervisor: env.ErrorType == errCodeAwaitingSupervisor,
		}
	}

	msg := msgCheckoutConfirm
	if isCheckIn {
		msg = msgCheckinConfirmed
	}
	return Result{
		Success:      true,
		Message:      msg,
		AttendanceID: env.AttendanceID,
		SubjectName:  subjectName,
	}
}

// buildBody assembles the multipart form: the required proof-of-presence and
// identity fields, the sparse extras, and the photo part when media carries
// an image reference.
func (s *Submitter) buildBody(pop *probe.ProofOfPresence, m Media, isCheckIn bool, extra Fields) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	location, _ := json.Marshal(pop.Location)

	required := map[string]string{
		"attendance_monitor_id":          s.sess.UserID(),
		"attendance_project_id":          s.sess.ProjectID(),
		"attendance_timestamp":           pop.Timestamp,
		"attendance_location":            string(location),
		"attendance_device_model":        pop.Device.Model,
		"attendance_device_brand":        pop.Device.Brand,
		"attendance_device_manufacturer": pop.Device.Manufacturer,
		"attendance_is_check_in":         formBool(isCheckIn),
	}
	// Exactly one supervisor flag, named for the direction.
	if isCheckIn {
		required["attendance_is_supervisor_check_in"] = formBool(s.sess.IsSupervisor())
	} else {
		required["attendance_is_supervisor_check_out"] = formBool(s.sess.IsSupervisor())
	}

	for k, v := range required {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	for k, v := range extra {
		rendered, ok := formValue(v)
		if !ok {
			continue
		}
		if err := w.WriteField(k, rendered); err != nil {
			return nil, "", err
		}
	}

	if m.URI != "" {
		if err := s.attachPhoto(w, m.URI); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func (s *Submitter) attachPhoto(w *multipart.Writer, uri string) error {
	prepared := s.preparer.Prepare(uri)
	filename := media.FileName(prepared)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+photoField+`"; filename="`+filename+`"`)
	h.Set("Content-Type", media.MIMEType(filename))
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}

	f, err := openLocal(prepared)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(part, f)
	return err
}

func formBool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
