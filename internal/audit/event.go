package audit

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// Kind names what happened to a dataset.
type Kind string

const (
	KindUpload Kind = "dataset.upload"
	KindPlan   Kind = "dataset.plan"
)

// UploadDetail describes an accepted usage file.
type UploadDetail struct {
	Source        string  `json:"source"`
	Records       int     `json:"records"`
	TotalUnitsKWh float64 `json:"total_units_kwh"`
}

// PlanDetail describes one optimization run against a dataset.
type PlanDetail struct {
	TargetReduction     float64 `json:"target_reduction"`
	TimeHorizonDays     int     `json:"time_horizon_days"`
	RequiredKWh         float64 `json:"required_kwh"`
	PlannedKWh          float64 `json:"planned_kwh"`
	TargetAchievable    bool    `json:"target_achievable"`
	RecommendationCount int     `json:"recommendation_count"`
}

// Caller identifies who triggered an event.
type Caller struct {
	Subject   string
	Role      string
	Addr      string
	UserAgent string
}

// Event is one journal line about a tenant dataset.
type Event struct {
	ID         string
	TenantID   string
	DatasetID  string
	Kind       Kind
	Caller     Caller
	Detail     json.RawMessage
	Digest     string
	RecordedAt time.Time
}

// Recorder persists dataset events.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// UploadEvent builds the event for a stored upload.
func UploadEvent(tenantID, datasetID string, caller Caller, detail UploadDetail) (Event, error) {
	return newEvent(tenantID, datasetID, KindUpload, caller, detail)
}

// PlanEvent builds the event for an optimization run.
func PlanEvent(tenantID, datasetID string, caller Caller, detail PlanDetail) (Event, error) {
	return newEvent(tenantID, datasetID, KindPlan, caller, detail)
}

func newEvent(tenantID, datasetID string, kind Kind, caller Caller, detail any) (Event, error) {
	if tenantID == "" || datasetID == "" {
		return Event{}, fmt.Errorf("audit: %s event needs tenant and dataset", kind)
	}
	raw, err := json.Marshal(detail)
	if err != nil {
		return Event{}, fmt.Errorf("audit: encoding %s detail: %w", kind, err)
	}
	return Event{
		TenantID:  tenantID,
		DatasetID: datasetID,
		Kind:      kind,
		Caller:    caller,
		Detail:    raw,
		Digest:    digest(raw),
	}, nil
}

// stamp fills the id, time and digest a store needs.
func (e Event) stamp(now time.Time) Event {
	if e.ID == "" {
		e.ID = newEventID()
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = now.UTC()
	}
	if e.Digest == "" {
		e.Digest = digest(e.Detail)
	}
	return e
}

func newEventID() string {
	buf := make([]byte, 12)
	_, _ = rand.Read(buf)
	return "evt-" + hex.EncodeToString(buf)
}

func digest(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CallerFrom reads the client address and agent from a request.
// The first X-Forwarded-For hop wins, then X-Real-IP, then the socket peer.
func CallerFrom(r *http.Request, subject, role string) Caller {
	c := Caller{Subject: subject, Role: role}
	if r == nil {
		return c
	}
	c.UserAgent = r.UserAgent()
	for _, header := range []string{"X-Forwarded-For", "X-Real-IP"} {
		if v := r.Header.Get(header); v != "" {
			hop, _, _ := strings.Cut(v, ",")
			c.Addr = strings.TrimSpace(hop)
			return c
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		c.Addr = host
	} else {
		c.Addr = r.RemoteAddr
	}
	return c
}
