package interfaces

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"text/template"
	"time"

	"energy-optimizer/internal/optimization/application"
)

// DefaultNotifyTemplate renders an optimization summary as chat text.
const DefaultNotifyTemplate = `[Energy plan {{.Status}}]
Tenant: {{.TenantID}}
Dataset: {{.DatasetID}}
Target: {{.TargetPercent}} over {{.TimeHorizonDays}} days
Baseline: {{.BaselineKWh}} kWh
Planned reduction: {{.PlannedReductionKWh}} kWh
Estimated savings: {{.EstimatedSavingsCost}}
{{ if .TopLever }}Top lever: {{.TopLever}}
{{ end }}{{ if .ShortfallKWh }}Shortfall: {{.ShortfallKWh}} kWh
{{ end }}`

// NotifyData provides fields for rendering notification content.
type NotifyData struct {
	TenantID             string
	DatasetID            string
	Status               string
	TargetPercent        string
	TimeHorizonDays      int
	BaselineKWh          string
	PlannedReductionKWh  string
	ShortfallKWh         string
	EstimatedSavingsCost string
	TopLever             string
	GeneratedAt          string
}

// Template renders notification content.
type Template struct {
	tpl *template.Template
}

// NewTemplate parses a notification template, falling back to DefaultNotifyTemplate.
func NewTemplate(tpl string) (*Template, error) {
	if tpl == "" {
		tpl = DefaultNotifyTemplate
	}
	parsed, err := template.New("optimization-notification").Parse(tpl)
	if err != nil {
		return nil, err
	}
	return &Template{tpl: parsed}, nil
}

// Render applies the template to a summary.
func (t *Template) Render(summary application.OptimizationSummary) (string, error) {
	if t == nil || t.tpl == nil {
		return "", errors.New("notify template: nil")
	}
	var buf bytes.Buffer
	if err := t.tpl.Execute(&buf, notifyData(summary)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func notifyData(summary application.OptimizationSummary) NotifyData {
	status := "achievable"
	shortfall := ""
	if !summary.TargetAchievable {
		status = "shortfall"
		shortfall = fmt.Sprintf("%.2f", summary.ShortfallKWh)
	}
	return NotifyData{
		TenantID:             summary.TenantID,
		DatasetID:            summary.DatasetID,
		Status:               status,
		TargetPercent:        fmt.Sprintf("%.0f%%", summary.TargetFraction*100),
		TimeHorizonDays:      summary.TimeHorizonDays,
		BaselineKWh:          fmt.Sprintf("%.2f", summary.BaselineKWh),
		PlannedReductionKWh:  fmt.Sprintf("%.2f", summary.PlannedReductionKWh),
		ShortfallKWh:         shortfall,
		EstimatedSavingsCost: fmt.Sprintf("%.2f", summary.EstimatedSavingsCost),
		TopLever:             summary.TopLever,
		GeneratedAt:          summary.GeneratedAt.UTC().Format(time.RFC3339),
	}
}

type webhookPayload struct {
	MsgType string      `json:"msgtype"`
	Text    webhookText `json:"text"`
}

type webhookText struct {
	Content string `json:"content"`
}

// WebhookPublisher posts rendered summaries to a chat webhook.
type WebhookPublisher struct {
	url      string
	client   *http.Client
	template *Template
}

// WebhookOption configures the webhook publisher.
type WebhookOption func(*WebhookPublisher)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(p *WebhookPublisher) {
		if client != nil {
			p.client = client
		}
	}
}

// WithTemplate overrides the default message template.
func WithTemplate(tpl *Template) WebhookOption {
	return func(p *WebhookPublisher) {
		if tpl != nil {
			p.template = tpl
		}
	}
}

// NewWebhookPublisher constructs a webhook publisher.
func NewWebhookPublisher(url string, opts ...WebhookOption) (*WebhookPublisher, error) {
	if url == "" {
		return nil, errors.New("webhook publisher: empty url")
	}
	tpl, err := NewTemplate("")
	if err != nil {
		return nil, err
	}
	p := &WebhookPublisher{
		url:      url,
		client:   &http.Client{Timeout: 10 * time.Second},
		template: tpl,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// PublishOptimization posts a DingTalk/WeCom-compatible text payload.
func (p *WebhookPublisher) PublishOptimization(ctx context.Context, summary application.OptimizationSummary) error {
	if p == nil || p.url == "" {
		return errors.New("webhook publisher: empty url")
	}
	content, err := p.template.Render(summary)
	if err != nil {
		return err
	}
	body, err := json.Marshal(webhookPayload{MsgType: "text", Text: webhookText{Content: content}})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook publisher: non-2xx response %d", resp.StatusCode)
	}
	return nil
}

// MultiPublisher fans a summary out to several publishers.
type MultiPublisher struct {
	publishers []application.ResultPublisher
}

// NewMultiPublisher constructs a MultiPublisher; nil entries are skipped.
func NewMultiPublisher(publishers ...application.ResultPublisher) *MultiPublisher {
	out := make([]application.ResultPublisher, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			out = append(out, p)
		}
	}
	return &MultiPublisher{publishers: out}
}

// PublishOptimization forwards to every publisher and joins their errors.
func (m *MultiPublisher) PublishOptimization(ctx context.Context, summary application.OptimizationSummary) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, p := range m.publishers {
		if err := p.PublishOptimization(ctx, summary); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
