package interfaces

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/xuri/excelize/v2"

	"energy-optimizer/internal/optimization/application"
	optimization "energy-optimizer/internal/optimization/domain"
	usage "energy-optimizer/internal/usage/domain"
)

func sampleReport(t *testing.T) *application.OptimizationReport {
	t.Helper()
	ds, err := usage.NewDataset([]usage.Record{
		{Month: "Jan", UnitsKWh: 300, AvgDailyKWh: 10, PeakUsageHours: 6, Cost: 1950},
		{Month: "Feb", UnitsKWh: 400, AvgDailyKWh: 14.3, PeakUsageHours: 12, Cost: 2600},
		{Month: "Mar", UnitsKWh: 200, AvgDailyKWh: 6.5, PeakUsageHours: 6, Cost: 1300},
	})
	if err != nil {
		t.Fatalf("dataset: %v", err)
	}
	engine, err := optimization.NewEngine(optimization.DefaultPolicy())
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	result, err := engine.Optimize(ds, 0.15, 30)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	return &application.OptimizationReport{
		TenantID:    "tenant-a",
		DatasetID:   "ds-1",
		Source:      "usage.csv",
		GeneratedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		Result:      result,
	}
}

func TestBuildOptimizationCSV(t *testing.T) {
	data, err := BuildOptimizationCSV(sampleReport(t))
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "Metric,Value\n") {
		t.Fatalf("unexpected header: %q", text[:20])
	}
	for _, want := range []string{"Baseline (kWh),900.00", "Required reduction (kWh),135.00", "priority,lever,action", "1,peak_load,"} {
		if !strings.Contains(text, want) {
			t.Fatalf("csv missing %q:\n%s", want, text)
		}
	}
}

func TestBuildOptimizationPDF(t *testing.T) {
	data, err := BuildOptimizationPDF(sampleReport(t))
	if err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("expected pdf output")
	}
}

func TestBuildOptimizationXLSX(t *testing.T) {
	report := sampleReport(t)
	data, err := BuildOptimizationXLSX(report)
	if err != nil {
		t.Fatalf("xlsx: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "summary" || sheets[1] != "recommendations" {
		t.Fatalf("unexpected sheets: %v", sheets)
	}
	lever, err := f.GetCellValue("recommendations", "B2")
	if err != nil || lever != "peak_load" {
		t.Fatalf("expected peak_load in B2, got %q (%v)", lever, err)
	}
	rows, _ := f.GetRows("recommendations")
	if len(rows) != len(report.Result.Recommendations)+1 {
		t.Fatalf("expected %d rows, got %d", len(report.Result.Recommendations)+1, len(rows))
	}
}

func TestBuildExports_RejectNil(t *testing.T) {
	if _, err := BuildOptimizationCSV(nil); err == nil {
		t.Fatalf("expected csv error")
	}
	if _, err := BuildOptimizationPDF(nil); err == nil {
		t.Fatalf("expected pdf error")
	}
	if _, err := BuildOptimizationXLSX(nil); err == nil {
		t.Fatalf("expected xlsx error")
	}
}

type fakeToken struct {
	mqtt.Token
	err error
}

func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Error() error { return t.err }

type fakeClient struct {
	mqtt.Client
	topic   string
	qos     byte
	payload []byte
	err     error
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.topic = topic
	c.qos = qos
	c.payload = payload.([]byte)
	return fakeToken{err: c.err}
}

func TestMQTTPublisher_PublishOptimization(t *testing.T) {
	client := &fakeClient{}
	pub := newMQTTPublisher(client, "/home/energy/")

	summary := application.Summarize(sampleReport(t))
	if err := pub.PublishOptimization(context.Background(), summary); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if client.topic != "home/energy/optimization/tenant-a" {
		t.Fatalf("unexpected topic %q", client.topic)
	}
	if client.qos != 1 {
		t.Fatalf("expected qos 1, got %d", client.qos)
	}
	var decoded application.OptimizationSummary
	if err := json.Unmarshal(client.payload, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.DatasetID != "ds-1" || decoded.TopLever != "peak_load" {
		t.Fatalf("unexpected payload: %+v", decoded)
	}

	client.err = errors.New("not authorized")
	if err := pub.PublishOptimization(context.Background(), summary); err == nil {
		t.Fatalf("expected publish error")
	}
}

func TestMQTTPublisher_DefaultPrefix(t *testing.T) {
	pub := newMQTTPublisher(&fakeClient{}, "")
	if got := pub.Topic("default"); got != "energy_optimizer/optimization/default" {
		t.Fatalf("unexpected topic %q", got)
	}
	if _, err := NewMQTTPublisher(MQTTConfig{}); err == nil {
		t.Fatalf("expected error without broker")
	}
}

func TestLoggingPublisher(t *testing.T) {
	var buf bytes.Buffer
	pub := NewLoggingPublisher(log.New(&buf, "", 0))
	if err := pub.PublishOptimization(context.Background(), application.Summarize(sampleReport(t))); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !strings.Contains(buf.String(), `"dataset_id":"ds-1"`) {
		t.Fatalf("unexpected log line %q", buf.String())
	}
}
