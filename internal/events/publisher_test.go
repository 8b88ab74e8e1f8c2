package events

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/praxisfinder/therapy-platform/pkg/logging"
)

func TestLogPublisherHandle(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, "info")
	p := NewLogPublisher(logger)

	entry := OutboxEntry{
		ID:        uuid.New(),
		Type:      EventTypeMatchSummaryComputed,
		Payload:   []byte(`{"patient_id":"p1"}`),
		CreatedAt: time.Now().UTC(),
	}
	if err := p.Handle(context.Background(), entry); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if !strings.Contains(buf.String(), EventTypeMatchSummaryComputed) {
		t.Fatalf("expected event type in log output, got %s", buf.String())
	}
}

func TestSQSPublisherRequiresConfig(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on nil client")
		}
	}()
	NewSQSPublisher(nil, "https://sqs.example/queue")
}
