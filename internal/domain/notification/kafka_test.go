package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  KafkaConfig
		ok   bool
	}{
		{"no brokers", KafkaConfig{Topic: "pv.notifications"}, false},
		{"blank brokers", KafkaConfig{Brokers: []string{" ", ""}, Topic: "pv.notifications"}, false},
		{"no topic", KafkaConfig{Brokers: []string{"localhost:9092"}}, false},
		{"valid", KafkaConfig{Brokers: []string{" localhost:9092 "}, Topic: "pv.notifications"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewKafkaPublisher(tt.cfg)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatal("expected error")
			}
			if p != nil {
				_ = p.Close()
			}
		})
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, topic: "pv.notifications"}
	n := &Notification{
		ID:           uuid.New(),
		Type:         TypeClosure,
		ReportID:     "r-3",
		ReportOrigin: "family",
		CreatedAt:    time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC),
	}

	if err := p.Publish(context.Background(), n); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "family:r-3" {
		t.Errorf("unexpected key %q", msg.Key)
	}
	var decoded Notification
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.ID != n.ID || decoded.Type != TypeClosure {
		t.Errorf("unexpected payload %+v", decoded)
	}

	if err := p.Close(); err != nil || !w.closed {
		t.Error("expected writer closed")
	}
}

func TestKafkaPublisher_Nil(t *testing.T) {
	var p *KafkaPublisher
	if err := p.Publish(context.Background(), &Notification{}); err == nil {
		t.Error("expected error from nil publisher")
	}
	if err := p.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
}

func TestNewKafkaPublisher_Async(t *testing.T) {
	p, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "pv.notifications", Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Close()

	w, ok := p.writer.(*kafka.Writer)
	if !ok {
		t.Fatalf("expected *kafka.Writer, got %T", p.writer)
	}
	if !w.Async || w.Completion == nil {
		t.Error("expected an async writer with a completion callback")
	}
}

func TestLogDeliveryFailures(t *testing.T) {
	var buf bytes.Buffer
	done := logDeliveryFailures(zerolog.New(&buf))

	done([]kafka.Message{{Key: []byte("hcp:r-1")}}, nil)
	if buf.Len() != 0 {
		t.Fatalf("expected no log for a delivered batch, got %q", buf.String())
	}

	done([]kafka.Message{{Key: []byte("hcp:r-1")}, {Key: []byte("patient:r-2")}}, errors.New("broker unreachable"))
	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected one JSON log line, got %q", buf.String())
	}
	if line["level"] != "warn" || line["error"] != "broker unreachable" {
		t.Errorf("unexpected log line %v", line)
	}
	keys, _ := line["keys"].([]interface{})
	if len(keys) != 2 || keys[1] != "patient:r-2" {
		t.Errorf("expected both keys logged, got %v", line["keys"])
	}
}
