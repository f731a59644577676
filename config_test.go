package posixmq_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gopkg.in/yaml.v2"

	"github.com/aprilabank/posixmq"
)

func TestQueueConfigYAML(t *testing.T) {
	const raw = `
queue:
  name: /test-queue
  maxMessages: 5
  maxMessageSize: 1024
  nonBlocking: true
  create: true
  exclusive: true
  logger: nop
`
	var data struct {
		Queue posixmq.QueueConfig `yaml:"queue"`
	}
	if err := yaml.Unmarshal([]byte(raw), &data); err != nil {
		t.Fatalf("Failed to parse yaml: %v", err)
	}

	want := posixmq.QueueConfig{
		Name:           "/test-queue",
		MaxMessages:    5,
		MaxMessageSize: 1024,
		NonBlocking:    true,
		Create:         true,
		Exclusive:      true,
	}
	if diff := cmp.Diff(
		want,
		data.Queue,
		cmpopts.IgnoreFields(posixmq.QueueConfig{}, "Logger"),
	); diff != "" {
		t.Errorf("Parsed config mismatch (-want +got):\n%s", diff)
	}
	if data.Queue.Logger == nil {
		t.Error("Expected the logger to be deserialized into a non-nil wrapper")
	}
}

func TestOpenConfigInvalidName(t *testing.T) {
	_, err := posixmq.OpenConfig(posixmq.QueueConfig{Name: "no-slash"})
	if !errors.As(err, new(*posixmq.InvalidNameError)) {
		t.Errorf("OpenConfig with an invalid name returned %v, want InvalidNameError", err)
	}
}
