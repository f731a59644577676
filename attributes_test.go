package posixmq_test

import (
	"testing"

	"github.com/aprilabank/posixmq"
)

func TestDefaultAttributes(t *testing.T) {
	attrs := posixmq.DefaultAttributes()
	if attrs.MaxMessages <= 0 || attrs.MaxMessageSize <= 0 {
		t.Errorf("DefaultAttributes returned non-positive limits: %+v", attrs)
	}
	if attrs.NonBlocking {
		t.Error("DefaultAttributes requested non-blocking mode")
	}
}
