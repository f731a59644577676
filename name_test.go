package posixmq_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/aprilabank/posixmq"
)

func TestNewNameInvalid(t *testing.T) {
	for _, c := range []struct {
		label string
		raw   string
	}{
		{label: "empty", raw: ""},
		{label: "no-leading-slash", raw: "queue"},
		{label: "bare-slash", raw: "/"},
		{label: "embedded-slash", raw: "/queue/sub"},
		{label: "trailing-slash", raw: "/queue/"},
		{label: "too-long", raw: "/" + strings.Repeat("a", 255)},
		{label: "nul-byte", raw: "/queue\x00"},
	} {
		t.Run(c.label, func(t *testing.T) {
			_, err := posixmq.NewName(c.raw)
			if !errors.As(err, new(*posixmq.InvalidNameError)) {
				t.Errorf("NewName(%q) returned %v, want InvalidNameError", c.raw, err)
			}
		})
	}
}

func TestNewNameValid(t *testing.T) {
	for _, raw := range []string{
		"/q",
		"/my-queue",
		"/events.high_priority",
		"/" + strings.Repeat("a", 254),
	} {
		t.Run(raw, func(t *testing.T) {
			name, err := posixmq.NewName(raw)
			if err != nil {
				t.Fatalf("NewName(%q) failed: %v", raw, err)
			}
			if name.String() != raw {
				t.Errorf("Name round-trip got %q, want %q", name.String(), raw)
			}
		})
	}
}
