package sanitize

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"plain", "  Acme Corp ", 0, "Acme Corp"},
		{"script removed", `<script>alert(1)</script>Hello`, 0, "Hello"},
		{"tags removed", `<b>We need</b> <a href="x">SLA</a>`, 0, "We need SLA"},
		{"capped", "abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.in, tt.max); got != tt.want {
				t.Fatalf("Text(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEmail(t *testing.T) {
	if got := Email("  Jane@Example.COM "); got != "jane@example.com" {
		t.Fatalf("Email() = %q", got)
	}
}

func TestTextKeepsAmpersands(t *testing.T) {
	if got := Text("Tom & Jerry's", 0); got != "Tom & Jerry's" {
		t.Fatalf("Text() = %q", got)
	}
}
