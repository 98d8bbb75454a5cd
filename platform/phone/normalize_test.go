package phone

import "testing"

func TestFromWhatsAppID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "us digits", in: "14155552671", want: "+14155552671"},
		{name: "already e164", in: "+31612345678", want: "+31612345678"},
		{name: "garbage kept", in: "not-a-number", want: "not-a-number"},
		{name: "empty", in: "  ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromWhatsAppID(tt.in, "US"); got != tt.want {
				t.Fatalf("FromWhatsAppID(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestToWhatsAppID(t *testing.T) {
	if got := ToWhatsAppID("+14155552671"); got != "14155552671" {
		t.Fatalf("unexpected wa id %q", got)
	}
}
