package decode

import "testing"

func TestIsStored(t *testing.T) {
	tests := []struct {
		method byte
		want   bool
	}{
		{0x30, true},
		{0x31, false},
		{0x35, false},
	}
	for _, tt := range tests {
		if got := IsStored(tt.method); got != tt.want {
			t.Errorf("IsStored(0x%02x) = %v, want %v", tt.method, got, tt.want)
		}
	}
}
