package util

import (
	"testing"
)

func TestFormatAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"1.2.3.4", 22, "1.2.3.4:22"},
		{"::1", 443, "[::1]:443"},
		{"example.com", 80, "example.com:80"},
	}
	for _, tt := range tests {
		if got := FormatAddr(tt.host, tt.port); got != tt.want {
			t.Errorf("FormatAddr(%q, %d) = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}

func TestCheckNumericHost(t *testing.T) {
	tests := []struct {
		host    string
		noDNS   bool
		wantErr bool
	}{
		{"127.0.0.1", true, false},
		{"::1", true, false},
		{"example.com", false, false},
		{"example.com", true, true},
	}
	for _, tt := range tests {
		err := CheckNumericHost(tt.host, tt.noDNS)
		if (err != nil) != tt.wantErr {
			t.Errorf("CheckNumericHost(%q, %v) err=%v wantErr=%v", tt.host, tt.noDNS, err, tt.wantErr)
		}
	}
}

func TestSplitAddr(t *testing.T) {
	host, port, err := SplitAddr("[::1]:8080")
	if err != nil {
		t.Fatal(err)
	}
	if host != "::1" || port != 8080 {
		t.Errorf("got (%q, %d)", host, port)
	}

	if _, _, err := SplitAddr("localhost:http"); err == nil {
		t.Error("expected error for non-numeric port")
	}
	if _, _, err := SplitAddr("no-port"); err == nil {
		t.Error("expected error for missing port")
	}
}
