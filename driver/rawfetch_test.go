package driver

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsProtocolError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"h2 stream error", errors.New(`stream error: stream ID 1; PROTOCOL_ERROR`), true},
		{"http2 frame error", errors.New("http2: frame too large"), true},
		{"malformed response", errors.New(`net/http: HTTP/1.x transport connection broken: malformed HTTP response "\x00\x00\x12\x04"`), true},
		{"tls handshake failure", errors.New("remote error: tls: handshake failure"), true},
		{"oversized record", errors.New("tls: oversized record received with length 20527"), true},
		{"unexpected eof", errors.New("unexpected EOF"), true},
		{"plain refused", errors.New("dial tcp 10.0.0.1:443: connect: connection refused"), false},
		{"dns failure", errors.New("dial tcp: lookup nosuchhost: no such host"), false},
		{"deadline", context.DeadlineExceeded, false},
		{"canceled", context.Canceled, false},
		{"wrapped deadline", fmt.Errorf("rawfetch: %w", context.DeadlineExceeded), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsProtocolError(tt.err); got != tt.want {
				t.Errorf("IsProtocolError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestDefaultEngines_DistinctIdentities(t *testing.T) {
	engines := DefaultEngines()
	if len(engines) < 2 {
		t.Fatalf("expected at least 2 engines, got %d", len(engines))
	}
	seen := make(map[string]bool)
	for _, e := range engines {
		if e.ID == "" || e.UserAgent == "" {
			t.Errorf("engine %+v missing identity fields", e)
		}
		if seen[e.ID] {
			t.Errorf("duplicate engine id %q", e.ID)
		}
		seen[e.ID] = true
	}
}

func TestProfileFor(t *testing.T) {
	spec := DefaultEngines()[0]

	plain := ProfileFor(spec, false)
	if plain.Stealth {
		t.Error("plain profile should not be stealth")
	}
	if plain.UserAgent != spec.UserAgent {
		t.Errorf("profile UA = %q, want engine UA %q", plain.UserAgent, spec.UserAgent)
	}

	st := ProfileFor(spec, true)
	if !st.Stealth {
		t.Error("stealth profile should set Stealth")
	}
}
