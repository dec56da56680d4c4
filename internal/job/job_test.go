package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveInterval(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		want     time.Duration
	}{
		{"positive", 5 * time.Second, 5 * time.Second},
		{"zero falls back", 0, DefaultInterval},
		{"negative falls back", -time.Second, DefaultInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Descriptor{Interval: tt.interval}
			assert.Equal(t, tt.want, d.EffectiveInterval())
		})
	}
}

func TestDescriptorValidate(t *testing.T) {
	tests := []struct {
		name    string
		desc    Descriptor
		wantErr bool
	}{
		{"http ok", Descriptor{Kind: KindHTTP, Domain: "svc.lan", Candidates: []string{"10.0.0.1", "10.0.0.2"}}, false},
		{"static ok", Descriptor{Kind: KindStatic, Domain: "svc.lan", Candidates: []string{"10.0.0.1"}}, false},
		{"empty domain", Descriptor{Kind: KindPing, Candidates: []string{"10.0.0.1"}}, true},
		{"no candidates", Descriptor{Kind: KindPing, Domain: "svc.lan"}, true},
		{"static with two answers", Descriptor{Kind: KindStatic, Domain: "svc.lan", Candidates: []string{"1.1.1.1", "2.2.2.2"}}, true},
		{"unknown kind", Descriptor{Kind: "dns", Domain: "svc.lan", Candidates: []string{"1.1.1.1"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDescriptorString(t *testing.T) {
	d := Descriptor{Kind: KindHTTP, Domain: "svc.lan", Candidates: []string{"10.0.0.1", "10.0.0.2"}, Interval: 30 * time.Second}
	assert.Equal(t, "[http] svc.lan -> 10.0.0.1, 10.0.0.2 (30s)", d.String())
	assert.Equal(t, "10.0.0.1", d.Primary())

	d.Cron = "@every 1m"
	assert.Contains(t, d.String(), "cron(@every 1m)")
}
