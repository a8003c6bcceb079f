package models

import (
	"testing"
	"time"
)

func TestDaysSinceLastUse(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		module CapabilityModule
		want   int
	}{
		{
			name:   "used ten days ago",
			module: CapabilityModule{LastUsedAt: now.AddDate(0, 0, -10)},
			want:   10,
		},
		{
			name:   "never used falls back to creation",
			module: CapabilityModule{CreatedAt: now.AddDate(0, 0, -3)},
			want:   3,
		},
		{
			name:   "used just now",
			module: CapabilityModule{LastUsedAt: now},
			want:   0,
		},
		{
			name:   "future timestamp clamps to zero",
			module: CapabilityModule{LastUsedAt: now.Add(time.Hour)},
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.module.DaysSinceLastUse(now); got != tt.want {
				t.Errorf("expected %d days, got %d", tt.want, got)
			}
		})
	}
}

func TestProvidesAll(t *testing.T) {
	m := &CapabilityModule{Capabilities: []string{"parse-json", "parse-yaml"}}

	if !m.ProvidesAll([]string{"parse-json"}) {
		t.Error("expected subset to be covered")
	}
	if !m.ProvidesAll([]string{"parse-json", "parse-yaml"}) {
		t.Error("expected full set to be covered")
	}
	if m.ProvidesAll([]string{"parse-json", "parse-toml"}) {
		t.Error("expected missing capability to fail coverage")
	}
	if m.ProvidesAll(nil) {
		t.Error("expected empty want set to never match")
	}
}
