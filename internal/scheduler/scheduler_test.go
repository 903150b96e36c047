// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"errors"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/olegiv/oblog/internal/testutil"
)

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		spec    string
		wantErr bool
	}{
		{"* * * * *", false},
		{"*/5 * * * *", false},
		{"@hourly", false},
		{"@every 1m", false},
		{"", true},
		{"every minute", true},
		{"61 * * * *", true},
		{"@every nope", true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			err := ValidateSchedule(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSchedule(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
		})
	}
}

func TestAddJob(t *testing.T) {
	s := New(testutil.TestLoggerSilent())

	if err := s.AddJob("refresh", "@every 1m", func() {}); err != nil {
		t.Fatalf("AddJob() error = %v", err)
	}
	if err := s.AddJob("refresh", "@hourly", func() {}); !errors.Is(err, ErrDuplicateJob) {
		t.Errorf("duplicate AddJob() error = %v, want ErrDuplicateJob", err)
	}
	if err := s.AddJob("bad", "not a schedule", func() {}); err == nil {
		t.Error("AddJob() with invalid schedule should fail")
	}

	if !slices.Equal(s.Jobs(), []string{"refresh"}) {
		t.Errorf("Jobs() = %v, want [refresh]", s.Jobs())
	}
}

func TestRunNow(t *testing.T) {
	s := New(testutil.TestLoggerSilent())
	var calls atomic.Int32
	if err := s.AddJob("count", "@hourly", func() { calls.Add(1) }); err != nil {
		t.Fatal(err)
	}

	if !s.RunNow("count") {
		t.Fatal("RunNow() = false for registered job")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
	if s.RunNow("missing") {
		t.Error("RunNow() = true for unknown job")
	}
}

func TestRunNowRecoversPanic(t *testing.T) {
	s := New(testutil.TestLoggerSilent())
	if err := s.AddJob("boom", "@hourly", func() { panic("boom") }); err != nil {
		t.Fatal(err)
	}

	// Must not propagate the panic
	s.RunNow("boom")
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(testutil.TestLoggerSilent())

	s.Start()
	s.Start()
	s.Stop()
	s.Stop()
}
