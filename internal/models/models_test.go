package models

import "testing"

func TestStatus_Valid(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusFound, true},
		{StatusNotFound, true},
		{StatusUnknown, true},
		{StatusBlocked, true},
		{StatusError, true},
		{Status("bogus"), false},
		{Status(""), false},
	}

	for _, tt := range tests {
		if got := tt.status.Valid(); got != tt.want {
			t.Errorf("Status(%q).Valid() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestResolveUAProfile(t *testing.T) {
	t.Run("known profile", func(t *testing.T) {
		p := ResolveUAProfile("desktop_firefox")
		if p.Name != "desktop_firefox" {
			t.Errorf("Name = %q, want desktop_firefox", p.Name)
		}
	})

	t.Run("empty name defaults", func(t *testing.T) {
		p := ResolveUAProfile("")
		if p.Name != DefaultUAProfileName {
			t.Errorf("Name = %q, want %q", p.Name, DefaultUAProfileName)
		}
	})

	t.Run("unknown name defaults", func(t *testing.T) {
		p := ResolveUAProfile("netscape_navigator")
		if p.Name != DefaultUAProfileName {
			t.Errorf("Name = %q, want %q", p.Name, DefaultUAProfileName)
		}
	})
}

func TestProvider_EffectiveTimeout(t *testing.T) {
	t.Run("default when unset", func(t *testing.T) {
		p := Provider{}
		if got := p.EffectiveTimeout(); got.Seconds() != 10 {
			t.Errorf("EffectiveTimeout() = %v, want 10s", got)
		}
	})

	t.Run("configured value honored", func(t *testing.T) {
		p := Provider{TimeoutSeconds: 5}
		if got := p.EffectiveTimeout(); got.Seconds() != 5 {
			t.Errorf("EffectiveTimeout() = %v, want 5s", got)
		}
	})
}

func TestProvider_EffectiveMethod(t *testing.T) {
	if got := (Provider{}).EffectiveMethod(); got != "GET" {
		t.Errorf("EffectiveMethod() = %q, want GET", got)
	}
	if got := (Provider{Method: "POST"}).EffectiveMethod(); got != "POST" {
		t.Errorf("EffectiveMethod() = %q, want POST", got)
	}
}

func TestJob_FoundCount(t *testing.T) {
	j := &Job{
		Results: []Result{
			{Status: StatusFound},
			{Status: StatusNotFound},
			{Status: StatusFound},
			{Status: StatusError},
		},
	}
	if got := j.FoundCount(); got != 2 {
		t.Errorf("FoundCount() = %d, want 2", got)
	}
}

func TestJob_FailedCount(t *testing.T) {
	j := &Job{
		Results: []Result{
			{Status: StatusFound},
			{Status: StatusError},
			{Status: StatusBlocked},
			{Status: StatusNotFound},
		},
	}
	if got := j.FailedCount(); got != 2 {
		t.Errorf("FailedCount() = %d, want 2", got)
	}
}
