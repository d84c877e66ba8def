package main

import "testing"

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    LogLevel
		wantErr bool
	}{
		{"silent", LogLevelSilent, false},
		{"normal", LogLevelNormal, false},
		{"VERBOSE", LogLevelVerbose, false},
		{"Debug", LogLevelDebug, false},
		{"loud", LogLevelNormal, true},
		{"", LogLevelNormal, true},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level LogLevel
		want  string
	}{
		{LogLevelSilent, "silent"},
		{LogLevelNormal, "normal"},
		{LogLevelVerbose, "verbose"},
		{LogLevelDebug, "debug"},
		{LogLevel(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestLoggerLevels(t *testing.T) {
	l := NewLogger(LogLevelSilent)
	if l.GetLevel() != LogLevelSilent {
		t.Errorf("GetLevel() = %v, want silent", l.GetLevel())
	}

	// Calls below the level must be safe no-ops.
	l.Info("hidden")
	l.Verbose("hidden")
	l.Debug("hidden")
}
