// SPDX-License-Identifier: EPL-2.0

// Package config loads runtime settings from GROOVEDECK_* environment
// variables. Unset or unparsable variables fall back to the defaults.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Device session
	SampleRate int
	BlockSize  int

	MaxLoopSeconds float64

	LogLevel slog.Level

	// Control surface
	EventQueue  int
	ControlTick time.Duration
	MIDIInput   string // substring of the input port name, empty for none
}

func Load() Config {
	return Config{
		SampleRate:     envInt("GROOVEDECK_SAMPLE_RATE", 44100),
		BlockSize:      envInt("GROOVEDECK_BLOCK_SIZE", 512),
		MaxLoopSeconds: envFloat("GROOVEDECK_MAX_LOOP_SECONDS", 30),
		LogLevel:       envLevel("GROOVEDECK_LOG_LEVEL", slog.LevelInfo),
		EventQueue:     envInt("GROOVEDECK_EVENT_QUEUE", 64),
		ControlTick:    envDuration("GROOVEDECK_CONTROL_TICK", 10*time.Millisecond),
		MIDIInput:      envStr("GROOVEDECK_MIDI_INPUT", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envLevel accepts debug, info, warn and error in any case.
func envLevel(key string, fallback slog.Level) slog.Level {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return fallback
	}
	return level
}
