package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/cuemby/nbsched/pkg/log"
	"github.com/cuemby/nbsched/pkg/types"
)

const (
	DefaultCPUShare      = "1.5"
	DefaultMemShare      = "5000Mi"
	DefaultParallelLimit = 2
)

// DefaultSettings returns the settings used when the file gives nothing better
func DefaultSettings() types.Settings {
	return types.Settings{
		CPUShare:      DefaultCPUShare,
		MemShare:      DefaultMemShare,
		ParallelLimit: DefaultParallelLimit,
	}
}

// settingsFields lists the fields in the order the front end writes them
var settingsFields = []string{"cpu", "memory", "parallel"}

// fieldForKey maps a key or one of its aliases to a field name
func fieldForKey(key string) (string, bool) {
	switch key {
	case "cpu", "cpu_share":
		return "cpu", true
	case "memory", "mem", "mem_share":
		return "memory", true
	case "parallel", "parallel_limit":
		return "parallel", true
	default:
		return "", false
	}
}

// ParseSettings reads key=value lines. A line with an unknown key is taken
// by its position among the entries (cpu, memory, parallel) unless a known
// key already set that field. Every problem falls back to the default for
// the affected field and is reported as a warning.
func ParseSettings(r io.Reader) (types.Settings, []string) {
	settings := DefaultSettings()
	var warnings []string
	explicit := make(map[string]bool)
	seen := make(map[string]bool)
	positional := make(map[string]string)
	positionalLine := make(map[string]int)

	set := func(field, value string, lineNo int) bool {
		switch field {
		case "cpu":
			if value == "" {
				warnings = append(warnings, fmt.Sprintf("line %d: empty cpu share", lineNo))
				return false
			}
			settings.CPUShare = value
		case "memory":
			if value == "" {
				warnings = append(warnings, fmt.Sprintf("line %d: empty memory share", lineNo))
				return false
			}
			settings.MemShare = value
		case "parallel":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				warnings = append(warnings, fmt.Sprintf("line %d: invalid parallel limit %q", lineNo, value))
				return false
			}
			settings.ParallelLimit = n
		}
		seen[field] = true
		return true
	}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	entry := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		position := entry
		entry++

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			warnings = append(warnings, fmt.Sprintf("line %d: expected key=value, got %q", lineNo, line))
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		if field, ok := fieldForKey(key); ok {
			if set(field, value, lineNo) {
				explicit[field] = true
			}
			continue
		}

		if position < len(settingsFields) {
			field := settingsFields[position]
			warnings = append(warnings, fmt.Sprintf("line %d: unknown key %q, reading it as %s by position", lineNo, key, field))
			positional[field] = value
			positionalLine[field] = lineNo
			continue
		}
		warnings = append(warnings, fmt.Sprintf("line %d: unknown key %q", lineNo, key))
	}
	if err := scanner.Err(); err != nil {
		warnings = append(warnings, fmt.Sprintf("read settings: %v", err))
	}

	for _, field := range settingsFields {
		if value, ok := positional[field]; ok && !explicit[field] {
			set(field, value, positionalLine[field])
		}
	}

	for _, field := range settingsFields {
		if !seen[field] {
			warnings = append(warnings, fmt.Sprintf("missing %s entry, using default", field))
		}
	}

	return settings, warnings
}

// SettingsLoader re-reads the settings file on every call so limits can be
// changed without restarting the daemon
type SettingsLoader struct {
	Path string
}

// Load returns the current settings. It never fails; a missing or malformed
// file yields defaults and a warning in the log.
func (l SettingsLoader) Load() types.Settings {
	logger := log.WithComponent("config")

	f, err := os.Open(l.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn().Str("path", l.Path).Msg("settings file not found, using defaults")
		} else {
			logger.Warn().Err(err).Str("path", l.Path).Msg("failed to open settings file, using defaults")
		}
		return DefaultSettings()
	}
	defer f.Close()

	settings, warnings := ParseSettings(f)
	for _, w := range warnings {
		logger.Warn().Str("path", l.Path).Msg(w)
	}

	logger.Debug().
		Str("cpu", settings.CPUShare).
		Str("memory", settings.MemShare).
		Int("parallel_limit", settings.ParallelLimit).
		Msg("settings loaded")

	return settings
}
