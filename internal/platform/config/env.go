package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

// sources resolves a key against the explicit map, then the process environment, then the
// dotenv file.
type sources struct {
	explicit map[string]string
	system   bool
	dotenv   map[string]string
}

func newSources(o loaderOptions) (sources, error) {
	dotenv, err := readDotEnv(o.envFile)
	if err != nil {
		return sources{}, err
	}
	return sources{explicit: o.envMap, system: o.useSystemEnv, dotenv: dotenv}, nil
}

func (s sources) lookup(key string) (string, bool) {
	if v, ok := s.explicit[key]; ok {
		return v, true
	}
	if s.system {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
	}
	v, ok := s.dotenv[key]
	return v, ok
}

// merged flattens every source using the same precedence as lookup.
func (s sources) merged() map[string]string {
	out := make(map[string]string, len(s.dotenv)+len(s.explicit))
	for k, v := range s.dotenv {
		out[k] = v
	}
	if s.system {
		for _, entry := range os.Environ() {
			key, value, ok := strings.Cut(entry, "=")
			if key = strings.TrimSpace(key); ok && key != "" {
				out[key] = value
			}
		}
	}
	for k, v := range s.explicit {
		out[k] = v
	}
	return out
}

// EnvironmentValues returns the effective key/value map Load would read from, so callers can
// build the secret fetcher before loading.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	src, err := newSources(applyOptions(opts))
	if err != nil {
		return nil, err
	}
	return src.merged(), nil
}

// reader reads typed values and records the fields whose raw value did not parse.
type reader struct {
	src     sources
	invalid []string
}

func (r *reader) raw(key string) (string, bool) {
	v, ok := r.src.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (r *reader) str(key, fallback string) string {
	if v, ok := r.raw(key); ok {
		return v
	}
	return fallback
}

func (r *reader) lower(key, fallback string) string { return strings.ToLower(r.str(key, fallback)) }
func (r *reader) upper(key, fallback string) string { return strings.ToUpper(r.str(key, fallback)) }

func (r *reader) duration(field, key string, fallback time.Duration) time.Duration {
	v, ok := r.raw(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.invalid = append(r.invalid, field)
		return fallback
	}
	return d
}

func (r *reader) integer(field, key string, fallback int) int {
	v, ok := r.raw(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.invalid = append(r.invalid, field)
		return fallback
	}
	return n
}

func (r *reader) list(key string) []string {
	v, _ := r.raw(key)
	return lo.Compact(lo.Map(strings.Split(v, ","), func(part string, _ int) string {
		return strings.TrimSpace(part)
	}))
}

// readDotEnv parses KEY=value lines. Comments, blank lines and an optional "export " prefix
// are accepted; a missing file is not an error.
func readDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), `"'`)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return values, nil
}
