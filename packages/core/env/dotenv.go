package env

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"strings"
)

// DefaultFiles are the .env files LoadFiles reads when given no paths.
var DefaultFiles = []string{".env", ".env.local"}

// LoadDotEnv reads KEY=value pairs from a .env file. Lines may start with
// "export ". Values may be single or double quoted; double-quoted values
// understand \n, \t, \" and \\. Unquoted values end at " #".
func LoadDotEnv(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open env file: %w", err)
	}
	defer file.Close()

	vars, err := parseDotEnv(file)
	if err != nil {
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}
	return vars, nil
}

func parseDotEnv(r io.Reader) (map[string]string, error) {
	vars := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, value, ok := parseLine(scanner.Text())
		if ok {
			vars[key] = value
		}
	}
	return vars, scanner.Err()
}

func parseLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] == '#' {
		return "", "", false
	}
	line = strings.TrimPrefix(line, "export ")

	key, value, ok = strings.Cut(line, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", false
	}
	return key, parseValue(strings.TrimSpace(value)), true
}

func parseValue(raw string) string {
	if raw == "" {
		return ""
	}
	switch quote := raw[0]; quote {
	case '\'':
		if end := strings.IndexByte(raw[1:], '\''); end >= 0 {
			return raw[1 : end+1]
		}
	case '"':
		var b strings.Builder
		for i := 1; i < len(raw); i++ {
			c := raw[i]
			if c == '"' {
				return b.String()
			}
			if c == '\\' && i+1 < len(raw) {
				i++
				switch raw[i] {
				case 'n':
					b.WriteByte('\n')
				case 't':
					b.WriteByte('\t')
				default:
					b.WriteByte(raw[i])
				}
				continue
			}
			b.WriteByte(c)
		}
	}
	// Unquoted, or a quote that never closes.
	if i := strings.Index(raw, " #"); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw)
}

// LoadFiles reads each path in order, later files overriding earlier ones.
// Missing files are skipped; no paths means DefaultFiles.
func LoadFiles(paths ...string) (map[string]string, error) {
	if len(paths) == 0 {
		paths = DefaultFiles
	}

	merged := make(map[string]string)
	for _, path := range paths {
		vars, err := LoadDotEnv(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			continue
		case err != nil:
			return nil, err
		}
		maps.Copy(merged, vars)
	}
	return merged, nil
}

// Export sets vars in the process environment. Variables that are already
// set win.
func Export(vars map[string]string) {
	for k, v := range vars {
		if _, set := os.LookupEnv(k); !set {
			_ = os.Setenv(k, v)
		}
	}
}

// LoadAndExportDotEnv is LoadDotEnv followed by Export.
func LoadAndExportDotEnv(path string) (map[string]string, error) {
	vars, err := LoadDotEnv(path)
	if err != nil {
		return nil, err
	}
	Export(vars)
	return vars, nil
}
