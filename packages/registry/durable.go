package registry

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LoadDurable parses a durable store file and returns name -> command pairs.
// Format: one "name = command" per line; blank lines and # comments are skipped.
// Everything after the first "=" belongs to the command. A missing file is an
// empty store. When a name repeats, the first line wins.
func LoadDurable(path string) (map[string]string, error) {
	result := make(map[string]string)

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return result, nil
		}
		return nil, fmt.Errorf("cannot open action store: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	// Captured commands routinely exceed bufio's 64KiB default.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, command, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		name = strings.TrimSpace(name)
		command = strings.TrimSpace(command)
		if name == "" {
			continue
		}

		if _, dup := result[name]; !dup {
			result[name] = command
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading action store: %w", err)
	}

	return result, nil
}

// AppendDurable appends one "name = command" line to the store at path,
// creating the file and its directory when needed.
func AppendDurable(path, name, command string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("cannot open action store: %w", err)
	}
	defer file.Close()

	prefix := ""
	if info, err := file.Stat(); err == nil && info.Size() > 0 {
		last := make([]byte, 1)
		if _, err := file.ReadAt(last, info.Size()-1); err == nil && last[0] != '\n' {
			prefix = "\n"
		}
	}

	if _, err := fmt.Fprintf(file, "%s%s = %s\n", prefix, name, command); err != nil {
		return fmt.Errorf("writing action store: %w", err)
	}
	return nil
}
