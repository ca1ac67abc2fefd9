package theme

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

const fileExt = ".json"

// Load reads <dir>/<name>.json. A missing or unreadable file yields the embedded
// default theme; keys that are absent or invalid fall back to the default one by one.
func Load(dir, name string, log *zap.Logger) Theme {
	if name == "" {
		name = DefaultName
	}
	path := filepath.Join(dir, name+fileExt)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn("Theme file not found, using default theme",
				zap.String("path", path),
				zap.String("default", DefaultName))
		} else {
			log.Warn("Failed to read theme file, using default theme",
				zap.String("path", path),
				zap.Error(err))
		}
		return Default()
	}

	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Warn("Invalid theme file, using default theme",
			zap.String("path", path),
			zap.Error(err))
		return Default()
	}

	t, missing := fromMap(name, raw, Default())
	if len(missing) > 0 {
		log.Warn("Theme keys missing or invalid, using default colors",
			zap.String("theme", name),
			zap.Strings("keys", missing))
	}

	log.Info("Loaded theme",
		zap.String("theme", name),
		zap.String("name", t.Name),
		zap.String("description", t.Description))
	return t
}

// Available lists the theme names found in dir, sorted.
func Available(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read themes directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), fileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())))
	}
	sort.Strings(names)
	return names, nil
}
