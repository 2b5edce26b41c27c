//go:build !darwin

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "psychtrend-data"
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "psychtrend")
}

func secretStoreHint() string {
	return secretsFilePath()
}

// sectionFile keeps config.json shaped like Config itself:
//
//	{"server": {"port": 9300}, "humanizer": {"enabled": false}}
type sectionFile struct {
	path     string
	sections map[string]map[string]any
}

func newPlatformBackend() ConfigBackend {
	f := &sectionFile{path: configFilePath(), sections: map[string]map[string]any{}}
	f.load()
	return f
}

func configFilePath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join("psychtrend", "config.json")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "psychtrend", "config.json")
}

func (f *sectionFile) load() {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return
	}
	if err == nil {
		err = json.Unmarshal(data, &f.sections)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] ignoring config file %s: %v\n", f.path, err)
		f.sections = map[string]map[string]any{}
	}
}

func (f *sectionFile) save() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := json.MarshalIndent(f.sections, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, append(data, '\n'), 0o600)
}

func (f *sectionFile) Get(key string) (string, bool, error) {
	section, name, err := splitKey(key)
	if err != nil {
		return "", false, err
	}
	v, ok := f.sections[section][name]
	if !ok {
		return "", false, nil
	}
	switch v := v.(type) {
	case string:
		return v, true, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true, nil
	case bool:
		return strconv.FormatBool(v), true, nil
	case int:
		return strconv.Itoa(v), true, nil
	default:
		return "", true, fmt.Errorf("%s holds a %T", key, v)
	}
}

func (f *sectionFile) Set(key string, val any) error {
	section, name, err := splitKey(key)
	if err != nil {
		return err
	}
	if f.sections[section] == nil {
		f.sections[section] = map[string]any{}
	}
	f.sections[section][name] = val
	return f.save()
}

func (f *sectionFile) Delete(key string) error {
	section, name, err := splitKey(key)
	if err != nil {
		return err
	}
	delete(f.sections[section], name)
	if len(f.sections[section]) == 0 {
		delete(f.sections, section)
	}
	return f.save()
}
