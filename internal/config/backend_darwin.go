//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultsDomain = "com.psychtrend.app"

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "psychtrend-data"
	}
	return filepath.Join(home, "Library", "Application Support", "psychtrend")
}

func secretStoreHint() string {
	return "macOS Keychain (service: " + secretService + ")"
}

// userDefaults stores each "section.name" key in the app's defaults domain,
// written with the defaults type that matches the value.
type userDefaults struct {
	domain string
}

func newPlatformBackend() ConfigBackend {
	return userDefaults{domain: defaultsDomain}
}

func (d userDefaults) Get(key string) (string, bool, error) {
	if _, _, err := splitKey(key); err != nil {
		return "", false, err
	}
	out, err := exec.Command("defaults", "read", d.domain, key).CombinedOutput()
	s := strings.TrimSpace(string(out))
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", false, nil
		}
		return "", false, fmt.Errorf("defaults read %s: %w: %s", key, err, s)
	}
	return s, true, nil
}

func (d userDefaults) Set(key string, val any) error {
	if _, _, err := splitKey(key); err != nil {
		return err
	}
	var typ, text string
	switch v := val.(type) {
	case int:
		typ, text = "-int", strconv.Itoa(v)
	case bool:
		typ, text = "-bool", strconv.FormatBool(v)
	case float64:
		typ, text = "-float", strconv.FormatFloat(v, 'f', -1, 64)
	default:
		typ, text = "-string", fmt.Sprint(v)
	}
	if out, err := exec.Command("defaults", "write", d.domain, key, typ, text).CombinedOutput(); err != nil {
		return fmt.Errorf("defaults write %s: %w: %s", key, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (d userDefaults) Delete(key string) error {
	return exec.Command("defaults", "delete", d.domain, key).Run()
}
