//go:build !darwin

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestSectionFile_RoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	b := newPlatformBackend()
	for key, val := range map[string]string{
		"server.port":             "9300",
		"llm.model":               "phi3.5",
		"humanizer.enabled":       "false",
		"analysis.follow_up_rate": "0.25",
	} {
		if err := setKeyWith(b, key, val); err != nil {
			t.Fatalf("setKeyWith(%s): %v", key, err)
		}
	}

	data, err := os.ReadFile(configFilePath())
	if err != nil {
		t.Fatalf("reading config file: %v", err)
	}
	var doc map[string]map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("config file is not sectioned JSON: %v\n%s", err, data)
	}
	if doc["server"]["port"] != float64(9300) {
		t.Errorf("server.port stored as %#v, want a JSON number", doc["server"]["port"])
	}
	if doc["humanizer"]["enabled"] != false {
		t.Errorf("humanizer.enabled stored as %#v, want a JSON bool", doc["humanizer"]["enabled"])
	}

	cfg, err := loadWith(newPlatformBackend(), &mockKeychain{})
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 9300 || cfg.LLM.Model != "phi3.5" || cfg.Humanizer.Enabled || cfg.Analysis.FollowUpRate != 0.25 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestSectionFile_Delete(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	b := newPlatformBackend()
	if err := b.Set("server.port", 9300); err != nil {
		t.Fatal(err)
	}
	if err := b.Delete("server.port"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := b.Get("server.port"); ok {
		t.Error("server.port still set after Delete")
	}

	data, err := os.ReadFile(configFilePath())
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if _, ok := doc["server"]; ok {
		t.Errorf("empty section kept: %s", data)
	}
}

func TestSectionFile_MalformedKey(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	b := newPlatformBackend()
	if err := b.Set("port", 1); err == nil {
		t.Error("Set accepted a key without a section")
	}
	if _, _, err := b.Get("server."); err == nil {
		t.Error("Get accepted a key without a name")
	}
}

func TestSectionFile_CorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	p := filepath.Join(dir, "psychtrend", "config.json")
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadWith(newPlatformBackend(), &mockKeychain{})
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want default 8000", cfg.Server.Port)
	}
}
