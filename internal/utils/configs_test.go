package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "configs")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestConfigDefaultsMaterialized(t *testing.T) {
	cm := NewConfigManager("")

	if got := cm.GetConfigWithDefault("user_agent", "fallback"); got != "paymentd/1.0" {
		t.Errorf("Expected embedded user_agent default, got %q", got)
	}
	if got := cm.GetConfigWithDefault("network", "fallback"); got != "main" {
		t.Errorf("Expected embedded network default, got %q", got)
	}
}

func TestConfigFileParsing(t *testing.T) {
	path := writeConfigFile(t, "alpha = one\nbeta=  two  \nno_delimiter_line\nempty_value =\n")
	cm := NewConfigManager(path)

	if got, ok := cm.GetConfig("alpha"); !ok || got != "one" {
		t.Errorf("Expected alpha=one, got %q (ok=%v)", got, ok)
	}
	if got, ok := cm.GetConfig("beta"); !ok || got != "two" {
		t.Errorf("Expected trimmed beta=two, got %q (ok=%v)", got, ok)
	}
	if _, ok := cm.GetConfig("no_delimiter_line"); ok {
		t.Error("Lines without = must not become keys")
	}

	// An empty value counts as unset for defaulted lookups.
	if got := cm.GetConfigWithDefault("empty_value", "fallback"); got != "fallback" {
		t.Errorf("Expected fallback for empty value, got %q", got)
	}
	if got := cm.GetConfigWithDefault("missing", "fallback"); got != "fallback" {
		t.Errorf("Expected fallback for missing key, got %q", got)
	}
}

func TestGetConfigIntBounds(t *testing.T) {
	path := writeConfigFile(t, "small = 2\nbig = 900\nbad = abc\n")
	cm := NewConfigManager(path)

	if got := cm.GetConfigInt("small", 10, 1, 100); got != 2 {
		t.Errorf("Expected 2, got %d", got)
	}
	if got := cm.GetConfigInt("big", 10, 1, 100); got != 10 {
		t.Errorf("Expected default for out of range value, got %d", got)
	}
	if got := cm.GetConfigInt("bad", 10, 1, 100); got != 10 {
		t.Errorf("Expected default for unparseable value, got %d", got)
	}
}

func TestGetConfigBytesUnits(t *testing.T) {
	path := writeConfigFile(t, "plain = 50000\nkilo = 64kb\nmega = 2MB\n")
	cm := NewConfigManager(path)

	if got := cm.GetConfigBytes("plain", 1); got != 50000 {
		t.Errorf("Expected 50000, got %d", got)
	}
	if got := cm.GetConfigBytes("kilo", 1); got != 64*1024 {
		t.Errorf("Expected 65536, got %d", got)
	}
	if got := cm.GetConfigBytes("mega", 1); got != 2*1024*1024 {
		t.Errorf("Expected 2097152, got %d", got)
	}
	if got := cm.GetConfigBytes("missing", 1234); got != 1234 {
		t.Errorf("Expected default, got %d", got)
	}
}

func TestGetConfigBoolForms(t *testing.T) {
	path := writeConfigFile(t, "yes_form = yes\nzero_form = 0\ngarbage = maybe\n")
	cm := NewConfigManager(path)

	if !cm.GetConfigBool("yes_form", false) {
		t.Error("Expected yes to parse as true")
	}
	if cm.GetConfigBool("zero_form", true) {
		t.Error("Expected 0 to parse as false")
	}
	if !cm.GetConfigBool("garbage", true) {
		t.Error("Expected default for unparseable boolean")
	}
}

func TestGetConfigDuration(t *testing.T) {
	path := writeConfigFile(t, "timeout = 45s\nbroken = fast\n")
	cm := NewConfigManager(path)

	if got := cm.GetConfigDuration("timeout", time.Second); got != 45*time.Second {
		t.Errorf("Expected 45s, got %v", got)
	}
	if got := cm.GetConfigDuration("broken", 7*time.Second); got != 7*time.Second {
		t.Errorf("Expected default for unparseable duration, got %v", got)
	}
	if got := cm.GetConfigDuration("missing", 7*time.Second); got != 7*time.Second {
		t.Errorf("Expected default for missing key, got %v", got)
	}
}

func TestGetConfigSlice(t *testing.T) {
	path := writeConfigFile(t, "paths = /etc/a.pem, /etc/b.pem ,,\n")
	cm := NewConfigManager(path)

	got := cm.GetConfigSlice("paths", nil)
	if len(got) != 2 || got[0] != "/etc/a.pem" || got[1] != "/etc/b.pem" {
		t.Errorf("Unexpected slice %v", got)
	}

	fallback := cm.GetConfigSlice("missing", []string{"x"})
	if len(fallback) != 1 || fallback[0] != "x" {
		t.Errorf("Expected fallback slice, got %v", fallback)
	}
}

func TestSetConfigOverrides(t *testing.T) {
	path := writeConfigFile(t, "flag = false\n")
	cm := NewConfigManager(path)

	cm.SetConfig("flag", true)
	if !cm.GetConfigBool("flag", false) {
		t.Error("SetConfig bool did not take effect")
	}

	cm.SetConfig("count", 12)
	if got := cm.GetConfigInt("count", 0, 0, 100); got != 12 {
		t.Errorf("SetConfig int did not take effect, got %d", got)
	}

	cm.SetConfig("name", "paymentd-test")
	if got := cm.GetConfigWithDefault("name", ""); got != "paymentd-test" {
		t.Errorf("SetConfig string did not take effect, got %q", got)
	}
}
