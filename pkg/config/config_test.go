package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	config := Default()

	if config == nil {
		t.Fatal("Default() returned nil")
	}

	// Test default values
	if config.Backend.URL != "http://localhost:8000" {
		t.Errorf("Expected backend URL 'http://localhost:8000', got %q", config.Backend.URL)
	}
	if config.Backend.TimeoutSeconds != 120 {
		t.Errorf("Expected backend timeout 120, got %d", config.Backend.TimeoutSeconds)
	}
	if config.Server.Host != "localhost" {
		t.Errorf("Expected server host 'localhost', got %q", config.Server.Host)
	}
	if config.Server.Port != 8080 {
		t.Errorf("Expected server port 8080, got %d", config.Server.Port)
	}
	if config.Storage.Path != "luatchat.db" {
		t.Errorf("Expected storage path 'luatchat.db', got %q", config.Storage.Path)
	}
	if config.Locator.CacheTTLMinutes != 30 {
		t.Errorf("Expected cache TTL 30, got %d", config.Locator.CacheTTLMinutes)
	}
	if config.Locator.DefaultDomain != "hon_nhan" {
		t.Errorf("Expected default domain 'hon_nhan', got %q", config.Locator.DefaultDomain)
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	config, err := Load("")

	if err != nil {
		t.Errorf("Load with empty path returned error: %v", err)
	}

	// Should return default config
	defaultConfig := Default()
	if config.Backend.URL != defaultConfig.Backend.URL {
		t.Error("Load with empty path should return default config")
	}
}

func TestLoad_NonexistentFile(t *testing.T) {
	config, err := Load("/nonexistent/file.json")

	if err != nil {
		t.Errorf("Load with nonexistent file returned error: %v", err)
	}

	// Should return default config
	defaultConfig := Default()
	if config.Backend.URL != defaultConfig.Backend.URL {
		t.Error("Load with nonexistent file should return default config")
	}
}

func TestLoad_JSONFile(t *testing.T) {
	tempDir := t.TempDir()

	testConfig := &Config{
		Backend: Backend{
			URL:            "http://test:8000",
			TimeoutSeconds: 60,
		},
		Server: Server{
			Host: "0.0.0.0",
			Port: 9090,
		},
		Storage: Storage{
			Path:    "test.db",
			DataDir: "testdata",
		},
		Locator: Locator{
			CacheTTLMinutes: 5,
			DefaultDomain:   "dat_dai",
		},
	}

	configPath := filepath.Join(tempDir, "config.json")
	data, err := json.MarshalIndent(testConfig, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal test config: %v", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	loadedConfig, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load JSON config: %v", err)
	}

	if loadedConfig.Backend.URL != "http://test:8000" {
		t.Errorf("Expected backend URL 'http://test:8000', got %q", loadedConfig.Backend.URL)
	}
	if loadedConfig.Storage.Path != "test.db" {
		t.Errorf("Expected storage path 'test.db', got %q", loadedConfig.Storage.Path)
	}
	if loadedConfig.Locator.DefaultDomain != "dat_dai" {
		t.Errorf("Expected default domain 'dat_dai', got %q", loadedConfig.Locator.DefaultDomain)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	tempDir := t.TempDir()

	yamlContent := `
backend:
  url: http://test:8000
  timeout_seconds: 60
server:
  host: 0.0.0.0
  port: 9090
storage:
  path: test.db
  data_dir: testdata
locator:
  cache_ttl_minutes: 5
  default_domain: dat_dai
`

	configPath := filepath.Join(tempDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("Failed to write test YAML config: %v", err)
	}

	loadedConfig, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load YAML config: %v", err)
	}

	if loadedConfig.Backend.URL != "http://test:8000" {
		t.Errorf("Expected backend URL 'http://test:8000', got %q", loadedConfig.Backend.URL)
	}
	if loadedConfig.Server.Port != 9090 {
		t.Errorf("Expected server port 9090, got %d", loadedConfig.Server.Port)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	tempDir := t.TempDir()

	// Only the backend URL is overridden; everything else stays default.
	yamlContent := `
backend:
  url: http://staging:8000
`
	configPath := filepath.Join(tempDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("Failed to write test YAML config: %v", err)
	}

	loadedConfig, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load YAML config: %v", err)
	}

	if loadedConfig.Backend.URL != "http://staging:8000" {
		t.Errorf("Override lost: %q", loadedConfig.Backend.URL)
	}
	if loadedConfig.Server.Port != 8080 {
		t.Errorf("Default server port lost: %d", loadedConfig.Server.Port)
	}
	if loadedConfig.Locator.DefaultDomain != "hon_nhan" {
		t.Errorf("Default domain lost: %q", loadedConfig.Locator.DefaultDomain)
	}
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	tempDir := t.TempDir()

	configPath := filepath.Join(tempDir, "config.txt")
	if err := os.WriteFile(configPath, []byte("test content"), 0o644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Expected error for unsupported file format")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tempDir := t.TempDir()

	configPath := filepath.Join(tempDir, "config.json")
	if err := os.WriteFile(configPath, []byte("invalid json"), 0o644); err != nil {
		t.Fatalf("Failed to write invalid JSON: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tempDir := t.TempDir()

	configPath := filepath.Join(tempDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: yaml: content: ["), 0o644); err != nil {
		t.Fatalf("Failed to write invalid YAML: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestConfig_Save_JSON(t *testing.T) {
	tempDir := t.TempDir()

	config := Default()
	config.Storage.Path = "saved.db"
	config.Server.Port = 9999

	configPath := filepath.Join(tempDir, "saved_config.json")
	if err := config.Save(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read saved config: %v", err)
	}

	var savedConfig Config
	if err := json.Unmarshal(data, &savedConfig); err != nil {
		t.Fatalf("Failed to unmarshal saved config: %v", err)
	}

	if savedConfig.Storage.Path != "saved.db" {
		t.Errorf("Expected saved storage path 'saved.db', got %q", savedConfig.Storage.Path)
	}
	if savedConfig.Server.Port != 9999 {
		t.Errorf("Expected saved server port 9999, got %d", savedConfig.Server.Port)
	}
}

func TestConfig_Save_YAML(t *testing.T) {
	tempDir := t.TempDir()

	config := Default()
	config.Storage.Path = "saved.db"
	config.Server.Port = 9999

	configPath := filepath.Join(tempDir, "saved_config.yaml")
	if err := config.Save(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read saved config: %v", err)
	}

	var savedConfig Config
	if err := yaml.Unmarshal(data, &savedConfig); err != nil {
		t.Fatalf("Failed to unmarshal saved YAML config: %v", err)
	}

	if savedConfig.Storage.Path != "saved.db" {
		t.Errorf("Expected saved storage path 'saved.db', got %q", savedConfig.Storage.Path)
	}
	if savedConfig.Server.Port != 9999 {
		t.Errorf("Expected saved server port 9999, got %d", savedConfig.Server.Port)
	}
}

func TestConfig_Save_UnsupportedFormat(t *testing.T) {
	tempDir := t.TempDir()

	config := Default()
	configPath := filepath.Join(tempDir, "config.txt")

	if err := config.Save(configPath); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestConfig_Save_CreateDirectory(t *testing.T) {
	tempDir := t.TempDir()

	config := Default()
	configPath := filepath.Join(tempDir, "nested", "dir", "config.json")

	if err := config.Save(configPath); err != nil {
		t.Fatalf("Failed to save config with nested directory: %v", err)
	}

	if _, err := os.Stat(configPath); err != nil {
		t.Errorf("Config file was not created: %v", err)
	}
}

func TestConfig_RoundTrip_JSON(t *testing.T) {
	tempDir := t.TempDir()

	originalConfig := &Config{
		Backend: Backend{
			URL:            "http://custom:8000",
			TimeoutSeconds: 45,
		},
		Server: Server{
			Host: "127.0.0.1",
			Port: 7777,
		},
		Storage: Storage{
			Path:    "roundtrip.db",
			DataDir: "rt",
		},
		Locator: Locator{
			CacheTTLMinutes: 15,
			DefaultDomain:   "hinh_su",
		},
	}

	configPath := filepath.Join(tempDir, "roundtrip.json")

	if err := originalConfig.Save(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loadedConfig, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if *loadedConfig != *originalConfig {
		t.Errorf("Round trip mismatch: got %+v, want %+v", loadedConfig, originalConfig)
	}
}
