package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type ProfileConfig struct {
	Backend     BackendConfig `json:"backend"`
	StoragePath string        `json:"storage_path"`
	DataDir     string        `json:"data_dir"`
	Server      ServerConfig  `json:"server"`
	Locator     LocatorConfig `json:"locator"`
}

type BackendConfig struct {
	URL            string `json:"url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type LocatorConfig struct {
	CacheTTLMinutes int    `json:"cache_ttl_minutes"`
	DefaultDomain   string `json:"default_domain"`
}

func DefaultProfile() *ProfileConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".luatchat", "data")

	return &ProfileConfig{
		Backend: BackendConfig{
			URL:            "http://localhost:8000",
			TimeoutSeconds: 120,
		},
		StoragePath: filepath.Join(dataDir, "luatchat.db"),
		DataDir:     dataDir,
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Locator: LocatorConfig{
			CacheTTLMinutes: 30,
			DefaultDomain:   "hon_nhan",
		},
	}
}

func GetProfileConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".luatchat")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(configDir, "config.json"), nil
}

func LoadProfile() (*ProfileConfig, error) {
	configPath, err := GetProfileConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultProfile()
		if err := config.Save(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config ProfileConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.ensureDirectories(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (p *ProfileConfig) Save() error {
	configPath, err := GetProfileConfigPath()
	if err != nil {
		return err
	}

	if err := p.ensureDirectories(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func (p *ProfileConfig) ensureDirectories() error {
	if p.DataDir != "" {
		if err := os.MkdirAll(p.DataDir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	if p.StoragePath != "" {
		storageDir := filepath.Dir(p.StoragePath)
		if err := os.MkdirAll(storageDir, 0o755); err != nil {
			return fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	return nil
}

func (p *ProfileConfig) ToConfig() *Config {
	return &Config{
		Backend: Backend{
			URL:            p.Backend.URL,
			TimeoutSeconds: p.Backend.TimeoutSeconds,
		},
		Server: Server{
			Host: p.Server.Host,
			Port: p.Server.Port,
		},
		Storage: Storage{
			Path:    p.StoragePath,
			DataDir: p.DataDir,
		},
		Locator: Locator{
			CacheTTLMinutes: p.Locator.CacheTTLMinutes,
			DefaultDomain:   p.Locator.DefaultDomain,
		},
	}
}

func (p *ProfileConfig) GetDataPath(filename string) string {
	return filepath.Join(p.DataDir, filename)
}
