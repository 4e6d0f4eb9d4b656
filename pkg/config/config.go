package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/user/vulndash/pkg/remote"
)

const (
	DirName  = ".vulndash"
	FileName = "config.yaml"
)

type ProviderConfig struct {
	APIKey string `yaml:"api_key"`
}

// SSHConfig is where scanners leave their reports.
type SSHConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port,omitempty"`
	Username       string        `yaml:"username"`
	PrivateKey     string        `yaml:"private_key,omitempty"`
	PrivateKeyFile string        `yaml:"private_key_file,omitempty"`
	RemotePath     string        `yaml:"remote_path"`
	KnownHostsFile string        `yaml:"known_hosts_file,omitempty"`
	Timeout        time.Duration `yaml:"timeout,omitempty"`
}

type ServerConfig struct {
	Address      string `yaml:"address"`
	Port         int    `yaml:"port"`
	Source       string `yaml:"source"`
	DataDir      string `yaml:"data_dir,omitempty"`
	Seed         bool   `yaml:"seed"`
	QuotedFields bool   `yaml:"quoted_fields"`
	TemplatesDir string `yaml:"templates_dir,omitempty"`
}

type Config struct {
	SelectedProvider string                    `yaml:"selected_provider"`
	SelectedModel    string                    `yaml:"selected_model"`
	Providers        map[string]ProviderConfig `yaml:"providers"`
	SSH              SSHConfig                 `yaml:"ssh"`
	Server           ServerConfig              `yaml:"server"`
}

func Default() *Config {
	return &Config{
		SelectedProvider: "gemini",
		SelectedModel:    "gemini-1.5-flash",
		Providers:        make(map[string]ProviderConfig),
		SSH: SSHConfig{
			Port:       remote.DefaultPort,
			RemotePath: "/var/reports",
		},
		Server: ServerConfig{
			Address: "127.0.0.1",
			Port:    8080,
			Source:  remote.KindMock,
			Seed:    true,
		},
	}
}

func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, DirName)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", err
	}
	return filepath.Join(configDir, FileName), nil
}

// LoadConfig reads the config at path. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	// 0600, the file holds api keys and ssh keys
	return os.WriteFile(path, data, 0600)
}

func (c *Config) SetAPIKey(provider, key string) {
	p := c.Providers[provider]
	p.APIKey = key
	c.Providers[provider] = p
}

func (c *Config) GetAPIKey(provider string) string {
	return c.Providers[provider].APIKey
}

// Remote resolves the SSH section into a source config, reading the private
// key file when no inline key is set.
func (s SSHConfig) Remote() (remote.Config, error) {
	key := s.PrivateKey
	if key == "" && s.PrivateKeyFile != "" {
		data, err := os.ReadFile(expandHome(s.PrivateKeyFile))
		if err != nil {
			return remote.Config{}, errors.Wrap(err, "read private key file")
		}
		key = string(data)
	}
	return remote.Config{
		Host:           s.Host,
		Port:           s.Port,
		Username:       s.Username,
		PrivateKey:     key,
		RemotePath:     s.RemotePath,
		KnownHostsFile: expandHome(s.KnownHostsFile),
		Timeout:        s.Timeout,
	}, nil
}

func expandHome(p string) string {
	if len(p) < 2 || p[:2] != "~/" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
