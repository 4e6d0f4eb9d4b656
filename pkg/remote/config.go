package remote

import (
	"net"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
)

const (
	DefaultPort    = 22
	DefaultTimeout = 30 * time.Second
)

// Config holds the connection parameters of a remote CSV location.
type Config struct {
	Host           string        `json:"host" yaml:"host"`
	Port           int           `json:"port" yaml:"port"`
	Username       string        `json:"username" yaml:"username"`
	PrivateKey     string        `json:"privateKey" yaml:"private_key,omitempty"`
	RemotePath     string        `json:"remotePath" yaml:"remote_path"`
	KnownHostsFile string        `json:"-" yaml:"known_hosts_file,omitempty"`
	Timeout        time.Duration `json:"-" yaml:"timeout,omitempty"`
}

// Presence reports which required settings are set, without exposing them.
type Presence struct {
	HasHost       bool `json:"hasHost"`
	HasUsername   bool `json:"hasUsername"`
	HasPrivateKey bool `json:"hasPrivateKey"`
}

func (c Config) Presence() Presence {
	return Presence{
		HasHost:       c.Host != "",
		HasUsername:   c.Username != "",
		HasPrivateKey: c.PrivateKey != "",
	}
}

// Validate returns every missing required setting at once.
func (c Config) Validate() error {
	var result error
	if c.Host == "" {
		result = multierror.Append(result, errors.New("host is required"))
	}
	if c.Username == "" {
		result = multierror.Append(result, errors.New("username is required"))
	}
	if c.PrivateKey == "" {
		result = multierror.Append(result, errors.New("private key is required"))
	}
	if c.Port < 0 || c.Port > 65535 {
		result = multierror.Append(result, errors.Newf("invalid port %d", c.Port))
	}
	return result
}

// Addr returns host:port, defaulting the port to 22.
func (c Config) Addr() string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}
