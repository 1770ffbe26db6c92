// Package auth maps stored Snowflake credentials onto driver configuration.
//
// Two credential types exist. SnowflakeCredentials authenticates with a
// username and either a password or an RSA key pair. OAuth2Credentials
// carries an access token issued by an external authorization server; the
// token is refreshed when it has expired and a refresh token is available.
// Acquiring the first token is the host's job.
package auth

import (
	"github.com/snowflakedb/gosnowflake"

	"github.com/ajitpratap0/nebula-snowflake/pkg/errors"
)

// Authentication selects how SnowflakeCredentials authenticate
type Authentication string

const (
	// AuthenticationPassword uses username and password
	AuthenticationPassword Authentication = "password"
	// AuthenticationKeyPair uses username and an RSA private key
	AuthenticationKeyPair Authentication = "keyPair"
)

// Connection holds the fields shared by every credential type
type Connection struct {
	Account                string `yaml:"account" json:"account"`
	Database               string `yaml:"database" json:"database"`
	Schema                 string `yaml:"schema" json:"schema"`
	Warehouse              string `yaml:"warehouse" json:"warehouse"`
	Role                   string `yaml:"role" json:"role"`
	ClientSessionKeepAlive bool   `yaml:"clientSessionKeepAlive" json:"clientSessionKeepAlive"`
}

func (c Connection) validate() error {
	if c.Account == "" {
		return errors.New(errors.ErrorTypeConfig, "account is required")
	}
	return nil
}

// keepAliveParam is the session parameter the driver reads keep-alive from
const keepAliveParam = "client_session_keep_alive"

func (c Connection) driverConfig() *gosnowflake.Config {
	cfg := &gosnowflake.Config{
		Account:   c.Account,
		Database:  c.Database,
		Schema:    c.Schema,
		Warehouse: c.Warehouse,
		Role:      c.Role,
	}
	if c.ClientSessionKeepAlive {
		v := "true"
		cfg.Params = map[string]*string{keepAliveParam: &v}
	}
	return cfg
}

// SnowflakeCredentials authenticate with a username and a password or key pair
type SnowflakeCredentials struct {
	Connection     `yaml:",inline"`
	Authentication Authentication `yaml:"authentication" json:"authentication"`
	Username       string         `yaml:"username" json:"username"`
	Password       string         `yaml:"password" json:"password"`
	PrivateKey     string         `yaml:"privateKey" json:"privateKey"`
	Passphrase     string         `yaml:"passphrase" json:"passphrase"`
}

// Validate checks that the fields required by the chosen authentication are set
func (c *SnowflakeCredentials) Validate() error {
	if err := c.Connection.validate(); err != nil {
		return err
	}
	if c.Username == "" {
		return errors.New(errors.ErrorTypeConfig, "username is required")
	}

	switch c.authentication() {
	case AuthenticationPassword:
		if c.Password == "" {
			return errors.New(errors.ErrorTypeConfig, "password is required for password authentication")
		}
	case AuthenticationKeyPair:
		if c.PrivateKey == "" {
			return errors.New(errors.ErrorTypeConfig, "privateKey is required for key pair authentication")
		}
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unsupported authentication %q", c.Authentication)
	}
	return nil
}

func (c *SnowflakeCredentials) authentication() Authentication {
	if c.Authentication == "" {
		return AuthenticationPassword
	}
	return c.Authentication
}

// DriverConfig builds the driver configuration for these credentials
func (c *SnowflakeCredentials) DriverConfig() (*gosnowflake.Config, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	cfg := c.Connection.driverConfig()
	cfg.User = c.Username

	switch c.authentication() {
	case AuthenticationKeyPair:
		key, err := ParsePrivateKey(c.PrivateKey, c.Passphrase)
		if err != nil {
			return nil, err
		}
		cfg.Authenticator = gosnowflake.AuthTypeJwt
		cfg.PrivateKey = key
	default:
		cfg.Authenticator = gosnowflake.AuthTypeSnowflake
		cfg.Password = c.Password
	}
	return cfg, nil
}
