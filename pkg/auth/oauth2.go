package auth

import (
	"context"
	"strings"
	"time"

	"github.com/snowflakedb/gosnowflake"
	"golang.org/x/oauth2"

	"github.com/ajitpratap0/nebula-snowflake/pkg/errors"
)

// TokenData is the token state stored alongside OAuth2 credentials
type TokenData struct {
	AccessToken  string    `yaml:"accessToken" json:"access_token"`
	RefreshToken string    `yaml:"refreshToken" json:"refresh_token,omitempty"`
	TokenType    string    `yaml:"tokenType" json:"token_type,omitempty"`
	Expiry       time.Time `yaml:"expiry" json:"expiry,omitempty"`
}

// OAuth2Credentials authenticate with an OAuth access token
type OAuth2Credentials struct {
	Connection     `yaml:",inline"`
	GrantType      string    `yaml:"grantType" json:"grantType"`
	AuthURL        string    `yaml:"authUrl" json:"authUrl"`
	AccessTokenURL string    `yaml:"accessTokenUrl" json:"accessTokenUrl"`
	ClientID       string    `yaml:"clientId" json:"clientId"`
	ClientSecret   string    `yaml:"clientSecret" json:"clientSecret"`
	Scope          string    `yaml:"scope" json:"scope"`
	Token          TokenData `yaml:"oauthTokenData" json:"oauthTokenData"`
}

// Validate checks the account and token fields
func (c *OAuth2Credentials) Validate() error {
	if err := c.Connection.validate(); err != nil {
		return err
	}
	if c.Token.AccessToken == "" {
		return errors.New(errors.ErrorTypeAuthentication, "no OAuth2 access token; connect the credential first")
	}
	return nil
}

func (c *OAuth2Credentials) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.AuthURL,
			TokenURL: c.AccessTokenURL,
		},
		Scopes: strings.Fields(c.Scope),
	}
}

// TokenSource returns a token source seeded with the stored token. It
// refreshes the token once it has expired, if a refresh token is stored.
func (c *OAuth2Credentials) TokenSource(ctx context.Context) oauth2.TokenSource {
	return c.oauthConfig().TokenSource(ctx, &oauth2.Token{
		AccessToken:  c.Token.AccessToken,
		RefreshToken: c.Token.RefreshToken,
		TokenType:    c.Token.TokenType,
		Expiry:       c.Token.Expiry,
	})
}

// DriverConfig builds the driver configuration with a valid access token
func (c *OAuth2Credentials) DriverConfig(ctx context.Context) (*gosnowflake.Config, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	token, err := c.TokenSource(ctx).Token()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeAuthentication, "failed to obtain OAuth2 access token")
	}

	cfg := c.Connection.driverConfig()
	cfg.Authenticator = gosnowflake.AuthTypeOAuth
	cfg.Token = token.AccessToken
	return cfg, nil
}
