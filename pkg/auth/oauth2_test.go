package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/snowflakedb/gosnowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-snowflake/pkg/errors"
)

func tokenServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "stored-refresh", r.PostForm.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh-token","token_type":"Bearer","expires_in":600}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func oauthCreds(tokenURL string, token TokenData) *OAuth2Credentials {
	return &OAuth2Credentials{
		Connection:     Connection{Account: "acct", Warehouse: "WH"},
		GrantType:      "authorizationCode",
		AuthURL:        "https://acct.snowflakecomputing.com/oauth/authorize",
		AccessTokenURL: tokenURL,
		ClientID:       "client",
		ClientSecret:   "secret",
		Scope:          "session:role:REPORTER refresh_token",
		Token:          token,
	}
}

func TestOAuth2Credentials_ValidToken(t *testing.T) {
	var calls atomic.Int32
	srv := tokenServer(t, &calls)

	creds := oauthCreds(srv.URL, TokenData{
		AccessToken: "stored-token",
		Expiry:      time.Now().Add(time.Hour),
	})

	cfg, err := creds.DriverConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, gosnowflake.AuthTypeOAuth, cfg.Authenticator)
	assert.Equal(t, "stored-token", cfg.Token)
	assert.Equal(t, "WH", cfg.Warehouse)
	assert.Equal(t, int32(0), calls.Load())
}

func TestOAuth2Credentials_RefreshesExpiredToken(t *testing.T) {
	var calls atomic.Int32
	srv := tokenServer(t, &calls)

	creds := oauthCreds(srv.URL, TokenData{
		AccessToken:  "stale-token",
		RefreshToken: "stored-refresh",
		Expiry:       time.Now().Add(-time.Minute),
	})

	cfg, err := creds.DriverConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", cfg.Token)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOAuth2Credentials_ExpiredWithoutRefreshToken(t *testing.T) {
	creds := oauthCreds("http://127.0.0.1:0/token", TokenData{
		AccessToken: "stale-token",
		Expiry:      time.Now().Add(-time.Minute),
	})

	_, err := creds.DriverConfig(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuthentication))
}

func TestOAuth2Credentials_NoAccessToken(t *testing.T) {
	creds := oauthCreds("http://127.0.0.1:0/token", TokenData{})

	_, err := creds.DriverConfig(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no OAuth2 access token")
}
