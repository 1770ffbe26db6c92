package node

import (
	"context"

	"github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-snowflake/pkg/config"
	"github.com/ajitpratap0/nebula-snowflake/pkg/errors"
	"github.com/ajitpratap0/nebula-snowflake/pkg/metrics"
	"github.com/ajitpratap0/nebula-snowflake/pkg/models"
	"github.com/ajitpratap0/nebula-snowflake/pkg/snowflake"
)

// Session is the warehouse session an invocation runs its statements on
type Session interface {
	Execute(ctx context.Context, sqlText string, binds []interface{}) ([]*models.Row, error)
	ExecuteStream(ctx context.Context, sqlText string, binds []interface{}, onRow snowflake.RowHandler) error
	Destroy(ctx context.Context) error
}

// ConnectFunc opens the session for one invocation
type ConnectFunc func(ctx context.Context) (Session, error)

// ClientConnector connects through an existing client
func ClientConnector(client *snowflake.Client) ConnectFunc {
	return func(ctx context.Context) (Session, error) {
		sess, err := client.Connect(ctx)
		if err != nil {
			return nil, err
		}
		return sess, nil
	}
}

// CredentialConnector builds a client from the credentials selected by
// authType each time it connects
func CredentialConnector(creds config.CredentialsConfig, authType string, logger *zap.Logger, collector *metrics.Collector) ConnectFunc {
	return func(ctx context.Context) (Session, error) {
		driverCfg, err := driverConfig(ctx, creds, authType)
		if err != nil {
			return nil, err
		}

		client, err := snowflake.NewClient(driverCfg,
			snowflake.WithLogger(logger),
			snowflake.WithMetrics(collector))
		if err != nil {
			return nil, err
		}
		return ClientConnector(client)(ctx)
	}
}

func driverConfig(ctx context.Context, creds config.CredentialsConfig, authType string) (*gosnowflake.Config, error) {
	switch authType {
	case config.AuthTypeOAuth2:
		if creds.SnowflakeOAuth2 == nil {
			return nil, errors.New(errors.ErrorTypeAuthentication, "no snowflake oauth2 credentials configured")
		}
		return creds.SnowflakeOAuth2.DriverConfig(ctx)
	case config.AuthTypePassword, "":
		if creds.Snowflake == nil {
			return nil, errors.New(errors.ErrorTypeAuthentication, "no snowflake credentials configured")
		}
		return creds.Snowflake.DriverConfig()
	default:
		return nil, errors.Newf(errors.ErrorTypeValidation, "unsupported authType %q", authType)
	}
}
