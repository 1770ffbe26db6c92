package snowflake

import (
	"context"
	"database/sql"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-snowflake/pkg/errors"
	"github.com/ajitpratap0/nebula-snowflake/pkg/observability"
)

// Session is one live warehouse connection. Statements on a session run
// sequentially; a Session must not be shared between goroutines running
// statements at the same time.
type Session struct {
	client *Client
	conn   *sql.Conn
	logger *zap.Logger

	destroyOnce sync.Once
	destroyErr  error
	destroyed   bool
	mu          sync.Mutex
}

// Destroy ends the session and releases its resources. Only the first call
// does any work; later calls return the first outcome.
func (s *Session) Destroy(ctx context.Context) error {
	s.destroyOnce.Do(func() {
		_, span := observability.StartSpan(ctx, "snowflake.destroy")

		var err error
		if cerr := s.conn.Close(); cerr != nil && cerr != sql.ErrConnDone {
			err = cerr
		}
		if cerr := s.client.db.Close(); cerr != nil && err == nil {
			err = cerr
		}

		s.mu.Lock()
		s.destroyed = true
		s.mu.Unlock()
		s.client.metrics.SessionClosed()

		if err != nil {
			s.destroyErr = errors.Wrap(err, errors.ErrorTypeDisconnect, "failed to destroy snowflake session")
			s.logger.Warn("session destroy failed", zap.Error(err))
		} else {
			s.logger.Debug("session destroyed")
		}
		observability.EndSpan(span, s.destroyErr)
	})
	return s.destroyErr
}

// Destroyed reports whether Destroy has been called
func (s *Session) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

func (s *Session) checkOpen() error {
	if s.Destroyed() {
		return errors.New(errors.ErrorTypeQuery, "session already destroyed")
	}
	return nil
}
