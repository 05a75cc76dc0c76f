package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"golang.org/x/sync/errgroup"
)

const (
	ErrTypeServerFailed = "server_failed"

	DefaultShutdownTimeout = time.Second * 10
)

// Serve runs the servers until ctx is canceled or one of them fails to
// serve. Every server is then shut down, waiting at most shutdownTimeout for
// in-flight requests. The first serving error is returned.
func Serve(ctx context.Context, shutdownTimeout time.Duration, servers ...*http.Server) error {
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, s := range servers {
		s := s

		g.Go(func() error {
			logs.WithTag("addr", s.Addr).Info("server listening")

			err := s.ListenAndServe()
			if err == nil || err == http.ErrServerClosed {
				logs.WithTag("addr", s.Addr).Info("server closed")
				return nil
			}
			return errors.New("serving failed").
				WithType(ErrTypeServerFailed).
				WithTag("addr", s.Addr).
				Wrap(err)
		})

		g.Go(func() error {
			<-gctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := s.Shutdown(shutdownCtx); err != nil {
				logs.Warn(errors.New("server shutdown failed").
					WithTag("addr", s.Addr).
					WithTag("timeout", shutdownTimeout).
					Wrap(err))
			}
			return nil
		})
	}

	return g.Wait()
}

// Statuses whose requests are reported without a path, so that scanners and
// typos do not create a metric series per path.
var unlabeledStatuses = map[int]struct{}{
	http.StatusMovedPermanently: {},
	http.StatusBadRequest:       {},
	http.StatusNotFound:         {},
	http.StatusMethodNotAllowed: {},
}

// MetricsPathFormatter is the path formatter given to metrics.HTTPHandler.
func MetricsPathFormatter(statusCode int, path string) string {
	if _, ok := unlabeledStatuses[statusCode]; ok {
		return ""
	}
	return path
}
