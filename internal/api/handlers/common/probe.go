package common

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github/chapool/go-txpipeline/internal/api"
	"github/chapool/go-txpipeline/internal/util"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// ProbeReadiness checks the backends the server depends on and returns
// one line per failed check. An empty result means ready.
func ProbeReadiness(ctx context.Context, s *api.Server) []string {
	log := util.LogFromContext(ctx)

	var failed []string

	check := func(name string, fn func(ctx context.Context) error) {
		if err := fn(ctx); err != nil {
			log.Warn().Err(err).Str("check", name).Msg("Readiness check failed")
			failed = append(failed, fmt.Sprintf("%s: %v", name, err))
		}
	}

	if p, ok := s.Chain.(pinger); ok {
		check("chain", p.Ping)
	}

	if s.DB != nil {
		check("database", s.DB.PingContext)
	}

	if s.Events != nil {
		check("events", s.Events.Ping)
	}

	return failed
}

// ProbeLiveness runs the readiness checks and makes sure every path in
// writeablePaths accepts a touchfile.
func ProbeLiveness(ctx context.Context, s *api.Server, writeablePaths []string, touch string) []string {
	failed := ProbeReadiness(ctx, s)

	for _, dir := range writeablePaths {
		if err := touchFile(filepath.Join(dir, touch)); err != nil {
			util.LogFromContext(ctx).Warn().Err(err).Str("path", dir).Msg("Path is not writeable")
			failed = append(failed, fmt.Sprintf("writeable %s: %v", dir, err))
		}
	}

	return failed
}

func touchFile(path string) error {
	now := time.Now()

	if err := os.Chtimes(path, now, now); err == nil {
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create touchfile")
	}

	return errors.Wrap(f.Close(), "failed to close touchfile")
}
