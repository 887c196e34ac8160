package srvenv

import (
	"context"

	"github.com/go-sod/cod/internal/collector"
	"github.com/go-sod/cod/internal/database"
)

type Option func(*SrvEnv) *SrvEnv

func New(opts ...Option) *SrvEnv {
	env := &SrvEnv{}
	for _, f := range opts {
		env = f(env)
	}

	return env
}

type SrvEnv struct {
	database  *database.DB
	collector collector.ProvideFn
}

func (s *SrvEnv) ProvideCollector() collector.ProvideFn {
	return s.collector
}

func (s *SrvEnv) Database() *database.DB {
	return s.database
}

func WithCollector(fn collector.ProvideFn) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.collector = fn
		return s
	}
}

func WithDatabase(db *database.DB) Option {
	return func(s *SrvEnv) *SrvEnv {
		s.database = db
		return s
	}
}

func (s *SrvEnv) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}

	if s.database != nil {
		return s.database.Close(ctx)
	}
	return nil
}
