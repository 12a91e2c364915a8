// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/quorum/approval"
	"github.com/blinklabs-io/quorum/database"
	"github.com/blinklabs-io/quorum/event"
	"github.com/blinklabs-io/quorum/internal/api"
	"github.com/blinklabs-io/quorum/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server owns the storage, event bus and listeners of a running instance
type Server struct {
	cfg           *config.Config
	logger        *slog.Logger
	promRegistry  *prometheus.Registry
	db            *database.Database
	eventBus      *event.EventBus
	apiServer     *http.Server
	metricsServer *http.Server
	apiListener   net.Listener
	metricsListen net.Listener
	shutdownFuncs []func(context.Context) error
}

// New opens the database and binds the listeners. Nothing is served until
// Serve is called.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("no config provided")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:          cfg,
		logger:       logger.With("component", "server"),
		promRegistry: prometheus.NewRegistry(),
	}
	s.promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := s.init(); err != nil {
		s.close(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Server) init() error {
	if s.cfg.Tracing {
		tp, err := setupTracing(context.Background(), s.cfg.TracingStdout)
		if err != nil {
			return err
		}
		s.shutdownFuncs = append(s.shutdownFuncs, tp.Shutdown)
	}
	db, err := database.New(&database.Config{
		DataDir:        s.cfg.DatabasePath,
		Logger:         s.logger,
		BlobPlugin:     s.cfg.BlobPlugin,
		MetadataPlugin: s.cfg.MetadataPlugin,
		PromRegistry:   s.promRegistry,
	})
	if db == nil {
		if err == nil {
			err = errors.New("empty database returned")
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db
	if err != nil {
		var dbErr database.CommitTimestampError
		if !errors.As(err, &dbErr) {
			return fmt.Errorf("failed to open database: %w", err)
		}
		// Only transaction bodies live in the blob store
		s.logger.Warn(
			"database commit timestamps differ",
			"error", err,
		)
	}
	s.eventBus = event.NewEventBus(s.promRegistry, s.logger)
	svc, err := approval.NewDatabaseService(db, s.logger, s.promRegistry)
	if err != nil {
		return err
	}
	a, err := api.New(api.Config{
		Service:      svc,
		EventBus:     s.eventBus,
		Logger:       s.logger,
		PromRegistry: s.promRegistry,
		EventStream:  s.cfg.EventStream,
	})
	if err != nil {
		return err
	}
	apiAddr := net.JoinHostPort(s.cfg.BindAddr, fmt.Sprint(s.cfg.ApiPort))
	s.apiListener, err = net.Listen("tcp", apiAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", apiAddr, err)
	}
	s.apiServer = &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if s.cfg.MetricsPort > 0 {
		metricsAddr := net.JoinHostPort(
			s.cfg.BindAddr,
			fmt.Sprint(s.cfg.MetricsPort),
		)
		s.metricsListen, err = net.Listen("tcp", metricsAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", metricsAddr, err)
		}
		mux := http.NewServeMux()
		mux.Handle(
			"/metrics",
			promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}),
		)
		s.metricsServer = &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 60 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
	}
	return nil
}

// ApiAddr returns the bound address of the API listener
func (s *Server) ApiAddr() net.Addr {
	return s.apiListener.Addr()
}

// MetricsAddr returns the bound address of the metrics listener, if any
func (s *Server) MetricsAddr() net.Addr {
	if s.metricsListen == nil {
		return nil
	}
	return s.metricsListen.Addr()
}

// Serve runs the listeners until ctx is done or one of them fails, then
// shuts everything down within the configured timeout
func (s *Server) Serve(ctx context.Context) error {
	errChan := make(chan error, 2)
	s.logger.Info("serving approval API on " + s.apiListener.Addr().String())
	go func() {
		if err := s.apiServer.Serve(s.apiListener); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("API listener: %w", err)
		}
	}()
	if s.metricsServer != nil {
		s.logger.Info(
			"serving prometheus metrics on " + s.metricsListen.Addr().String(),
		)
		go func() {
			if err := s.metricsServer.Serve(s.metricsListen); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("metrics listener: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("signal received, initiating graceful shutdown")
	case runErr = <-errChan:
		s.logger.Error("listener error", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		s.cfg.ShutdownTimeoutDuration(),
	)
	defer cancel()
	if err := s.close(shutdownCtx); err != nil {
		s.logger.Error("shutdown errors occurred", "error", err)
		return errors.Join(runErr, err)
	}
	s.logger.Info("shutdown complete")
	return runErr
}

func (s *Server) close(ctx context.Context) error {
	var err error
	if s.apiServer != nil {
		err = errors.Join(err, s.apiServer.Shutdown(ctx))
	} else if s.apiListener != nil {
		err = errors.Join(err, s.apiListener.Close())
	}
	if s.metricsServer != nil {
		err = errors.Join(err, s.metricsServer.Shutdown(ctx))
	} else if s.metricsListen != nil {
		err = errors.Join(err, s.metricsListen.Close())
	}
	// Stopping the bus also closes open event streams
	if s.eventBus != nil {
		s.eventBus.Stop()
	}
	if s.db != nil {
		err = errors.Join(err, s.db.Close())
	}
	for _, fn := range s.shutdownFuncs {
		err = errors.Join(err, fn(ctx))
	}
	return err
}

// Run serves until SIGINT or SIGTERM is received
func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "server")
	s, err := New(cfg, logger)
	if err != nil {
		return err
	}
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()
	return s.Serve(signalCtx)
}
