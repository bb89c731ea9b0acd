// seehuhn.de/go/evolve - approximate images with translucent triangles
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"seehuhn.de/go/evolve"
	"seehuhn.de/go/evolve/config"
	"seehuhn.de/go/evolve/control"
)

type runOptions struct {
	target      string
	configPath  string
	out         string
	duration    time.Duration
	metricsAddr string
	seed        uint64
	logLevel    string
	logFormat   string
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evolve an approximation of a target image",
		Long: `Evolve an approximation of a target image.

The run ends after --duration, or on SIGINT/SIGTERM. The best genome found
is then rendered and written to --out as a PNG image.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEvolve(cmd, opts, cmd.Flags().Changed("seed"))
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.target, "target", "t", "", "target image (PNG, JPEG, GIF, BMP, TIFF or WebP)")
	f.StringVarP(&opts.configPath, "config", "c", "", "configuration file")
	f.StringVarP(&opts.out, "out", "o", "best.png", "output PNG file")
	f.DurationVarP(&opts.duration, "duration", "d", time.Minute, "run time, 0 for no limit")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	f.Uint64Var(&opts.seed, "seed", 0, "random seed, overriding the configuration")
	f.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	f.StringVar(&opts.logFormat, "log-format", "text", "log format (text or json)")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func runEvolve(cmd *cobra.Command, opts *runOptions, seedSet bool) error {
	logger, err := newLogger(cmd.ErrOrStderr(), opts.logLevel, opts.logFormat)
	if err != nil {
		return err
	}
	logger = logger.With("run", uuid.NewString())

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if seedSet {
		cfg.Seed = opts.seed
	}

	img, err := loadImage(opts.target)
	if err != nil {
		return err
	}
	e, err := evolve.New(cfg, img, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.metricsAddr != "" {
		shutdown, err := serveMetrics(ctx, opts.metricsAddr, e.Controller, logger)
		if err != nil {
			e.Stop()
			return err
		}
		defer shutdown()
	}

	start := time.Now()
	if err := e.RunFor(ctx, opts.duration); err != nil {
		return err
	}

	best, f := e.BestImage()
	if best == nil {
		return errors.New("no genome was scored")
	}
	if err := writePNG(opts.out, best); err != nil {
		return err
	}
	logger.Info("run finished",
		"elapsed", time.Since(start).Round(time.Millisecond),
		"seed", e.Seed(),
		"passes", e.HillClimbPasses(),
		"crossover_rounds", e.CrossoverRounds(),
		"best_fitness", f,
		"out", opts.out)
	return nil
}

func loadImage(fname string) (image.Image, error) {
	fd, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer fd.Close()
	img, _, err := image.Decode(fd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fname, err)
	}
	return img, nil
}

func writePNG(fname string, img image.Image) error {
	fd, err := os.Create(fname)
	if err != nil {
		return err
	}
	err = png.Encode(fd, img)
	if err2 := fd.Close(); err == nil {
		err = err2
	}
	return err
}

// serveMetrics exposes the controller's counters on addr. The returned
// function shuts the server down.
func serveMetrics(ctx context.Context, addr string, c *control.Controller, logger *slog.Logger) (func(), error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		control.NewCollector(c, "evolve"),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}, nil
}
