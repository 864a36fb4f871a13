package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/waftester/contractfuzz/pkg/config"
	"github.com/waftester/contractfuzz/pkg/contract"
	"github.com/waftester/contractfuzz/pkg/customtest"
	"github.com/waftester/contractfuzz/pkg/duration"
	"github.com/waftester/contractfuzz/pkg/httpclient"
	"github.com/waftester/contractfuzz/pkg/logging"
	"github.com/waftester/contractfuzz/pkg/metrics"
	"github.com/waftester/contractfuzz/pkg/oracle"
	"github.com/waftester/contractfuzz/pkg/pipeline"
	"github.com/waftester/contractfuzz/pkg/registry"
	"github.com/waftester/contractfuzz/pkg/report"
	"github.com/waftester/contractfuzz/pkg/runner"
	"github.com/waftester/contractfuzz/pkg/tracing"
	"github.com/waftester/contractfuzz/pkg/ui"
)

// flagKeys binds run flags to their configuration keys.
var flagKeys = map[string]string{
	"server-url":    "target.server_url",
	"proxy":         "target.proxy",
	"rate-limit":    "target.rate_limit",
	"contract":      "contract.file",
	"custom-file":   "custom.file",
	"security-file": "custom.security_file",
	"ref-data":      "custom.ref_data_file",
	"concurrency":   "run.concurrency",
	"paths":         "run.paths",
	"report-dir":    "report.dir",
	"format":        "report.formats",
	"log-level":     "logger.level",
	"metrics":       "metrics.enabled",
}

func newRunCmd(a *app) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fuzz the API described by the contract",
		Example: "  contractfuzz run --server-url http://localhost:8080 --contract openapi.yml --custom-file custom.yml\n" +
			"  contractfuzz run -c contractfuzz.yml --format jsonl,xlsx",
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			for flag, key := range flagKeys {
				if err := a.v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return fmt.Errorf("bind flag %s: %w", flag, err)
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			return a.run(cmd.Context(), cfg, verbose)
		},
	}

	f := cmd.Flags()
	f.String("server-url", "", "base URL of the API under test")
	f.String("proxy", "", "http(s) or socks5 proxy URL")
	f.Float64("rate-limit", 0, "maximum requests per second (0 = unlimited)")
	f.String("contract", "", "OpenAPI 3 contract (YAML or JSON)")
	f.String("custom-file", "", "custom test definitions")
	f.String("security-file", "", "security test definitions")
	f.String("ref-data", "", "where to write resolved reference data")
	f.IntP("concurrency", "j", 0, "fuzzer streams run at once")
	f.StringSlice("paths", nil, "only fuzz these contract paths")
	f.String("report-dir", "", "report output directory")
	f.StringSliceP("format", "f", nil, "report formats: jsonl, xlsx, text")
	f.String("log-level", "", "debug, info, warn or error")
	f.Bool("metrics", false, "serve Prometheus metrics while running")
	f.BoolVarP(&verbose, "verbose", "v", false, "print successful test cases too")
	return cmd
}

// run wires every component for one session and executes it.
func (a *app) run(ctx context.Context, cfg *config.Config, verbose bool) error {
	log, closeLog := logging.New(cfg.Logger, logging.Options{
		Console: zapcore.AddSync(a.errOut),
		Color:   !ui.IsNoColor() && ui.ColorEnabled(os.Stderr),
	})
	defer func() { _ = closeLog() }()

	tp, shutdownTracing, err := tracing.Provider(cfg.Tracing)
	if err != nil {
		return err
	}
	defer shutdown(log, "tracing", shutdownTracing)

	collector, err := metrics.NewCollector()
	if err != nil {
		return err
	}
	if cfg.Metrics.Enabled {
		srv, err := metrics.Serve(collector, cfg.Metrics.Addr, log)
		if err != nil {
			return err
		}
		defer shutdown(log, "metrics server", srv.Close)
	}

	ops, err := contract.Load(cfg.Contract.File, contract.WithLogger(log))
	if err != nil {
		return err
	}

	transport, err := httpclient.NewTransport(httpclient.TransportConfig{
		BaseURL:   cfg.Target.ServerURL,
		Headers:   cfg.Target.Headers,
		RateLimit: cfg.Target.RateLimit,
		Logger:    log,
		Client: httpclient.Config{
			Timeout:            cfg.Target.Timeout,
			InsecureSkipVerify: cfg.Target.InsecureSkipVerify,
			Proxy:              cfg.Target.Proxy,
			UserAgent:          cfg.Target.UserAgent,
			RetryCount:         cfg.Target.Retries,
		},
	})
	if err != nil {
		return err
	}

	exporter, err := report.Open(cfg.Report, cfg.Target.ServerURL, log)
	if err != nil {
		return err
	}
	reg := registry.New(registry.Config{
		Exporter:  exporter,
		Observers: []registry.Observer{collector, ui.NewPrinter(a.errOut, verbose)},
		Policy: registry.Policy{
			IgnoredCodes:            cfg.Ignore.Codes,
			SkipReportingForIgnored: cfg.Ignore.SkipReporting,
		},
		Logger: log,
	})

	engine := pipeline.NewEngine(pipeline.Config{
		Transport: transport,
		Oracle: oracle.Options{
			IgnoreResponseBodyCheck: cfg.Oracle.IgnoreResponseBodyCheck,
			IgnoreUndocumentedCheck: cfg.Oracle.IgnoreUndocumentedCheck,
		},
		Logger: log,
		Tracer: tp.Tracer(pipeline.TracerName),
	})

	refData := customtest.NewRefData()
	fuzzers, err := buildFuzzers(cfg.Custom, engine, reg, refData, collector, log)
	if err != nil {
		return err
	}

	r := runner.New(log)
	r.Concurrency = cfg.Run.Concurrency
	r.Paths = cfg.Run.Paths
	r.OnProgress = func(fuzzer string, data pipeline.PathData, completed, total int64) {
		log.Debug("operation fuzzed",
			zap.String("fuzzer", fuzzer),
			zap.String("method", data.Method),
			zap.String("path", data.Path),
			zap.Int64("completed", completed),
			zap.Int64("total", total),
			zap.Float64("progress", r.Stats.Progress()))
	}
	log.Info("starting run",
		zap.String("run_id", reg.RunID()),
		zap.String("target", cfg.Target.ServerURL),
		zap.Int("operations", len(ops)),
		zap.Int("fuzzers", len(fuzzers)))
	results, runErr := r.Run(ctx, fuzzers, ops)

	closeCtx, cancel := context.WithTimeout(context.Background(), duration.Shutdown)
	defer cancel()
	if err := reg.Close(closeCtx); err != nil {
		log.Error("closing reports", zap.Error(err))
	}
	if cfg.Custom.File != "" {
		if err := refData.WriteRefData(cfg.Custom.RefDataFile, engine.State().Vars); err != nil {
			log.Error("writing reference data", zap.Error(err))
		}
	}

	stats := reg.Summary()
	ui.PrintSummary(a.out, ui.Summary{
		RunID:     reg.RunID(),
		Target:    cfg.Target.ServerURL,
		Duration:  time.Since(r.Stats.StartTime),
		Stats:     stats,
		Streams:   results,
		ReportDir: cfg.Report.Dir,
	})

	if runErr != nil {
		return runErr
	}
	if stats.Errors > 0 {
		return fmt.Errorf("%w: %d error verdicts", errErrorsFound, stats.Errors)
	}
	return nil
}

func buildFuzzers(cfg config.CustomConfig, engine *pipeline.Engine, reg *registry.Registry,
	refData *customtest.RefData, skips pipeline.SkipRecorder, log *zap.Logger,
) ([]pipeline.Fuzzer, error) {
	var fuzzers []pipeline.Fuzzer
	if cfg.File != "" {
		file, err := customtest.LoadFile(cfg.File)
		if err != nil {
			return nil, err
		}
		fuzzers = append(fuzzers, pipeline.NewCustomFuzzer(engine, reg, file,
			pipeline.WithFuzzerLogger(log),
			pipeline.WithSkipRecorder(skips),
			pipeline.WithRefData(refData)))
	}
	if cfg.SecurityFile != "" {
		file, err := customtest.LoadFile(cfg.SecurityFile)
		if err != nil {
			return nil, err
		}
		fuzzers = append(fuzzers, pipeline.NewSecurityFuzzer(engine, reg, file,
			pipeline.WithFuzzerLogger(log),
			pipeline.WithSkipRecorder(skips)))
	}
	if len(fuzzers) == 0 {
		return nil, errors.New("no test definitions configured")
	}
	return fuzzers, nil
}

func shutdown(log *zap.Logger, what string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), duration.Shutdown)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Warn("shutdown failed", zap.String("component", what), zap.Error(err))
	}
}
