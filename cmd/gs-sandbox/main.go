package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gsconfig-go/gsconfig/internal/devseed"
	"github.com/gsconfig-go/gsconfig/pkg/catalog/mock"
)

type failConfig struct {
	rate float64
	code int
}

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	basePath := flag.String("base-path", "/geoserver/rest", "REST base path")
	seedPath := flag.String("seed", "", "path to YAML seed for the mock catalog")
	latency := flag.Duration("latency", 0, "artificial latency to inject per request")
	fail := flag.String("fail", "", "failure injection (rate=<float>,code=<httpStatus>)")
	verbose := flag.Bool("v", false, "log every request")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	host := *addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	serviceURL := "http://" + host + "/" + strings.Trim(*basePath, "/")

	m := mock.New(mock.WithServiceURL(serviceURL))
	if *seedPath != "" {
		seed, err := devseed.Load(*seedPath)
		if err != nil {
			logger.Error("load seed", "err", err)
			os.Exit(1)
		}
		if err := m.Seed(seed); err != nil {
			logger.Error("apply seed", "err", err)
			os.Exit(1)
		}
	}

	failCfg, err := parseFailConfig(*fail)
	if err != nil {
		logger.Error("parse fail flag", "err", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              *addr,
		Handler:           mock.Handler(m, withLogging(logger), withFaults(*latency, failCfg)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("gs-sandbox listening", "addr", *addr, "service_url", serviceURL)
	fmt.Println()
	fmt.Println("export GSCONFIG_RUNTIME_MODE=http")
	fmt.Printf("export GEOSERVER_REST_URL=%s\n", serviceURL)
	fmt.Println()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func withLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery, "duration", time.Since(start))
		})
	}
}

func withFaults(delay time.Duration, failCfg failConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if delay > 0 {
				time.Sleep(delay)
			}
			if failCfg.rate > 0 && rand.Float64() < failCfg.rate {
				status := failCfg.code
				if status == 0 {
					status = http.StatusInternalServerError
				}
				http.Error(w, "failure injected", status)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func parseFailConfig(raw string) (failConfig, error) {
	var cfg failConfig
	if strings.TrimSpace(raw) == "" {
		return cfg, nil
	}
	for _, part := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return cfg, fmt.Errorf("invalid fail option %q", part)
		}
		switch key {
		case "rate":
			rate, err := strconv.ParseFloat(value, 64)
			if err != nil || rate < 0 || rate > 1 {
				return cfg, fmt.Errorf("invalid fail rate %q", value)
			}
			cfg.rate = rate
		case "code":
			code, err := strconv.Atoi(value)
			if err != nil || code < 400 || code > 599 {
				return cfg, fmt.Errorf("invalid fail code %q", value)
			}
			cfg.code = code
		default:
			return cfg, fmt.Errorf("unknown fail option %q", key)
		}
	}
	return cfg, nil
}
