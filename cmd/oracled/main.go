package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/GoSim-25-26J-441/capture-sizing/internal/oracle"
	"github.com/GoSim-25-26J-441/capture-sizing/internal/oracle/remote"
	"github.com/GoSim-25-26J-441/capture-sizing/internal/sizing"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/config"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/logger"
	"github.com/GoSim-25-26J-441/capture-sizing/pkg/models"
)

func main() {
	var grpcAddr string
	var httpAddr string
	var logLevel string
	var configPath string
	var delay time.Duration

	flag.StringVar(&grpcAddr, "grpc-addr", ":50051", "gRPC listen address")
	flag.StringVar(&httpAddr, "http-addr", "", "HTTP health listen address (disabled when empty)")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.StringVar(&configPath, "config", "", "sizing configuration providing paths and step inputs")
	flag.DurationVar(&delay, "eval-delay", 0, "artificial latency added to every evaluation")
	flag.Parse()

	logger.SetDefault(logger.NewText(logLevel, os.Stdout))

	paths := models.DefaultPaths()
	inputs := map[string]float64{}
	if configPath != "" {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			logger.Error("failed to load config", "path", configPath, "error", err)
			os.Exit(1)
		}
		paths = cfg.Paths
		inputs = sizing.StepInputs(cfg)
	}
	model := oracle.NewAbsorberSurrogate(paths, oracle.DefaultSurrogateParams(), oracle.WithInputs(inputs), oracle.WithDelay(delay))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// TODO: add TLS credentials before exposing the bridge beyond localhost.
	grpcServer := grpc.NewServer()
	remote.RegisterOracleServer(grpcServer, remote.NewServer(model))

	grpcLis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logger.Error("failed to listen for gRPC", "addr", grpcAddr, "error", err)
		stop()
		os.Exit(1)
	}

	go func() {
		logger.Info("oracle bridge listening", "addr", grpcAddr, "inputs", len(model.InputPaths()))
		if err := grpcServer.Serve(grpcLis); err != nil {
			logger.Error("gRPC server error", "error", err)
			stop()
		}
	}()

	var httpSrv *http.Server
	if httpAddr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})
		httpSrv = &http.Server{
			Addr:              httpAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 20,
		}
		go func() {
			logger.Info("HTTP server listening", "addr", httpAddr)
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "error", err)
				stop()
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutdown requested", "evaluations", model.Evaluations())
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grpcServer.GracefulStop()
	if httpSrv != nil {
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP shutdown error", "error", err)
		}
	}
	if err := model.Close(); err != nil {
		logger.Warn("failed to close oracle", "error", err)
	}
}
