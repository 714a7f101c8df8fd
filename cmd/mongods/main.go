package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"mongods/internal/config"
	"mongods/internal/core"
	"mongods/internal/logger"
	"mongods/internal/metrics"
	"mongods/internal/service"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	if isRunningAsService() {
		runAsService()
		return
	}

	// Check for CLI subcommands
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve":
			startServer(signalStop())
			return
		case "prepare":
			handlePrepare(os.Args[2:])
			return
		case "check":
			handleCheck()
			return
		case "install", "uninstall", "start", "stop":
			serviceCommand(os.Args[1])
			return
		case "help", "--help", "-h":
			printHelp()
			return
		default:
			fmt.Printf("Unknown command: %s\n", os.Args[1])
			printHelp()
			os.Exit(1)
		}
	}

	// No subcommand, start server
	startServer(signalStop())
}

func printHelp() {
	fmt.Println("mongods - MongoDB data source editor and query adapter")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  mongods [serve]                                  Start the server")
	fmt.Println("  mongods prepare -q <text> [-var k=v] [-vars f]   Print a query with variables applied")
	fmt.Println("  mongods check                                    Run the host health check for DATASOURCE_UID")
	fmt.Println("  mongods install|uninstall|start|stop             Manage the Windows service")
	fmt.Println("  mongods help                                     Show this help")
}

func handlePrepare(args []string) {
	fs := flag.NewFlagSet("prepare", flag.ExitOnError)
	queryText := fs.String("q", "", "Query text")
	varsFile := fs.String("vars", "", "YAML or JSON file with variable values")
	asJSON := fs.Bool("json", false, "Print the prepared query object instead of its text")
	var pairs varFlags
	fs.Var(&pairs, "var", "Variable as name=value, repeatable; comma separated values make a multi-value variable")
	fs.Parse(args)

	if *queryText == "" {
		fmt.Println("Usage: mongods prepare -q <text> [-var name=value ...] [-vars file.yaml]")
		os.Exit(1)
	}

	vars, err := loadVariables(*varsFile, pairs)
	if err != nil {
		fmt.Printf("Failed to load variables: %v\n", err)
		os.Exit(1)
	}

	ds := service.NewDataSource(service.InstanceSettings{}, nil, core.NewTemplateSrv(vars), nil)
	prepared := ds.ApplyTemplateVariables(core.Query{RefID: "A"}.WithQueryText(*queryText), nil)

	if !*asJSON {
		fmt.Println(prepared.Text())
		return
	}
	out, err := json.MarshalIndent(prepared, "", "  ")
	if err != nil {
		fmt.Printf("Failed to encode query: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func handleCheck() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	client := service.NewHostClient(cfg.GrafanaURL, cfg.GrafanaToken, cfg.ForwardTimeout)
	ds := service.NewDataSource(instanceSettings(cfg), client, nil, nil)

	result, err := ds.TestDatasource(context.Background())
	if err != nil {
		fmt.Printf("Health check failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s: %s\n", result.Status, result.Message)
	if result.Status != "OK" {
		os.Exit(1)
	}
}

func instanceSettings(cfg *config.Config) service.InstanceSettings {
	return service.InstanceSettings{
		UID:  cfg.DatasourceUID,
		Type: cfg.DatasourceType,
	}
}

// signalStop closes the returned channel on SIGINT or SIGTERM.
func signalStop() <-chan struct{} {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	stop := make(chan struct{})
	go func() {
		<-sig
		close(stop)
	}()
	return stop
}

const shutdownTimeout = 5 * time.Second

func startServer(stop <-chan struct{}) {
	if err := serve(stop); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// serve runs the HTTP server until stop is closed or the listener fails.
// Everything it started is released before it returns.
func serve(stop <-chan struct{}) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w\nCheck .env file or MONGODS_API_KEY environment variable", err)
	}

	if err := logger.Init(cfg.LogDir); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Close()
	logger.Info.Println("Starting mongods...")

	metrics.Register()

	comps, err := buildComponents(cfg)
	if err != nil {
		logger.Error.Println(err)
		return err
	}
	defer comps.close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           comps.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	listenErr := make(chan error, 1)
	go func() {
		logger.Info.Printf("Server listening on port %d", cfg.Port)
		listenErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-listenErr:
		logger.Error.Printf("Server startup failed: %v", err)
		return fmt.Errorf("server startup failed: %w", err)
	case <-stop:
	}
	logger.Info.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error.Printf("Server shutdown error: %v", err)
	}
	logger.Info.Println("Server stopped")
	return nil
}
