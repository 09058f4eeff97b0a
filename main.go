// Command anytype-mcp serves the local Anytype API as MCP tools. The tool
// catalog is derived at startup from the bundled OpenAPI document; each tool
// call is translated back into one HTTP request against the running Anytype
// app.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/phuslu/log"

	"github.com/ubermorgenland/anytype-mcp/pkg/anytype"
	"github.com/ubermorgenland/anytype-mcp/pkg/auth"
	"github.com/ubermorgenland/anytype-mcp/pkg/config"
	"github.com/ubermorgenland/anytype-mcp/pkg/loader"
	"github.com/ubermorgenland/anytype-mcp/pkg/openapi2mcp"
	"github.com/ubermorgenland/anytype-mcp/pkg/server"
)

const serviceName = "anytype-mcp"

func main() {
	args := os.Args[1:]
	command := "run"
	if len(args) > 0 && !isFlag(args[0]) {
		command = args[0]
		args = args[1:]
	}

	flags := flag.NewFlagSet(command, flag.ExitOnError)
	configFile := flags.String("config", "", "path to TOML config file")
	specPath := flags.String("spec", "", "OpenAPI document path or URL")
	baseURL := flags.String("base-url", "", "Anytype API base URL")
	useHTTP := flags.Bool("http", false, "serve streamable HTTP instead of stdio")
	port := flags.Int("port", 8080, "listen port for --http mode")
	debug := flags.Bool("debug", false, "enable debug logging")
	asYAML := flags.Bool("yaml", false, "list-tools: print YAML instead of the summary")
	flags.Parse(args)

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if *specPath != "" {
		cfg.SpecPath = *specPath
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *debug {
		cfg.Debug = true
	}

	logger := newLogger(cfg.Debug)

	switch command {
	case "run":
		runServer(cfg, *useHTTP, *port, logger)
	case "get-key":
		if _, err := auth.NewKeyGenerator(cfg.BaseURL, os.Stdout).Run(); err != nil {
			logger.Error().Err(err).Msg("key provisioning failed")
			os.Exit(1)
		}
	case "validate":
		doc, err := loadDocument(cfg, logger)
		if err != nil {
			os.Exit(1)
		}
		fmt.Printf("%s %s: valid OpenAPI %s document, %d paths\n",
			doc.Info.Title, doc.Info.Version, doc.OpenAPI, doc.Paths.Len())
	case "list-tools":
		doc, err := loadDocument(cfg, logger)
		if err != nil {
			os.Exit(1)
		}
		cat := openapi2mcp.BuildCatalog(doc, cfg.Group, logger)
		if *asYAML {
			out, err := cat.MarshalYAML()
			if err != nil {
				logger.Error().Err(err).Msg("rendering tool listing failed")
				os.Exit(1)
			}
			os.Stdout.Write(out)
		} else {
			fmt.Print(cat.Summary())
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (expected run, get-key, validate, or list-tools)\n", command)
		os.Exit(1)
	}
}

func isFlag(arg string) bool {
	return len(arg) > 0 && arg[0] == '-'
}

// newLogger writes structured logs to stderr. Stdout belongs to the stdio
// transport and must stay clean of diagnostics.
func newLogger(debug bool) log.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	return log.Logger{
		Level:      level,
		TimeFormat: time.RFC3339,
		Writer:     &log.IOWriter{Writer: os.Stderr},
	}
}

func loadDocument(cfg *config.Config, logger log.Logger) (*openapi3.T, error) {
	d, err := loader.Load(cfg.SpecPath)
	if err != nil {
		logger.Error().Err(err).Str("spec", cfg.SpecPath).Msg("loading OpenAPI document failed")
		return nil, server.Wrap(err, server.ErrorTypeStartup, "loading OpenAPI document")
	}
	return d, nil
}

// runServer builds the catalog, registers the tools, and serves either the
// stdio transport or streamable HTTP with a health endpoint.
func runServer(cfg *config.Config, useHTTP bool, port int, logger log.Logger) {
	doc, err := loadDocument(cfg, logger)
	if err != nil {
		os.Exit(1)
	}

	if scheme := auth.ExtractScheme(doc); scheme != nil {
		logger.Info().Str("scheme", scheme.Name).Str("type", scheme.Type).Str("location", scheme.Location).Msg("security scheme found")
		if cfg.APIKey == "" && cfg.Headers["Authorization"] == "" {
			logger.Warn().Msg("no API key configured, run the get-key command or set ANYTYPE_API_KEY")
		}
	}

	cat := openapi2mcp.BuildCatalog(doc, cfg.Group, logger)
	client := anytype.NewClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout, cfg.Headers)

	srv := mcpserver.NewMCPServer(
		doc.Info.Title,
		doc.Info.Version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := openapi2mcp.RegisterTools(srv, cat, client, logger); err != nil {
		logger.Error().Err(err).Msg("tool registration failed")
		os.Exit(1)
	}

	if !useHTTP {
		logger.Info().Int("tools", len(cat.Tools)).Msg("serving stdio transport")
		if err := mcpserver.ServeStdio(srv); err != nil {
			logger.Error().Err(err).Msg("stdio server error")
			os.Exit(1)
		}
		return
	}

	streamable := mcpserver.NewStreamableHTTPServer(srv,
		mcpserver.WithEndpointPath("/mcp"),
	)
	mux := http.NewServeMux()
	mux.Handle("/mcp", streamable)
	mux.Handle("/mcp/", streamable)
	mux.HandleFunc("/health", server.HandleHealth(serviceName, len(cat.Tools)))

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  240 * time.Second,
		WriteTimeout: 240 * time.Second,
	}
	logger.Info().Str("addr", httpSrv.Addr).Int("tools", len(cat.Tools)).Msg("serving streamable HTTP transport")
	if err := serveWithGracefulShutdown(httpSrv, logger); err != nil {
		logger.Error().Err(err).Msg("http server error")
		os.Exit(1)
	}
}

// serveWithGracefulShutdown runs the HTTP server until SIGINT/SIGTERM, then
// gives in-flight requests a bounded window to finish.
func serveWithGracefulShutdown(srv *http.Server, logger log.Logger) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		logger.Info().Msg("server shut down gracefully")
		return nil
	}
}
