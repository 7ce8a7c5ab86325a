// downlinkd is the HTTP-to-LoRaWAN downlink service.
//
// It accepts switch and button intents for Milesight WS503, WS558 and WS156
// panels over HTTP, encodes them into the devices' command frames, and
// publishes each frame as a downlink envelope to the network server's MQTT
// broker, one short-lived broker session per request.
//
// Usage:
//
//	downlinkd [-config path]
//	downlinkd -issue-token ops-console [-scopes downlink:control] [-ttl 24h]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/gray-logic-downlink/internal/api"
	"github.com/nerrad567/gray-logic-downlink/internal/auth"
	"github.com/nerrad567/gray-logic-downlink/internal/command"
	"github.com/nerrad567/gray-logic-downlink/internal/downlink"
	"github.com/nerrad567/gray-logic-downlink/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-downlink/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-downlink/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-downlink/internal/observability/metrics"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// options are the command-line flags.
type options struct {
	configPath string
	issueToken string
	scopes     string
	ttl        time.Duration
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if opts.issueToken != "" {
		err = issueToken(opts, os.Stdout)
	} else {
		err = run(ctx, opts)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags reads command-line flags. The config path falls back to
// DOWNLINK_CONFIG, then the default.
func parseFlags(args []string) (options, error) {
	fs := flag.NewFlagSet("downlinkd", flag.ContinueOnError)
	var opts options
	fs.StringVar(&opts.configPath, "config", "", "path to config file (default $DOWNLINK_CONFIG or "+defaultConfigPath+")")
	fs.StringVar(&opts.issueToken, "issue-token", "", "print a bearer token for this subject and exit")
	fs.StringVar(&opts.scopes, "scopes", "", "comma-separated token scopes (default all)")
	fs.DurationVar(&opts.ttl, "ttl", 0, "token lifetime (default security.jwt.token_ttl minutes)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.configPath == "" {
		opts.configPath = getConfigPath()
	}
	return opts, nil
}

// run starts the service and blocks until ctx is cancelled.
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, opts options) error {
	log := logging.Default()
	log.Info("starting downlink service",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", opts.configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	if cfg.Metrics.Enabled {
		metrics.Init()
	}

	publisher, err := downlink.New(downlink.Options{
		Downlink: cfg.Downlink,
		QoS:      byte(cfg.MQTT.QoS),
		Dialer:   downlink.MQTTDialer(cfg.MQTT),
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}

	server, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Security:   cfg.Security,
		Metrics:    cfg.Metrics,
		Logger:     log,
		Sender:     publisher,
		WS558Model: ws558Model(cfg.Downlink),
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	publisher.SetOnResult(server.NotifyResult)

	checkBroker(cfg.MQTT, log)

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"topic", cfg.Downlink.Topic,
		"auth", cfg.Security.JWT.Secret != "",
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// checkBroker opens and closes one session so misconfiguration shows up in
// the startup log. Failure is not fatal: every request dials on its own.
func checkBroker(cfg config.MQTTConfig, log *logging.Logger) {
	session, err := mqtt.Dial(cfg)
	if err != nil {
		var ce *mqtt.ConnectError
		if errors.As(err, &ce) && ce.ReturnCode != 0 {
			log.Warn("MQTT broker refused startup session",
				"return_code", ce.ReturnCode,
				"reason", mqtt.ReturnCodeText(ce.ReturnCode),
			)
			return
		}
		log.Warn("MQTT broker unreachable at startup", "error", err)
		return
	}
	log.Info("MQTT broker reachable", "client_id", session.ClientID())
	if err := session.Close(); err != nil {
		log.Warn("closing startup session", "error", err)
	}
}

// ws558Model maps downlink.ws558_encoding to the model serving /ws558/.
func ws558Model(cfg config.DownlinkConfig) command.Model {
	if cfg.WS558Encoding == config.EncodingMSBFirst {
		return command.ModelWS558Fixed
	}
	return command.ModelWS558
}

// issueToken prints a signed bearer token for opts.issueToken.
func issueToken(opts options, out io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Security.JWT.Secret == "" {
		return fmt.Errorf("security.jwt.secret is not set")
	}

	ttl := opts.ttl
	if ttl <= 0 {
		ttl = time.Duration(cfg.Security.JWT.TokenTTL) * time.Minute
	}

	token, err := auth.GenerateToken(opts.issueToken, cfg.Security.JWT.Secret, ttl, auth.ParseScopes(opts.scopes)...)
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}
	_, err = fmt.Fprintln(out, token)
	return err
}

// getConfigPath returns the configuration file path.
// Uses DOWNLINK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("DOWNLINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
