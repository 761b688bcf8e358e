// Command headunit is a reference projection head unit.
//
// It advertises itself on the local network, waits for a phone over
// wireless TCP or USB accessory, and runs the projection session:
// video and audio sinks, microphone capture, input forwarding, and
// vehicle sensors. An optional interactive console injects button,
// touch, and sensor events for bench testing without vehicle hardware.
//
// Usage:
//
//	headunit [flags]
//
// Flags:
//
//	-config string        Configuration file path (YAML)
//	-write-config string  Write the default configuration to a file and exit
//	-name string          Override the head unit display name
//	-port int             Override the wireless listen port
//	-log-level string     Override the log level: debug, info, warn, error
//	-protocol-log string  Override the protocol event log path
//	-interactive          Enable the interactive console
//
// Examples:
//
//	# Start with defaults and the interactive console
//	headunit -interactive
//
//	# Start from a configuration file with protocol logging
//	headunit -config /etc/headunit.yaml -protocol-log /tmp/session.log
//
//	# Write the default configuration for editing
//	headunit -write-config headunit.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/openprojection/headunit-go/cmd/headunit/interactive"
	"github.com/openprojection/headunit-go/pkg/config"
	"github.com/openprojection/headunit-go/pkg/connection"
	"github.com/openprojection/headunit-go/pkg/discovery"
	"github.com/openprojection/headunit-go/pkg/log"
	"github.com/openprojection/headunit-go/pkg/service"
	"github.com/openprojection/headunit-go/pkg/session"
	"github.com/openprojection/headunit-go/pkg/transport"
)

var flags struct {
	configFile  string
	writeConfig string
	name        string
	port        int
	logLevel    string
	protocolLog string
	interactive bool
}

func init() {
	flag.StringVar(&flags.configFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&flags.writeConfig, "write-config", "", "Write the default configuration to a file and exit")
	flag.StringVar(&flags.name, "name", "", "Override the head unit display name")
	flag.IntVar(&flags.port, "port", 0, "Override the wireless listen port")
	flag.StringVar(&flags.logLevel, "log-level", "", "Override the log level: debug, info, warn, error")
	flag.StringVar(&flags.protocolLog, "protocol-log", "", "Override the protocol event log path")
	flag.BoolVar(&flags.interactive, "interactive", false, "Enable the interactive console")
}

func main() {
	flag.Parse()

	if flags.writeConfig != "" {
		if err := config.DefaultConfig().Save(flags.writeConfig); err != nil {
			fmt.Fprintln(os.Stderr, "headunit:", err)
			os.Exit(1)
		}
		fmt.Println("Wrote default configuration to", flags.writeConfig)
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "headunit:", err)
		os.Exit(1)
	}

	// Log output goes through a swappable writer so the interactive
	// console can take over the terminal without losing log lines.
	out := &consoleWriter{w: os.Stderr}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: logLevel(cfg.Log.Level)}))

	logger.Info("projection head unit",
		"name", cfg.HeadUnit.Name,
		"make", cfg.HeadUnit.Make,
		"model", cfg.HeadUnit.Model,
		"protocol", session.Current.String(),
	)

	var eventLog log.Logger = log.NoopLogger{}
	var fileLog *log.FileLogger
	if cfg.Log.ProtocolLogPath != "" {
		fileLog, err = log.NewFileLogger(cfg.Log.ProtocolLogPath)
		if err != nil {
			logger.Error("failed to open protocol log", "error", err)
			os.Exit(1)
		}
		eventLog = fileLog
		logger.Info("protocol logging enabled", "path", cfg.Log.ProtocolLogPath)
	}

	// The input backend and location source are shared across sessions
	// so the console keeps injecting into whichever session is active.
	inputBackend := service.InputBackendFromConfig(cfg)
	locationSource := &service.ManualLocationSource{}

	builder := &connection.Builder{
		Config: cfg,
		Backends: service.Backends{
			Input:    inputBackend,
			Location: locationSource,
		},
		EventLog: eventLog,
		Logger:   logger,
	}

	tcpWaiter, err := transport.NewTCPWaiter(transport.TCPWaiterConfig{
		Port:   cfg.Transport.TCPPort,
		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to listen for wireless devices", "error", err)
		os.Exit(1)
	}
	accessoryWaiter := transport.NewAccessoryWaiter(logger)

	manager, err := connection.NewManager(connection.Config{
		Waiters:  []transport.DeviceWaiter{tcpWaiter, accessoryWaiter},
		Factory:  builder.Factory(),
		EventLog: eventLog,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("failed to create connection manager", "error", err)
		os.Exit(1)
	}

	manager.OnDeviceConnected(func(t transport.Transport) {
		logger.Info("device connected", "transport", t.Kind().String(), "remote", t.RemoteAddr())
	})
	manager.OnDeviceDisconnected(func() {
		logger.Info("device disconnected")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var advertiser discovery.Advertiser
	if cfg.Transport.Advertise {
		advCfg := discovery.DefaultAdvertiserConfig()
		advCfg.Interface = cfg.Transport.Interface
		advCfg.Logger = logger
		adv := discovery.NewMDNSAdvertiser(advCfg)
		if err := adv.Advertise(ctx, headUnitInfo(cfg)); err != nil {
			logger.Warn("mdns advertising unavailable", "error", err)
		} else {
			logger.Info("advertising head unit", "instance", cfg.HeadUnit.Name, "port", cfg.Transport.TCPPort)
		}
		advertiser = adv
	}

	// Keep the advertised status record in step with the connection
	// state so browsing phones see whether the head unit is taken.
	manager.OnStateChange(func(from, to connection.State) {
		logger.Debug("connection state", "from", from.String(), "to", to.String())
		if advertiser == nil {
			return
		}
		info := headUnitInfo(cfg)
		if to == connection.StateConnected {
			info.Status = discovery.StatusConnected
		}
		if err := advertiser.Update(info); err != nil && !errors.Is(err, discovery.ErrNotAdvertising) {
			logger.Warn("failed to update advertised status", "error", err)
		}
	})

	if err := manager.Start(); err != nil {
		logger.Error("failed to start connection manager", "error", err)
		os.Exit(1)
	}
	logger.Info("waiting for device", "tcp", tcpWaiter.Addr().String())

	if flags.interactive {
		con, err := interactive.New(interactive.Config{
			Manager:       manager,
			Input:         inputBackend,
			Location:      locationSource,
			Advertiser:    advertiser,
			AccessPoint:   service.AccessPointFromConfig(cfg.Wifi),
			NightModeFile: cfg.Sensor.NightModeFile,
		})
		if err != nil {
			logger.Error("failed to start interactive console", "error", err)
			os.Exit(1)
		}
		out.Swap(con.Stdout())
		go con.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal", "signal", sig.String())
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	cancel()
	if advertiser != nil {
		advertiser.Stop()
	}
	manager.Stop()
	if fileLog != nil {
		if err := fileLog.Close(); err != nil {
			logger.Warn("failed to close protocol log", "error", err)
		}
	}
	logger.Info("goodbye")
}

// loadConfig builds the effective configuration from the defaults, the
// optional configuration file, and the flag overrides.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if flags.configFile != "" {
		loaded, err := config.Load(flags.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if flags.name != "" {
		cfg.HeadUnit.Name = flags.name
	}
	if flags.port != 0 {
		cfg.Transport.TCPPort = flags.port
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.protocolLog != "" {
		cfg.Log.ProtocolLogPath = flags.protocolLog
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// headUnitInfo maps the configuration to the advertised service record.
func headUnitInfo(cfg *config.Config) *discovery.HeadUnitInfo {
	return &discovery.HeadUnitInfo{
		Name:    cfg.HeadUnit.Name,
		Make:    cfg.HeadUnit.Make,
		Model:   cfg.HeadUnit.Model,
		Year:    cfg.HeadUnit.Year,
		Version: session.Current.String(),
		Status:  discovery.StatusWaiting,
		Port:    uint16(cfg.Transport.TCPPort),
	}
}

// logLevel maps the configured level name to a slog level.
func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// consoleWriter forwards writes to a swappable destination.
type consoleWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (cw *consoleWriter) Write(p []byte) (int, error) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.w.Write(p)
}

// Swap redirects subsequent writes to w.
func (cw *consoleWriter) Swap(w io.Writer) {
	cw.mu.Lock()
	cw.w = w
	cw.mu.Unlock()
}
