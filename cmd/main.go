// inputrelay - remote input receiver
// Receives touch, key and pointer events from a remote sender and injects
// them into virtual devices or relays them to a compositor surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"inputrelay/internal/api"
	"inputrelay/internal/autostart"
	"inputrelay/internal/config"
	"inputrelay/internal/input"
	"inputrelay/internal/metrics"
	"inputrelay/internal/protocol"
	"inputrelay/internal/receiver"
	"inputrelay/internal/service"
	"inputrelay/internal/tray"
)

var (
	version    = "0.1.0"
	configPath = flag.String("config", "", "Path to config file (.json, .yaml or .yml)")
	addr       = flag.String("addr", "", "Input sender address")
	port       = flag.Int("port", 0, "Input sender port")
	surface    = flag.Uint("surface", 0, "Relay events to this surface id instead of virtual devices")
	output     = flag.Int("output", 0, "Index of the output touch coordinates are mapped into")
	verbose    = flag.Int("verbose", 0, "Verbosity (2 logs every frame)")
	apiPort    = flag.Int("api", 0, "Serve status API on this port (0 uses config)")
	showTray   = flag.Bool("tray", false, "Show system tray icon")
	uinputPath = flag.String("uinput", "", "uinput device node")
	autoStart  = flag.String("autostart", "", "Install (on), remove (off) or report (status) the login unit and exit")
	writeCfg   = flag.Bool("write-config", false, "Write the effective configuration to the config file and exit")
	showVer    = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("inputrelay version %s\n", version)
		return
	}

	if *autoStart != "" {
		handleAutostart(*autoStart)
		return
	}

	cfgMgr, err := newConfigManager()
	if err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}
	if err := cfgMgr.Load(); err != nil {
		log.Printf("Warning: failed to load config: %v", err)
	}
	cfg := *cfgMgr.Get()
	applyFlags(&cfg)
	cfgMgr.Set(&cfg)

	if *writeCfg {
		if err := cfgMgr.Save(); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Wrote %s\n", cfgMgr.Path())
		return
	}
	if !cfgMgr.Exists() {
		log.Printf("No config file at %s; using defaults and flags (-write-config creates it)", cfgMgr.Path())
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("Warning: invalid configuration: %v", err)
	}

	runService(&cfg)
}

func newConfigManager() (*config.Manager, error) {
	if *configPath != "" {
		return config.NewManagerAt(*configPath), nil
	}
	return config.NewManager()
}

func handleAutostart(mode string) {
	dir, err := autostart.UnitDir()
	if err != nil {
		log.Fatalf("Failed to locate unit directory: %v", err)
	}

	switch mode {
	case "on":
		execPath, err := os.Executable()
		if err != nil {
			log.Fatalf("Failed to get executable path: %v", err)
		}
		var args []string
		if *configPath != "" {
			args = append(args, "-config", *configPath)
		}
		if err := autostart.Enable(dir, execPath, args...); err != nil {
			log.Fatalf("Failed to enable autostart: %v", err)
		}
		fmt.Printf("Installed %s in %s\n", autostart.UnitName, dir)
	case "off":
		if err := autostart.Disable(dir); err != nil {
			log.Fatalf("Failed to disable autostart: %v", err)
		}
		fmt.Printf("Removed %s\n", autostart.UnitName)
	case "status":
		if autostart.IsEnabled(dir) {
			fmt.Printf("Autostart enabled (%s in %s)\n", autostart.UnitName, dir)
		} else {
			fmt.Println("Autostart disabled")
		}
	default:
		log.Fatalf("Unknown -autostart value %q (want on, off or status)", mode)
	}
}

// applyFlags overrides file values with flags given on the command line.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Relay.Address = *addr
		case "port":
			cfg.Relay.Port = *port
		case "surface":
			cfg.Target.SurfaceID = uint32(*surface)
		case "output":
			cfg.Target.OutputNumber = *output
		case "verbose":
			cfg.General.Verbose = *verbose
		case "api":
			cfg.General.APIEnabled = *apiPort > 0
			cfg.General.APIPort = *apiPort
		case "tray":
			cfg.General.TrayEnabled = *showTray
		case "uinput":
			cfg.General.UinputPath = *uinputPath
		}
	})
}

func newBackend(cfg *config.Config) *input.UinputBackend {
	backend := input.NewUinputBackend()
	if cfg.General.UinputPath != "" {
		backend.Path = cfg.General.UinputPath
	}
	return backend
}

func runService(cfg *config.Config) {
	log.Println("Input relay receiver starting...")

	m := metrics.New()

	var (
		apiServer *api.Server
		t         *tray.Tray
		current   atomic.Pointer[receiver.Listener]
	)

	onStatus := func(s receiver.Status) {
		if apiServer != nil {
			apiServer.BroadcastStatus(s.Payload())
		}
		if t != nil {
			t.SetStatus(tray.StatusText(s.Connected, s.Remote))
		}
	}

	statusFunc := func() protocol.StatusPayload {
		l := current.Load()
		if l == nil {
			return protocol.StatusPayload{}
		}
		return l.Status().Payload()
	}

	if cfg.General.APIEnabled {
		apiServer = api.NewServer(cfg.General.APIToken, statusFunc, nil)
		go func() {
			if err := apiServer.Start(cfg.General.APIPort); err != nil {
				log.Printf("API server error: %v", err)
			}
		}()
	}
	if cfg.General.TrayEnabled {
		t = tray.New("inputrelay", "Input relay receiver")
	}

	// A receiver that fails to start is reported as disabled; the API and
	// tray keep running until a signal arrives.
	if listener := service.StartReceiver(cfg, newBackend(cfg), m, onStatus); listener != nil {
		current.Store(listener)
	}

	shutdown := func() {
		current.Load().Stop()
		if apiServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := apiServer.Shutdown(ctx); err != nil {
				log.Printf("API shutdown error: %v", err)
			}
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if t != nil {
		if current.Load() == nil {
			t.SetStatus(tray.StatusText(false, ""))
		}
		t.AddSeparator()
		t.AddMenuItem("Quit", func() {
			t.Stop()
		})
		go func() {
			<-sigCh
			log.Println("Shutting down...")
			t.Stop()
		}()

		log.Println("Input relay running. Press Ctrl+C to stop.")
		t.Run()
		shutdown()
		return
	}

	log.Println("Input relay running. Press Ctrl+C to stop.")
	<-sigCh
	log.Println("Shutting down...")
	shutdown()
}
