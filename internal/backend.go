package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adstech/opensink/internal/api"
	"github.com/adstech/opensink/internal/configuration"
	"github.com/adstech/opensink/internal/controller"
	"github.com/adstech/opensink/internal/hal"
	"github.com/adstech/opensink/internal/nvm"
	"github.com/adstech/opensink/internal/statistics"
	"github.com/adstech/opensink/internal/transport"
	"github.com/adstech/opensink/internal/ui"
)

func RunDaemon() {
	if err := configuration.Validate(); err != nil {
		ui.Fatal("Invalid configuration: %v", err)
	}

	ctrl, lineIO := initializeController()
	defer lineIO.Close()

	statistics.Register(statistics.NewControllerCollector(ctrl))

	ctx, cancel := context.WithCancel(context.Background())

	var g run.Group
	{
		// === control loop
		g.Add(func() error {
			err := ctrl.Run(ctx)
			ui.Info("Control loop stopped.")
			return err
		}, func(err error) {
			if err != nil && err != context.Canceled {
				ui.Warning("Control loop error: %v", err)
			}
			cancel()
		})
	}
	{
		enabled := configuration.CurrentConfig.Statistics.Enabled
		if enabled {
			// === Prometheus Exporter
			g.Add(func() error {
				port := configuration.CurrentConfig.Statistics.Port
				if port <= 0 || port >= 65535 {
					port = 9000
				}
				addr := fmt.Sprintf(":%d", port)
				handler := promhttp.Handler()
				mux := http.NewServeMux()
				mux.Handle("/metrics", handler)
				server := &http.Server{Addr: addr, Handler: mux}
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					ui.Error("Cannot start prometheus metrics endpoint (%s)", err.Error())
				}

				<-ctx.Done()
				ui.Info("Stopping statistics server...")
				timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer timeoutCancel()
				return server.Shutdown(timeoutCtx)
			}, func(err error) {
				if err != nil {
					ui.Warning("Error stopping statistics server: " + err.Error())
				} else {
					ui.Info("Statistics server stopped.")
				}
			})
		}
	}
	{
		enabled := configuration.CurrentConfig.Api.Enabled
		if enabled {
			restService := api.CreateRestService(ctrl)
			g.Add(func() error {
				host := configuration.CurrentConfig.Api.Host
				port := configuration.CurrentConfig.Api.Port
				return restService.Start(fmt.Sprintf("%s:%d", host, port))
			}, func(err error) {
				timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer timeoutCancel()
				if err := restService.Shutdown(timeoutCtx); err != nil {
					ui.Warning("Error stopping api server: %v", err)
				} else {
					ui.Info("Api server stopped.")
				}
			})
		}
	}
	{
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

		g.Add(func() error {
			<-sig
			ui.Info("Received SIGTERM signal, exiting...")
			return nil
		}, func(err error) {
			defer close(sig)
			cancel()
		})
	}

	if err := g.Run(); err != nil && err != context.Canceled {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	} else {
		ui.Info("Done.")
		os.Exit(0)
	}
}

// initializeController builds the board, transport and settings store from
// the current configuration and wires them into one controller.
func initializeController() (*controller.Controller, *transport.LineIO) {
	config := configuration.CurrentConfig

	lineIO := transport.NewLineIO()
	attachSerialEndpoints(lineIO, config)

	bootTempDuty, err := config.BootTempDuty()
	if err != nil {
		ui.Fatal("Invalid tempToDuty table: %v", err)
	}
	bootAdcTemp, err := config.BootAdcTemp()
	if err != nil {
		ui.Fatal("Invalid adcToTemp table: %v", err)
	}

	board := buildBoard(config)

	ctrl := controller.New(controller.Options{
		Board:        board,
		Conn:         lineIO,
		Store:        buildStore(config.Store),
		FallbackPath: config.SettingsFallbackPath,
		BootTempDuty: bootTempDuty,
		BootAdcTemp:  bootAdcTemp,
		Status: func() (bool, bool) {
			status := lineIO.Status()
			return status.ConsoleConnected, status.DataConnected
		},
		StartupBlink: config.StartupBlink,
	})
	return ctrl, lineIO
}

func attachSerialEndpoints(lineIO *transport.LineIO, config configuration.Configuration) {
	for _, endpoint := range []struct {
		name string
		cfg  configuration.SerialConfig
	}{
		{transport.EndpointConsole, config.Console},
		{transport.EndpointData, config.Data},
	} {
		if endpoint.cfg.Device == "" {
			continue
		}
		serial, err := transport.OpenSerial(endpoint.cfg.Device, endpoint.cfg.Baud)
		if err != nil {
			ui.Fatal("Cannot open %s serial device %s: %v", endpoint.name, endpoint.cfg.Device, err)
		}
		lineIO.Attach(endpoint.name, serial)
		ui.Info("Attached %s endpoint at %s", endpoint.name, endpoint.cfg.Device)
	}
}

func buildBoard(config configuration.Configuration) hal.Board {
	if !config.Simulation {
		ui.Warning("No hardware backend available on this platform, using the simulated board")
	}
	board, _, _, _, _ := hal.NewSimBoard(hal.NewWallClock())
	return board
}

func buildStore(config configuration.StoreConfig) nvm.Store {
	switch config.Type {
	case "file":
		return nvm.NewFileStore(config.Path, config.Capacity)
	case "memory":
		return nvm.NewMemStore(config.Capacity)
	default:
		return nvm.NewBoltStore(config.Path, config.Capacity)
	}
}
