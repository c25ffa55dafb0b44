package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"airmonitor"
	_ "airmonitor/docs"
	"airmonitor/internal/config"
	"airmonitor/internal/connectivity"
	"airmonitor/internal/device"
	"airmonitor/internal/display"
	"airmonitor/internal/handlers"
	"airmonitor/internal/logger"
	"airmonitor/internal/metrics"
	"airmonitor/internal/models"
	"airmonitor/internal/repository"
	"airmonitor/internal/repository/db"
	"airmonitor/internal/sensors"
	"airmonitor/internal/server"
	"airmonitor/internal/service"
	"airmonitor/internal/watchdog"
)

const (
	eventQueueSize    = 64
	batteryDrainEvery = 3 * time.Minute
	shutdownTimeout   = 10 * time.Second
	resetEventTimeout = 2 * time.Second
)

// @title        airmonitor config server
// @version      1.0
// @description  Pairing, preferences, live state and event log of an air quality monitor.
// @BasePath     /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}

	// the terminal belongs to the TUI, so logs go to a file
	var outputs []string
	if cfg.Display.Mode == config.DisplayTUI {
		outputs = append(outputs, cfg.Display.LogFile)
	}
	log := logger.Get(cfg.Device.LogLevel, outputs...)
	defer func() { _ = log.Sync() }()

	metrics.Init()

	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()
	repos := repository.NewRepository(sqlDB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := wire(ctx, cfg, repos, log, cancel)
	if err != nil {
		log.Fatalw("failed to wire device", "err", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.recorder.Run(ctx)
	}()

	bootSupervised(ctx, &wg, app.wd, app.dev.Boot)
	app.conn.StartFirmwareChecks()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.dev.Run(ctx)
	}()

	if app.tui != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := app.tui.Run(ctx); err != nil {
				log.Errorw("tui_failed", "err", err)
			}
		}()
	}

	waitForShutdown(ctx, cancel, app.srv, log)
	if err := app.conn.Close(); err != nil {
		log.Warnw("connectivity_close_failed", "err", err)
	}
	wg.Wait()
	log.Infow("stopped", "events_dropped", app.recorder.Dropped())
}

type application struct {
	dev      *device.Device
	conn     *connectivity.Manager
	wd       *watchdog.Supervisor
	recorder *service.EventRecorder
	srv      *server.Server
	tui      *display.TUI
}

// wire builds every component. Construction order follows the dependencies:
// the config server handler exists before the device, and its services are
// filled once the device is built.
func wire(ctx context.Context, cfg config.Config, repos *repository.Repository, log *logger.Logger, quit context.CancelFunc) (*application, error) {
	app := &application{srv: &server.Server{}}

	sensorType, err := sensors.ParseType(cfg.Defaults.SensorType)
	if err != nil {
		return nil, err
	}

	app.recorder = service.NewEventRecorder(repos.Events, eventQueueSize, log.Named("events"))

	store := service.NewConfigStore(repos.Settings, models.DeviceConfiguration{
		WifiEnabled:    cfg.Defaults.WifiEnabled,
		Brightness:     cfg.Defaults.Brightness,
		ColorsInverted: cfg.Defaults.ColorsInverted,
		SampleTime:     cfg.Defaults.SampleTime,
		SensorType:     sensorType,
		TempOffset:     cfg.Defaults.TempOffset,
		I2COnly:        cfg.Defaults.I2COnly,
		DebugMode:      cfg.Defaults.DebugMode,
		SSID:           cfg.Defaults.SSID,
		InfluxEnabled:  cfg.Defaults.InfluxEnabled,
	}, service.HardwareID(cfg.Device.HardwareID), log.Named("config"))

	build := models.FirmwareInfo{
		Version:  airmonitor.Version,
		Flavor:   airmonitor.Flavor,
		Target:   airmonitor.Target,
		Revision: airmonitor.Revision,
	}

	// preference changes from the terminal go through the same bridge as the config server
	var dev *device.Device
	submit := func(c models.PreferenceChange) error { return dev.Preferences().Submit(c) }

	var renderer display.Renderer = display.NewLogRenderer(log.Named("display"))
	if cfg.Display.Mode == config.DisplayTUI {
		app.tui = display.NewTUI(submit, quit)
		renderer = app.tui
	}
	panel := display.NewPanel(renderer)

	pairing, err := service.NewPairingService(cfg.Server.PIN, cfg.Server.Secret, cfg.Server.TokenTTL, store.DeviceID)
	if err != nil {
		return nil, err
	}

	services := &service.Service{}
	h := handlers.NewHandler(services, log.Named("http"), handlers.WithAllowedOrigins(cfg.Server.AllowedOrigins))

	var checker *connectivity.FirmwareChecker
	if cfg.Firmware.ManifestURL != "" {
		checker, err = connectivity.NewFirmwareChecker(cfg.Firmware.ManifestURL, cfg.Firmware.CheckInterval, cfg.Firmware.Timeout,
			build, app.recorder, log.Named("firmware"))
		if err != nil {
			log.Warnw("firmware_checks_disabled", "err", err)
			checker = nil
		}
	}

	app.conn = connectivity.NewManager(connectivity.Deps{
		Config:   store,
		Link:     connectivity.DialLink{ProbeAddr: cfg.Wifi.ProbeAddr, Timeout: cfg.Wifi.DialTimeout},
		Notifier: h.Hub(),
		StartServer: func() error {
			return startConfigServer(app.srv, cfg.Server, h, log)
		},
		State: func() any {
			st, _ := services.Monitoring.GetState(ctx)
			return st
		},
		NewPublisher: func() (connectivity.Publisher, error) {
			return connectivity.NewPublisher(connectivity.PublisherConfig{
				Backend:  cfg.Cloud.Backend,
				Brokers:  cfg.Cloud.Brokers,
				Topic:    cfg.Cloud.Topic,
				ClientID: "airmonitor-" + store.DeviceID(),
				Timeout:  cfg.Cloud.Timeout,
			})
		},
		Breaker: connectivity.NewBreaker("cloud", connectivity.BreakerConfig{
			MaxFailures:  cfg.Cloud.BreakerFails,
			ResetTimeout: cfg.Cloud.BreakerTimeout,
		}, log.Named("breaker")),
		Firmware: checker,
		Build:    build,
		Events:   app.recorder,
		Log:      log.Named("connectivity"),
	}, connectivity.Options{
		WifiRetry:      cfg.Wifi.RetryInterval,
		PublishQueue:   cfg.Cloud.QueueSize,
		PublishTimeout: cfg.Cloud.Timeout,
	})

	app.wd = watchdog.New(cfg.Watchdog.Timeout, func() { reset(repos, log) }, watchdog.WithLogger(log.Named("watchdog")))

	dev, err = device.New(device.Components{
		Config:       store,
		Sensors:      sensors.NewSimulatedHub(sensors.HubConfig{Present: cfg.Sensors.Present, Seed: cfg.Sensors.Seed, ErrorRate: cfg.Sensors.ErrorRate}, log.Named("sensors")),
		Display:      panel,
		Connectivity: app.conn,
		Battery:      sensors.NewSimulatedBattery(batteryDrainEvery),
		Watchdog:     app.wd,
		Events:       app.recorder,
	}, device.Options{
		Namespace: cfg.Device.Namespace,
		Firmware: device.Firmware{
			Version:  build.Version,
			Flavor:   build.Flavor,
			Target:   build.Target,
			Revision: build.Revision,
		},
		QueueSize:  cfg.Server.QueueSize,
		StepBudget: cfg.Scheduler.StepBudget,
		Idle:       cfg.Scheduler.Idle,
	}, log.Named("device"))
	if err != nil {
		return nil, err
	}
	app.dev = dev

	*services = *service.NewService(repos, service.NewMonitoringService(store, panel, app.conn), pairing, dev.Preferences())
	return app, nil
}

type supervisor interface {
	Run(ctx context.Context)
}

// bootSupervised starts the watchdog checker before boot. The sequencer arms
// the watchdog midway through startup, and later steps must be supervised too.
func bootSupervised(ctx context.Context, wg *sync.WaitGroup, wd supervisor, boot func(context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		wd.Run(ctx)
	}()
	boot(ctx)
}

// startConfigServer binds synchronously so a busy port is reported as a
// startup error, then serves in the background.
func startConfigServer(srv *server.Server, cfg config.ServerConfig, h *handlers.Handler, log *logger.Logger) error {
	if err := srv.Listen(cfg.Port, server.WithCORS(h.InitRoutes(), cfg.AllowedOrigins)); err != nil {
		return err
	}
	log.Infow("config_server_listening", "addr", srv.Addr())
	go func() {
		if err := srv.Serve(); err != nil {
			log.Errorw("config_server_failed", "err", err)
		}
	}()
	return nil
}

// reset records the watchdog expiry and replaces the process with a fresh
// copy, which boots from the start.
func reset(repos *repository.Repository, log *logger.Logger) {
	log.Errorw("watchdog_reset")
	ctx, cancel := context.WithTimeout(context.Background(), resetEventTimeout)
	defer cancel()
	if err := repos.Events.Append(ctx, models.DeviceEvent{
		Type:        models.EventWatchdogReset,
		Description: "main loop stalled; restarting",
	}); err != nil {
		log.Errorw("watchdog_event_failed", "err", err)
	}
	_ = log.Sync()

	exe, err := os.Executable()
	if err != nil {
		log.Fatalw("watchdog_reexec_failed", "err", err)
	}
	if err := syscall.Exec(exe, os.Args, os.Environ()); err != nil {
		log.Fatalw("watchdog_reexec_failed", "err", err)
	}
}

// waitForShutdown blocks until a termination signal or ctx is canceled, then
// stops background work and lets in-flight requests complete.
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Infow("shutting down...")
	cancel()

	sctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
