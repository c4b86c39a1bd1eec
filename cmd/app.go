package main

import (
	"database/sql"
	"fmt"
	"time"

	"alpha_innotec_planner/internal/config"
	"alpha_innotec_planner/internal/device"
	"alpha_innotec_planner/internal/logger"
	"alpha_innotec_planner/internal/notify"
	"alpha_innotec_planner/internal/planner"
	"alpha_innotec_planner/internal/prices"
	"alpha_innotec_planner/internal/repository"
	"alpha_innotec_planner/internal/repository/db"
	"alpha_innotec_planner/internal/service"
)

// app holds everything a command needs once configuration is loaded.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *sql.DB
	repos    *repository.Repository
	notifier notify.Publisher
	planning *service.PlannerService
	services *service.Service
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log := logger.Configure(cfg.Log.Level, cfg.Log.Format)

	conn, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("init sqlite: %w", err)
	}
	a := &app{cfg: cfg, log: log, db: conn}

	a.repos, err = repository.NewRepository(conn, cfg.State)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.notifier, err = notify.New(cfg.MQTT, log.Named("mqtt"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect mqtt: %w", err)
	}

	settings, err := service.SettingsFromConfig(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.planning = service.NewPlannerService(settings, service.PlannerDeps{
		Connector: service.DeviceConnector{
			Options: device.Options{
				Host:            cfg.Device.Host,
				Port:            cfg.Device.Port,
				ResponseTimeout: cfg.Device.ResponseTimeout,
			},
			Log: log.Named("device"),
		},
		Prices:   prices.NewFileSource(cfg.Prices.File),
		State:    a.repos.State,
		Events:   a.repos.Events,
		Notifier: a.notifier,
		Planner:  planner.New(plannerSettings(cfg.Planner), nil),
		Log:      log.Named("planner"),
	})
	a.services = service.NewService(a.repos, a.planning, cfg.HTTP)
	return a, nil
}

// plannerSettings maps the planner section of the configuration.
func plannerSettings(p config.PlannerConfig) planner.Settings {
	return planner.Settings{
		LoadProfile:             p.LoadProfile,
		DisinfectionLoadProfile: p.DisinfectionLoadProfile,
		MinHours:                p.MinHoursSinceLastDisinfection,
		MaxHours:                p.MaxHoursSinceLastDisinfection,
		Lookahead:               time.Duration(p.LookaheadHours) * time.Hour,
		JitterMaxMinutes:        p.JitterMaxMinutes,
		BlockHeating:            p.BlockHeatingDuringWorstPrices,
	}
}

func (a *app) Close() {
	if a.notifier != nil {
		a.notifier.Close()
	}
	if a.repos != nil {
		if err := a.repos.Close(); err != nil {
			a.log.Errorw("failed to close state store", "err", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Errorw("failed to close sqlite", "err", err)
		}
	}
}
