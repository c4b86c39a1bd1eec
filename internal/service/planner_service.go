package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"alpha_innotec_planner/internal/config"
	"alpha_innotec_planner/internal/device"
	"alpha_innotec_planner/internal/logger"
	"alpha_innotec_planner/internal/models"
	"alpha_innotec_planner/internal/planner"
	"alpha_innotec_planner/internal/prices"
	"alpha_innotec_planner/internal/repository"
)

// ErrRunInProgress is returned when a run is triggered while another one
// still holds the device.
var ErrRunInProgress = errors.New("a planner run is already in progress")

// RunTimeout bounds one planner run started by a trigger. It stays below the
// HTTP write timeout so a manual run can still report its result.
const RunTimeout = 2 * time.Minute

// DetachRun returns the context a triggered run executes under. The run
// keeps the values of parent but not its cancellation: a client that hangs
// up or a scheduler that stops must not abort a device session half way.
// The run is bounded by RunTimeout instead.
func DetachRun(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), RunTimeout)
}

// DeviceSession is what a run needs from a controller connection.
// *device.Session implements it.
type DeviceSession interface {
	device.Remote
	Login(ctx context.Context, code string) error
	Close() error
}

// Connector opens a fresh session for each run.
type Connector interface {
	Connect(ctx context.Context) (DeviceSession, error)
}

// DeviceConnector dials the controller over its websocket.
type DeviceConnector struct {
	Options device.Options
	Log     *logger.Logger
}

func (c DeviceConnector) Connect(ctx context.Context) (DeviceSession, error) {
	s, err := device.Dial(ctx, c.Options, c.Log)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Notifier receives the result of every run.
type Notifier interface {
	Publish(ctx context.Context, v any) error
}

// PlannerSettings are the device-facing parts of the configuration.
type PlannerSettings struct {
	LoginCode               string
	Firmware                device.Firmware
	HeatpumpLocation        *time.Location
	DesiredTemperature      float64
	DisinfectionTemperature float64
}

// SettingsFromConfig extracts PlannerSettings from a validated config.
func SettingsFromConfig(cfg *config.Config) (PlannerSettings, error) {
	fw, err := device.LookupFirmware(cfg.Device.Firmware)
	if err != nil {
		return PlannerSettings{}, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	return PlannerSettings{
		LoginCode:               cfg.Device.LoginCode,
		Firmware:                fw,
		HeatpumpLocation:        cfg.HeatpumpLocation(),
		DesiredTemperature:      cfg.Planner.DesiredTapWaterTemperature,
		DisinfectionTemperature: cfg.Planner.DisinfectionTapWaterTemperature,
	}, nil
}

// PlannerDeps are the collaborators of a PlannerService. Notifier and Now
// are optional.
type PlannerDeps struct {
	Connector Connector
	Prices    prices.Source
	State     repository.StateStore
	Events    repository.EventRepo
	Notifier  Notifier
	Planner   *planner.Planner
	Now       func() time.Time
	Log       *logger.Logger
}

// PlannerService sequences one run: plan from prices and the previous
// state, program the device in a single session, then persist.
type PlannerService struct {
	settings PlannerSettings
	deps     PlannerDeps
	codec    *device.ScheduleCodec
	adjuster *device.TemperatureAdjuster
	log      *logger.Logger

	guard sync.Mutex
}

func NewPlannerService(settings PlannerSettings, deps PlannerDeps) *PlannerService {
	log := logger.OrNop(deps.Log)
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if settings.Firmware.Version == "" {
		settings.Firmware = device.FirmwareV3
	}
	if settings.HeatpumpLocation == nil {
		settings.HeatpumpLocation = time.UTC
	}
	return &PlannerService{
		settings: settings,
		deps:     deps,
		codec:    device.NewScheduleCodec(settings.HeatpumpLocation, log.Named("schedule")),
		adjuster: device.NewTemperatureAdjuster(settings.Firmware, log.Named("setpoint")),
		log:      log,
	}
}

// Preview computes the plan a run would execute now, without touching the
// device or the stored state.
func (s *PlannerService) Preview(ctx context.Context) (planner.Plan, error) {
	now := s.deps.Now()
	prev, err := s.loadState(ctx, now)
	if err != nil {
		return planner.Plan{}, err
	}
	return s.buildPlan(ctx, now, prev)
}

// Run executes one planner run. Overlapping calls fail fast with
// ErrRunInProgress.
func (s *PlannerService) Run(ctx context.Context) (RunResult, error) {
	if !s.guard.TryLock() {
		return RunResult{}, ErrRunInProgress
	}
	defer s.guard.Unlock()

	res := RunResult{RunID: uuid.NewString(), StartedAt: s.deps.Now().UTC()}
	log := s.log.With("run_id", res.RunID)
	log.Infow("run_started")
	s.appendEvent(ctx, log, res.RunID, models.EventRunStarted, "Planner run started", nil)

	err := s.run(ctx, &res, log)
	res.FinishedAt = s.deps.Now().UTC()
	if err != nil {
		res.Error = err.Error()
		log.Errorw("run_failed", "err", err)
		s.appendEvent(ctx, log, res.RunID, models.EventRunFailed, "Planner run failed", map[string]any{
			"error": err.Error(),
		})
		s.publish(ctx, log, res)
		return res, err
	}

	log.Infow("run_finished", "skipped", res.Skipped, "disinfection", res.Plan.IsDisinfection)
	s.appendEvent(ctx, log, res.RunID, models.EventRunFinished, "Planner run finished", map[string]any{
		"skipped":      res.Skipped,
		"disinfection": res.Plan.IsDisinfection,
	})
	s.publish(ctx, log, res)
	return res, nil
}

func (s *PlannerService) run(ctx context.Context, res *RunResult, log *logger.Logger) error {
	now := res.StartedAt
	prev, err := s.loadState(ctx, now)
	if err != nil {
		return err
	}
	plan, err := s.buildPlan(ctx, now, prev)
	if err != nil {
		return err
	}
	res.Plan = plan
	log.Infow("plan_selected",
		"start", plan.Chosen.Start(),
		"end", plan.Chosen.End(),
		"disinfection", plan.IsDisinfection,
		"shift", plan.Shift,
		"blocking_start", plan.BlockingWindow.Start(),
	)
	s.appendEvent(ctx, log, res.RunID, models.EventPlanSelected, planDescription(plan), map[string]any{
		"start":          plan.Chosen.Start(),
		"end":            plan.Chosen.End(),
		"disinfection":   plan.IsDisinfection,
		"shift_seconds":  plan.Shift.Seconds(),
		"blocking_start": plan.BlockingWindow.Start(),
		"blocking_end":   plan.BlockingWindow.End(),
	})

	if plan.Chosen.IsEmpty() && plan.BlockingWindow.IsEmpty() {
		res.Skipped = true
		log.Infow("run_skipped", "reason", "no usable price window")
		s.appendEvent(ctx, log, res.RunID, models.EventRunSkipped, "No usable price window; device left unchanged", nil)
		return nil
	}

	next, err := s.apply(ctx, res, prev, plan, log)
	if err != nil {
		return err
	}
	if err := s.deps.State.Save(ctx, next); err != nil {
		return fmt.Errorf("persist run state: %w", err)
	}
	res.State = &next
	return nil
}

// apply performs every device mutation of the run in one session and
// returns the state to persist.
func (s *PlannerService) apply(ctx context.Context, res *RunResult, prev models.RunState, plan planner.Plan, log *logger.Logger) (models.RunState, error) {
	fw := s.settings.Firmware

	sess, err := s.deps.Connector.Connect(ctx)
	if err != nil {
		return models.RunState{}, err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.Warnw("device_close_failed", "err", cerr)
		}
	}()
	if err := sess.Login(ctx, s.settings.LoginCode); err != nil {
		return models.RunState{}, fmt.Errorf("login: %w", err)
	}

	next := prev
	next.UpdatedAt = time.Time{}

	if !plan.Chosen.IsEmpty() {
		interval := device.Interval{From: plan.Chosen.Start(), Till: plan.Chosen.End()}
		slots, err := s.codec.Rewrite(ctx, sess, fw.TapWaterSchedulePath, interval, device.ModeAllow)
		if err != nil {
			return models.RunState{}, fmt.Errorf("tap water schedule: %w", err)
		}
		res.TapWaterSlots = slots
		s.appendEvent(ctx, log, res.RunID, models.EventScheduleWritten, "Tap water schedule written", map[string]any{
			"schedule": "tap_water",
			"slots":    slots,
		})

		if plan.IsDisinfection != prev.DisinfectionEnabled {
			if err := device.RunScript(ctx, sess, fw.ToggleContinuousDisinfection); err != nil {
				return models.RunState{}, fmt.Errorf("toggle disinfection: %w", err)
			}
			res.DisinfectionToggled = true
			log.Infow("disinfection_toggled", "enabled", plan.IsDisinfection)
			s.appendEvent(ctx, log, res.RunID, models.EventDisinfectionToggled, "Continuous disinfection toggled", map[string]any{
				"enabled": plan.IsDisinfection,
			})
		}

		target := s.settings.DesiredTemperature
		if plan.IsDisinfection {
			target = s.settings.DisinfectionTemperature
		}
		changed, err := s.adjuster.SetTemperature(ctx, sess, target)
		if err != nil {
			return models.RunState{}, fmt.Errorf("tap water setpoint: %w", err)
		}
		res.Temperature = target
		res.TemperatureChanged = changed
		s.appendEvent(ctx, log, res.RunID, models.EventTemperatureSet, fmt.Sprintf("Tap water setpoint %.1f°C", target), map[string]any{
			"target":  target,
			"changed": changed,
		})

		next.DisinfectionEnabled = plan.IsDisinfection
		if plan.IsDisinfection {
			finished := plan.Chosen.End().UTC()
			next.DisinfectionFinishedAt = &finished
		}
		next.PlannedPriceWindow = plan.Chosen
	}

	if !plan.BlockingWindow.IsEmpty() {
		interval := device.Interval{From: plan.BlockingWindow.Start(), Till: plan.BlockingWindow.End()}
		slots, err := s.codec.Rewrite(ctx, sess, fw.HeatingSchedulePath, interval, device.ModeBlock)
		if err != nil {
			return models.RunState{}, fmt.Errorf("heating schedule: %w", err)
		}
		res.HeatingSlots = slots
		s.appendEvent(ctx, log, res.RunID, models.EventScheduleWritten, "Heating block schedule written", map[string]any{
			"schedule": "heating",
			"slots":    slots,
		})
	}
	return next, nil
}

// loadState returns the previous state, or the first-run defaults.
func (s *PlannerService) loadState(ctx context.Context, now time.Time) (models.RunState, error) {
	prev, err := s.deps.State.Load(ctx)
	if err != nil {
		return models.RunState{}, fmt.Errorf("load run state: %w", err)
	}
	if prev == nil {
		return models.DefaultRunState(now), nil
	}
	return *prev, nil
}

func (s *PlannerService) buildPlan(ctx context.Context, now time.Time, prev models.RunState) (planner.Plan, error) {
	spot, err := s.deps.Prices.Load(ctx)
	if err != nil {
		return planner.Plan{}, fmt.Errorf("load spot prices: %w", err)
	}
	return s.deps.Planner.Build(now, prev.LastDisinfection(now), spot)
}

// appendEvent records a run event. A failing append never fails the run.
func (s *PlannerService) appendEvent(ctx context.Context, log *logger.Logger, runID, typ, description string, meta map[string]any) {
	if s.deps.Events == nil {
		return
	}
	err := s.deps.Events.Append(ctx, models.RunEvent{
		EventID:     uuid.NewString(),
		RunID:       runID,
		OccurredAt:  s.deps.Now().UTC(),
		Type:        typ,
		Description: description,
		Metadata:    meta,
	})
	if err != nil {
		log.Warnw("event_append_failed", "type", typ, "err", err)
	}
}

func (s *PlannerService) publish(ctx context.Context, log *logger.Logger, res RunResult) {
	if s.deps.Notifier == nil {
		return
	}
	if err := s.deps.Notifier.Publish(ctx, res); err != nil {
		log.Warnw("publish_failed", "err", err)
	}
}

func planDescription(p planner.Plan) string {
	switch {
	case p.Chosen.IsEmpty():
		return "No tap water window"
	case p.IsDisinfection:
		return fmt.Sprintf("Disinfection window %s - %s", p.Chosen.Start().Format(time.RFC3339), p.Chosen.End().Format(time.RFC3339))
	default:
		return fmt.Sprintf("Heating window %s - %s", p.Chosen.Start().Format(time.RFC3339), p.Chosen.End().Format(time.RFC3339))
	}
}
