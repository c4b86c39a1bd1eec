package device

import (
	"context"
	"fmt"
	"math"

	"alpha_innotec_planner/internal/logger"
)

// setpointTolerance absorbs float noise in readings like "57.0°C".
const setpointTolerance = 1e-6

// TemperatureAdjuster nudges the tap water setpoint to a target.
type TemperatureAdjuster struct {
	fw  Firmware
	log *logger.Logger
}

func NewTemperatureAdjuster(fw Firmware, log *logger.Logger) *TemperatureAdjuster {
	return &TemperatureAdjuster{fw: fw, log: logger.OrNop(log)}
}

// Steps returns the number of dial pulses between current and target and
// whether they raise the setpoint.
func Steps(current, target, step float64) (int, bool) {
	diff := target - current
	if math.Abs(diff) <= setpointTolerance || step <= 0 {
		return 0, false
	}
	return int(math.Ceil(math.Abs(diff)/step - setpointTolerance)), diff > 0
}

// CurrentSetpoint reads the configured tap water temperature.
func (a *TemperatureAdjuster) CurrentSetpoint(ctx context.Context, r Remote) (float64, error) {
	screen, err := r.NavigateTo(ctx, a.fw.TemperaturesPath)
	if err != nil {
		return 0, err
	}
	return ReadValue(a.fw.TapWaterSetpointField, screen)
}

// SetTemperature changes the tap water setpoint to target. It returns
// whether the device was touched.
func (a *TemperatureAdjuster) SetTemperature(ctx context.Context, r Remote, target float64) (bool, error) {
	current, err := a.CurrentSetpoint(ctx, r)
	if err != nil {
		return false, err
	}
	n, raise := Steps(current, target, a.fw.SetpointStep)
	if n == 0 {
		a.log.Infow("setpoint_unchanged", "current", current)
		return false, nil
	}

	if err := RunScript(ctx, r, a.fw.OpenTapWaterSetpoint); err != nil {
		return false, err
	}
	move := r.MoveLeft
	if raise {
		move = r.MoveRight
	}
	for i := 0; i < n; i++ {
		if err := move(ctx); err != nil {
			return false, fmt.Errorf("setpoint step %d/%d: %w", i+1, n, err)
		}
	}
	if err := r.Click(ctx); err != nil {
		return false, err
	}
	if err := RunScript(ctx, r, a.fw.ApplyTapWaterSetpoint); err != nil {
		return false, err
	}

	a.log.Infow("setpoint_changed", "from", current, "to", target, "steps", n, "raise", raise)
	return true, nil
}
