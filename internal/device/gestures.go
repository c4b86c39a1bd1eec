package device

import (
	"context"
	"fmt"
	"strings"
)

// GestureKind is one remote-control action.
type GestureKind int

const (
	GestureNavigate GestureKind = iota
	GestureRight
	GestureLeft
	GestureClick
)

func (k GestureKind) String() string {
	switch k {
	case GestureNavigate:
		return "navigate"
	case GestureRight:
		return "right"
	case GestureLeft:
		return "left"
	case GestureClick:
		return "click"
	default:
		return fmt.Sprintf("gesture(%d)", int(k))
	}
}

// Gesture is a single step of a Script. Path is used by GestureNavigate,
// Repeat by the others (0 counts as 1).
type Gesture struct {
	Kind   GestureKind
	Path   string
	Repeat int
}

// Navigate opens the screen at path.
func Navigate(path string) Gesture { return Gesture{Kind: GestureNavigate, Path: path} }

// Right turns the dial clockwise n times.
func Right(n int) Gesture { return Gesture{Kind: GestureRight, Repeat: n} }

// Left turns the dial counter-clockwise n times.
func Left(n int) Gesture { return Gesture{Kind: GestureLeft, Repeat: n} }

// Click presses the dial n times.
func Click(n int) Gesture { return Gesture{Kind: GestureClick, Repeat: n} }

// Script is a named, fixed sequence of gestures that reaches one control in
// the controller menu. EndsHome marks scripts whose last gesture leaves the
// controller on its home screen.
type Script struct {
	Name     string
	Gestures []Gesture
	EndsHome bool
}

func (s Script) String() string {
	parts := make([]string, 0, len(s.Gestures))
	for _, g := range s.Gestures {
		if g.Kind == GestureNavigate {
			parts = append(parts, "navigate("+g.Path+")")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s×%d", g.Kind, max(g.Repeat, 1)))
	}
	return s.Name + ": " + strings.Join(parts, ", ")
}

// Firmware holds the menu layout of one controller firmware generation.
// Menu hops are only valid for the layout they were recorded on; a new
// firmware gets a new profile.
type Firmware struct {
	Version string

	TapWaterSchedulePath string
	HeatingSchedulePath  string
	TemperaturesPath     string

	TapWaterSetpointField string
	SetpointStep          float64

	ToggleContinuousDisinfection Script
	OpenTapWaterSetpoint         Script
	ApplyTapWaterSetpoint        Script
}

// FirmwareV3 is the Dutch menu layout of Luxtronik 2.1 controllers with
// V3.x software.
var FirmwareV3 = Firmware{
	Version: "V3",

	TapWaterSchedulePath: "Klokprogramma > Warmwater > Week",
	HeatingSchedulePath:  "Klokprogramma > Verwarmen > Week",
	TemperaturesPath:     "Informatie > Temperaturen",

	TapWaterSetpointField: "Tapwater ingesteld",
	SetpointStep:          0.5,

	// Home > Warmwater > Instellingen > Continu thermische desinfectie.
	ToggleContinuousDisinfection: Script{
		Name:     "toggle_continuous_disinfection",
		EndsHome: true,
		Gestures: []Gesture{
			Right(3),
			Click(1),
			Right(1),
			Click(1),
			Right(6),
			Click(2),
			Right(1),
			Click(1),
			Left(7),
			Click(2),
		},
	},
	// Home > Warmwater > Temperatuur with the setpoint field in edit mode.
	OpenTapWaterSetpoint: Script{
		Name: "open_tap_water_setpoint",
		Gestures: []Gesture{
			Right(3),
			Click(1),
			Right(2),
			Click(1),
			Click(1),
		},
	},
	// Leaves the setpoint editor, confirms and returns to home.
	ApplyTapWaterSetpoint: Script{
		Name:     "apply_tap_water_setpoint",
		EndsHome: true,
		Gestures: []Gesture{
			Right(1),
			Click(1),
			Right(1),
			Click(2),
		},
	},
}

// Firmwares lists the known profiles by version.
var Firmwares = map[string]Firmware{
	FirmwareV3.Version: FirmwareV3,
}

// LookupFirmware returns the profile for version; empty selects FirmwareV3.
func LookupFirmware(version string) (Firmware, error) {
	if version == "" {
		return FirmwareV3, nil
	}
	fw, ok := Firmwares[version]
	if !ok {
		return Firmware{}, fmt.Errorf("unknown firmware profile %q", version)
	}
	return fw, nil
}

// homeTracker is implemented by remotes that track whether the controller
// shows its home screen.
type homeTracker interface {
	ReturnedHome()
}

// RunScript replays script on r in order and stops at the first failure.
// After a complete EndsHome script the remote is told it is back home.
func RunScript(ctx context.Context, r Remote, script Script) error {
	for i, g := range script.Gestures {
		if err := runGesture(ctx, r, g); err != nil {
			return fmt.Errorf("script %s step %d (%s): %w", script.Name, i, g.Kind, err)
		}
	}
	if h, ok := r.(homeTracker); ok && script.EndsHome {
		h.ReturnedHome()
	}
	return nil
}

func runGesture(ctx context.Context, r Remote, g Gesture) error {
	if g.Kind == GestureNavigate {
		_, err := r.NavigateTo(ctx, g.Path)
		return err
	}
	var step func(context.Context) error
	switch g.Kind {
	case GestureRight:
		step = r.MoveRight
	case GestureLeft:
		step = r.MoveLeft
	case GestureClick:
		step = r.Click
	default:
		return fmt.Errorf("unsupported gesture %s", g.Kind)
	}
	for range max(g.Repeat, 1) {
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}
