package device

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"alpha_innotec_planner/internal/logger"
)

const (
	timerFieldType = "timer"
	// highHalf shifts a minute-of-day into the upper half of a packed slot.
	highHalf   = 65536
	minutesDay = 24 * 60
)

// ScheduleSlot is one editable timer of a weekly schedule screen. The device
// reads Raw as the interval [low, high) in minutes since midnight, where
// high 0 means midnight at the end of the day.
type ScheduleSlot struct {
	ID    string
	Name  string
	Value string
	Raw   int
}

// Low returns the start boundary in minutes since midnight.
func (s ScheduleSlot) Low() int { return s.Raw % highHalf }

// High returns the end boundary in minutes since midnight.
func (s ScheduleSlot) High() int { return s.Raw / highHalf }

// Pack combines two minute-of-day boundaries into a slot value.
func Pack(low, high int) int { return low + highHalf*high }

// ParseSlots returns the timer items of a schedule screen in device order.
func ParseSlots(c *Content) ([]ScheduleSlot, error) {
	fields := c.FieldsOfType(timerFieldType)
	slots := make([]ScheduleSlot, 0, len(fields))
	for _, f := range fields {
		raw := 0
		if f.Raw != "" {
			v, err := strconv.Atoi(f.Raw)
			if err != nil {
				return nil, protocolErrorf("slot %s raw %q: %v", f.ID, f.Raw, err)
			}
			raw = v
		}
		slots = append(slots, ScheduleSlot{ID: f.ID, Name: f.Name, Value: f.Value, Raw: raw})
	}
	return slots, nil
}

// Mode selects what the written slots stand for.
type Mode int

const (
	// ModeAllow keeps the device off outside the interval: slots cover the
	// time before and after it. Used for the tap water schedule. The
	// familiar single-slot values 3932160 (00:00-01:00) and 39321600
	// (00:00-10:00) are ModeBlock encodings; ModeAllow writes their
	// complement into the first and last slot instead.
	ModeAllow Mode = iota
	// ModeBlock keeps the device off during the interval: slots cover the
	// interval itself. Used to block space heating.
	ModeBlock
)

func (m Mode) String() string {
	if m == ModeBlock {
		return "block"
	}
	return "allow"
}

// Interval is a half-open time range [From, Till).
type Interval struct {
	From time.Time
	Till time.Time
}

// IsEmpty reports whether the interval covers no time.
func (i Interval) IsEmpty() bool {
	return i.From.IsZero() || i.Till.IsZero() || !i.Till.After(i.From)
}

func minuteOfDay(t time.Time, loc *time.Location) int {
	t = t.In(loc)
	return t.Hour()*60 + t.Minute()
}

// EncodeSlots computes the value of every slot for interval, with
// boundaries taken in loc. Unused slots are 0. An empty interval or a
// schedule with fewer than two slots encodes to all zeros.
func EncodeSlots(slotCount int, interval Interval, loc *time.Location, mode Mode) []int {
	values := make([]int, max(slotCount, 0))
	if slotCount < 2 || interval.IsEmpty() {
		return values
	}
	if loc == nil {
		loc = time.UTC
	}
	first, last := 0, slotCount-1

	if interval.Till.Sub(interval.From) >= 24*time.Hour {
		if mode == ModeBlock {
			values[first] = Pack(0, minutesDay-1)
		}
		return values
	}

	from := minuteOfDay(interval.From, loc)
	till := minuteOfDay(interval.Till, loc)
	wraps := from > till

	switch mode {
	case ModeAllow:
		if wraps {
			values[first] = Pack(till, from)
			break
		}
		if from > 0 {
			values[first] = Pack(0, from)
		}
		if till > 0 {
			values[last] = Pack(till, 0)
		}
	case ModeBlock:
		if !wraps {
			values[first] = Pack(from, till)
			break
		}
		values[first] = Pack(from, 0)
		if till > 0 {
			values[last] = Pack(0, till)
		}
	}
	return values
}

// ScheduleCodec rewrites weekly schedules on the device.
type ScheduleCodec struct {
	loc *time.Location
	log *logger.Logger
}

// NewScheduleCodec returns a codec converting boundaries into the device
// time zone loc.
func NewScheduleCodec(loc *time.Location, log *logger.Logger) *ScheduleCodec {
	if loc == nil {
		loc = time.UTC
	}
	return &ScheduleCodec{loc: loc, log: logger.OrNop(log)}
}

// Rewrite replaces the schedule at path so it encodes interval. Every slot
// is reset first, the non-zero slots are set and the result is saved. The
// returned values are what was written, in slot order.
func (c *ScheduleCodec) Rewrite(ctx context.Context, r Remote, path string, interval Interval, mode Mode) ([]int, error) {
	screen, err := r.NavigateTo(ctx, path)
	if err != nil {
		return nil, err
	}
	content, err := ParseContent(screen)
	if err != nil {
		return nil, err
	}
	slots, err := ParseSlots(content)
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return nil, protocolErrorf("screen %q has no timer slots", path)
	}

	values := EncodeSlots(len(slots), interval, c.loc, mode)

	for _, s := range slots {
		if err := r.Send(ctx, setCommand(s.ID, 0)); err != nil {
			return nil, err
		}
	}
	for i, v := range values {
		if v == 0 {
			continue
		}
		if err := r.Send(ctx, setCommand(slots[i].ID, v)); err != nil {
			return nil, err
		}
	}
	if _, err := r.Exchange(ctx, saveCommand); err != nil {
		return nil, fmt.Errorf("save schedule %q: %w", path, err)
	}

	c.log.Infow("schedule_rewritten",
		"path", path,
		"mode", mode.String(),
		"from", interval.From,
		"till", interval.Till,
		"values", values,
	)
	return values, nil
}

const saveCommand = "SAVE;1"

func setCommand(id string, value int) string {
	return "SET;set_" + id + ";" + strconv.Itoa(value)
}
