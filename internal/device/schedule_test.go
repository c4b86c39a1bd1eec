package device

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 3, 10, hour, minute, 0, 0, time.UTC)
}

func TestEncodeSlots(t *testing.T) {
	cases := []struct {
		name     string
		slots    int
		interval Interval
		mode     Mode
		want     []int
	}{
		{"block_first_hour", 5, Interval{at(0, 0), at(1, 0)}, ModeBlock, []int{3932160, 0, 0, 0, 0}},
		{"block_morning_two_slots", 2, Interval{at(0, 0), at(10, 0)}, ModeBlock, []int{39321600, 0}},
		{"block_afternoon", 5, Interval{at(14, 0), at(16, 0)}, ModeBlock, []int{840 + 65536*960, 0, 0, 0, 0}},
		{"block_wrapping", 5, Interval{at(23, 0), at(25, 0)}, ModeBlock, []int{1380, 0, 0, 0, 65536 * 60}},
		{"block_until_midnight", 5, Interval{at(22, 0), at(24, 0)}, ModeBlock, []int{1320, 0, 0, 0, 0}},
		{"allow_early_morning", 5, Interval{at(3, 0), at(5, 0)}, ModeAllow, []int{65536 * 180, 0, 0, 0, 300}},
		{"allow_from_midnight", 5, Interval{at(0, 0), at(10, 0)}, ModeAllow, []int{0, 0, 0, 0, 600}},
		{"allow_wrapping", 5, Interval{at(22, 0), at(27, 0)}, ModeAllow, []int{180 + 65536*1320, 0, 0, 0, 0}},
		{"allow_full_day", 5, Interval{at(6, 0), at(30, 0)}, ModeAllow, []int{0, 0, 0, 0, 0}},
		{"block_full_day", 5, Interval{at(6, 0), at(30, 0)}, ModeBlock, []int{65536 * 1439, 0, 0, 0, 0}},
		{"empty_interval", 5, Interval{}, ModeAllow, []int{0, 0, 0, 0, 0}},
		{"inverted_interval", 5, Interval{at(5, 0), at(3, 0)}, ModeBlock, []int{0, 0, 0, 0, 0}},
		{"single_slot", 1, Interval{at(3, 0), at(5, 0)}, ModeAllow, []int{0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EncodeSlots(tc.slots, tc.interval, time.UTC, tc.mode)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEncodeSlots_AllowUntilMidnight(t *testing.T) {
	// 22:00 till 00:00 wraps onto the next day: blocked from 00:00 to 22:00.
	got := EncodeSlots(5, Interval{at(22, 0), at(24, 0)}, time.UTC, ModeAllow)
	want := []int{Pack(0, 1320), 0, 0, 0, 0}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestEncodeSlots_AllowIsComplementOfBlock(t *testing.T) {
	cases := []struct {
		name     string
		slots    int
		interval Interval
		block    []int
		allow    []int
	}{
		{"first_hour", 5, Interval{at(0, 0), at(1, 0)}, []int{3932160, 0, 0, 0, 0}, []int{0, 0, 0, 0, Pack(60, 0)}},
		{"morning_two_slots", 2, Interval{at(0, 0), at(10, 0)}, []int{39321600, 0}, []int{0, Pack(600, 0)}},
		{"midday_two_slots", 2, Interval{at(10, 0), at(14, 0)}, []int{Pack(600, 840), 0}, []int{Pack(0, 600), Pack(840, 0)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			block := EncodeSlots(tc.slots, tc.interval, time.UTC, ModeBlock)
			if !reflect.DeepEqual(block, tc.block) {
				t.Fatalf("block: got %v, want %v", block, tc.block)
			}
			allow := EncodeSlots(tc.slots, tc.interval, time.UTC, ModeAllow)
			if !reflect.DeepEqual(allow, tc.allow) {
				t.Fatalf("allow: got %v, want %v", allow, tc.allow)
			}
		})
	}
}

func TestEncodeSlots_ConvertsToDeviceZone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 02:00-04:00 UTC in January is 03:00-05:00 in Amsterdam.
	iv := Interval{
		From: time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC),
		Till: time.Date(2024, 1, 15, 4, 0, 0, 0, time.UTC),
	}
	got := EncodeSlots(5, iv, loc, ModeAllow)
	want := []int{Pack(0, 180), 0, 0, 0, Pack(300, 0)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestScheduleSlot_Halves(t *testing.T) {
	s := ScheduleSlot{Raw: 11796480}
	if s.Low() != 0 || s.High() != 180 {
		t.Fatalf("low=%d high=%d", s.Low(), s.High())
	}
	s = ScheduleSlot{Raw: 600}
	if s.Low() != 600 || s.High() != 0 {
		t.Fatalf("low=%d high=%d", s.Low(), s.High())
	}
}

func TestScheduleCodec_Rewrite_CommandSequence(t *testing.T) {
	remote := newFakeRemote()
	codec := NewScheduleCodec(time.UTC, nil)

	values, err := codec.Rewrite(context.Background(), remote, FirmwareV3.TapWaterSchedulePath,
		Interval{at(3, 0), at(5, 0)}, ModeAllow)
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if !reflect.DeepEqual(values, []int{11796480, 0, 0, 0, 300}) {
		t.Fatalf("values = %v", values)
	}

	want := []string{"NAV " + FirmwareV3.TapWaterSchedulePath}
	for _, id := range weekSlotIDs {
		want = append(want, "SET;set_"+id+";0")
	}
	want = append(want,
		"SET;set_0xa57344;11796480",
		"SET;set_0xa68d74;300",
		"SAVE;1",
	)
	if !reflect.DeepEqual(remote.calls, want) {
		t.Fatalf("calls:\n got %v\nwant %v", remote.calls, want)
	}
}

func TestScheduleCodec_Rewrite_EmptyIntervalResetsOnly(t *testing.T) {
	remote := newFakeRemote()
	codec := NewScheduleCodec(time.UTC, nil)

	if _, err := codec.Rewrite(context.Background(), remote, FirmwareV3.HeatingSchedulePath, Interval{}, ModeBlock); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	// navigate + 5 resets + save
	if len(remote.calls) != 7 {
		t.Fatalf("calls = %v", remote.calls)
	}
	if remote.calls[len(remote.calls)-1] != "SAVE;1" {
		t.Fatalf("last call = %q, want save", remote.calls[len(remote.calls)-1])
	}
}

func TestScheduleCodec_Rewrite_Idempotent(t *testing.T) {
	codec := NewScheduleCodec(time.UTC, nil)
	iv := Interval{at(22, 0), at(27, 0)}

	first := newFakeRemote()
	second := newFakeRemote()
	if _, err := codec.Rewrite(context.Background(), first, FirmwareV3.TapWaterSchedulePath, iv, ModeAllow); err != nil {
		t.Fatalf("first rewrite: %v", err)
	}
	if _, err := codec.Rewrite(context.Background(), second, FirmwareV3.TapWaterSchedulePath, iv, ModeAllow); err != nil {
		t.Fatalf("second rewrite: %v", err)
	}
	if !reflect.DeepEqual(first.calls, second.calls) {
		t.Fatalf("sequences differ:\n%v\n%v", first.calls, second.calls)
	}
}

func TestScheduleCodec_Rewrite_Errors(t *testing.T) {
	codec := NewScheduleCodec(time.UTC, nil)
	ctx := context.Background()

	remote := newFakeRemote()
	remote.screens["Leeg"] = "<Content><name>Leeg</name></Content>"
	if _, err := codec.Rewrite(ctx, remote, "Leeg", Interval{at(3, 0), at(5, 0)}, ModeAllow); !errors.Is(err, ErrProtocolViolation) {
		t.Fatalf("expected protocol violation for screen without timers, got %v", err)
	}

	remote = newFakeRemote()
	remote.failOn = "SAVE"
	if _, err := codec.Rewrite(ctx, remote, FirmwareV3.TapWaterSchedulePath, Interval{at(3, 0), at(5, 0)}, ModeAllow); !errors.Is(err, ErrConnectionFailure) {
		t.Fatalf("expected save failure, got %v", err)
	}

	remote = newFakeRemote()
	remote.failOn = "SET;set_0xa47ee4"
	if _, err := codec.Rewrite(ctx, remote, FirmwareV3.TapWaterSchedulePath, Interval{at(3, 0), at(5, 0)}, ModeAllow); err == nil {
		t.Fatalf("expected reset failure")
	}
	if remote.count("SAVE;1") != 0 {
		t.Fatalf("must not save after a failed reset")
	}
}
