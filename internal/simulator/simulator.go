package simulator

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"alpha_innotec_planner/internal/device"
	"alpha_innotec_planner/internal/logger"
)

// ----------- Thermal model -----------
const (
	AmbientC        = 20.0 // tap water temperature without heating
	RampUpCPerSec   = 0.05 // heating rate of the boiler
	CoolDownCPerSec = 0.01 // standing loss
	HysteresisC     = 2.0  // reheating starts this far below the setpoint
	DisinfectionC   = 65.0 // target of a continuous disinfection cycle
)

// Screen ids served by the fake controller.
const (
	navigationID     = "0x45cd88"
	temperaturesID   = "0x45df90"
	tapWaterWeekID   = "0x4642a8"
	heatingWeekID    = "0x45e118"
	tapWaterSetID    = "0x45e97c"
	tapWaterActualID = "0x457724"
)

// slotsPerSchedule matches the weekly screens of a real controller.
const slotsPerSchedule = 5

// Move pulse codes.
const (
	pulseRight   = 0
	pulseLeft    = 1
	pulseSelect  = 2
	pulseConfirm = 6
)

// Snapshot is the observable state of the fake controller.
type Snapshot struct {
	Setpoint      float64 `json:"setpoint"`
	Measured      float64 `json:"measured"`
	Disinfection  bool    `json:"disinfection"`
	TapWaterSlots []int   `json:"tapWaterSlots"`
	HeatingSlots  []int   `json:"heatingSlots"`
}

// Options seed a Device.
type Options struct {
	LoginCode string
	Firmware  device.Firmware
	Setpoint  float64
	// TapWaterSlots preloads the tap water schedule; missing entries are 0.
	TapWaterSlots []int
}

// Device emulates the websocket interface of a Luxtronik controller. It
// understands the menu tree, the weekly schedule screens and the remote
// control gestures of the configured firmware profile.
type Device struct {
	loginCode string
	fw        device.Firmware
	log       *logger.Logger
	upgrader  websocket.Upgrader

	toggleMacro []int
	openMacro   []int
	applyMacro  []int

	mu           sync.Mutex
	setpoint     float64
	measured     float64
	disinfection bool
	schedules    map[string][]int
	slotIndex    map[string]slotRef
	staged       map[string]int
	pulses       []int
	commands     []string
}

type slotRef struct {
	screen string
	index  int
}

// New returns a Device in its factory state.
func New(opts Options, log *logger.Logger) *Device {
	if opts.Firmware.Version == "" {
		opts.Firmware = device.FirmwareV3
	}
	if opts.Setpoint == 0 {
		opts.Setpoint = 50
	}
	d := &Device{
		loginCode: opts.LoginCode,
		fw:        opts.Firmware,
		log:       logger.OrNop(log),
		upgrader: websocket.Upgrader{
			Subprotocols: []string{device.Subprotocol},
			CheckOrigin:  func(r *http.Request) bool { return true },
		},
		toggleMacro: flatten(opts.Firmware.ToggleContinuousDisinfection),
		openMacro:   flatten(opts.Firmware.OpenTapWaterSetpoint),
		applyMacro:  flatten(opts.Firmware.ApplyTapWaterSetpoint),
		setpoint:    opts.Setpoint,
		measured:    opts.Setpoint,
		schedules: map[string][]int{
			tapWaterWeekID: make([]int, slotsPerSchedule),
			heatingWeekID:  make([]int, slotsPerSchedule),
		},
		slotIndex: map[string]slotRef{},
		staged:    map[string]int{},
	}
	copy(d.schedules[tapWaterWeekID], opts.TapWaterSlots)
	for _, screen := range []string{tapWaterWeekID, heatingWeekID} {
		for i := range slotsPerSchedule {
			d.slotIndex[slotID(screen, i)] = slotRef{screen: screen, index: i}
		}
	}
	return d
}

// slotID derives a stable timer id from the schedule screen id.
func slotID(screen string, i int) string {
	return fmt.Sprintf("%s%02d", screen, i+1)
}

// flatten turns a gesture script into the MOVE codes it produces.
func flatten(s device.Script) []int {
	var out []int
	for _, g := range s.Gestures {
		code := -1
		switch g.Kind {
		case device.GestureRight:
			code = pulseRight
		case device.GestureLeft:
			code = pulseLeft
		case device.GestureClick:
			code = pulseSelect
		}
		if code < 0 {
			continue
		}
		for range max(g.Repeat, 1) {
			out = append(out, code)
		}
	}
	return out
}

// Snapshot returns a copy of the current state.
func (d *Device) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Snapshot{
		Setpoint:      d.setpoint,
		Measured:      d.measured,
		Disinfection:  d.disinfection,
		TapWaterSlots: append([]int(nil), d.schedules[tapWaterWeekID]...),
		HeatingSlots:  append([]int(nil), d.schedules[heatingWeekID]...),
	}
}

// Commands returns every text frame received so far, in order.
func (d *Device) Commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.commands...)
}

// ServeHTTP upgrades the request and serves one controller session.
func (d *Device) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.log.Errorw("sim_upgrade_failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()
	d.log.Infow("sim_client_connected", "remote", r.RemoteAddr, "origin", r.Header.Get("Origin"))

	loggedIn := false
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			d.log.Infow("sim_client_disconnected", "err", err)
			return
		}
		msg := string(data)
		reply, ok := d.handle(msg, &loggedIn)
		if !ok {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
			return
		}
	}
}

// handle applies one command and returns the reply, if any.
func (d *Device) handle(msg string, loggedIn *bool) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands = append(d.commands, msg)

	cmd, arg, _ := strings.Cut(msg, ";")
	if cmd == "LOGIN" {
		if d.loginCode != "" && arg != d.loginCode {
			return "<Error>access denied</Error>", true
		}
		*loggedIn = true
		d.pulses = nil
		return d.navigationXML(), true
	}
	if !*loggedIn {
		return "<Error>not logged in</Error>", true
	}

	switch cmd {
	case "GET":
		d.pulses = nil
		return d.screenXML(arg), true
	case "SET":
		d.stage(arg)
		return "", false
	case "SAVE":
		d.commit()
		return "<Content><name>Opgeslagen</name></Content>", true
	case "MOVE":
		code, err := strconv.Atoi(arg)
		if err != nil {
			return "<Error>bad move</Error>", true
		}
		d.pulse(code)
		return "<Content><name>Home</name></Content>", true
	default:
		return "<Error>unknown command</Error>", true
	}
}

func (d *Device) stage(arg string) {
	target, raw, ok := strings.Cut(arg, ";")
	id, found := strings.CutPrefix(target, "set_")
	if !ok || !found {
		return
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return
	}
	if _, known := d.slotIndex[id]; known {
		d.staged[id] = v
	}
}

func (d *Device) commit() {
	for id, v := range d.staged {
		ref := d.slotIndex[id]
		d.schedules[ref.screen][ref.index] = v
	}
	clear(d.staged)
	d.log.Infow("sim_schedule_saved",
		"tap_water", d.schedules[tapWaterWeekID],
		"heating", d.schedules[heatingWeekID],
	)
}

// pulse records one dial action and applies a macro once the pulses since
// the last screen change spell one out. Confirms carry no direction.
func (d *Device) pulse(code int) {
	if code == pulseConfirm {
		return
	}
	d.pulses = append(d.pulses, code)

	if equalPulses(d.pulses, d.toggleMacro) {
		d.disinfection = !d.disinfection
		d.pulses = nil
		d.log.Infow("sim_disinfection_toggled", "enabled", d.disinfection)
		return
	}
	if steps, ok := d.setpointEdit(); ok {
		d.setpoint += float64(steps) * d.fw.SetpointStep
		d.pulses = nil
		d.log.Infow("sim_setpoint_changed", "setpoint", d.setpoint)
	}
}

// setpointEdit matches open, n equal dial turns, a click and apply. It
// returns the signed number of steps.
func (d *Device) setpointEdit() (int, bool) {
	p := d.pulses
	if len(d.openMacro) == 0 || len(p) < len(d.openMacro)+len(d.applyMacro)+1 {
		return 0, false
	}
	if !equalPulses(p[:len(d.openMacro)], d.openMacro) || !equalPulses(p[len(p)-len(d.applyMacro):], d.applyMacro) {
		return 0, false
	}
	middle := p[len(d.openMacro) : len(p)-len(d.applyMacro)]
	if middle[len(middle)-1] != pulseSelect {
		return 0, false
	}
	turns := middle[:len(middle)-1]
	steps := 0
	for _, c := range turns {
		switch {
		case c == pulseRight && steps >= 0:
			steps++
		case c == pulseLeft && steps <= 0:
			steps--
		default:
			return 0, false
		}
	}
	return steps, true
}

func equalPulses(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Step advances the thermal model by elapsed. It returns true when the
// measured temperature changed.
func (d *Device) Step(elapsed time.Duration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	sec := elapsed.Seconds()
	if sec <= 0 {
		return false
	}
	target := d.setpoint
	if d.disinfection {
		target = max(target, DisinfectionC)
	}
	prev := d.measured
	if d.measured < target-HysteresisC {
		d.measured = min(d.measured+RampUpCPerSec*sec, target)
	} else if d.measured > AmbientC {
		d.measured = max(d.measured-CoolDownCPerSec*sec, AmbientC)
	}
	return d.measured != prev
}

// Run ticks the thermal model at the given interval until ctx is canceled.
func (d *Device) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			d.Step(now.Sub(last))
			last = now
		}
	}
}

// ListenAndServe serves the device on addr until ctx is canceled.
func (d *Device) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           d,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	d.log.Infow("sim_listening", "addr", addr, "firmware", d.fw.Version)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// ---- screens ----

type contentItem struct {
	ID    string        `xml:"id,attr,omitempty"`
	Value string        `xml:"value,omitempty"`
	Name  string        `xml:"name"`
	Type  string        `xml:"type,omitempty"`
	Raw   string        `xml:"raw,omitempty"`
	Items []contentItem `xml:"item,omitempty"`
}

type contentScreen struct {
	XMLName xml.Name      `xml:"Content"`
	Items   []contentItem `xml:"item"`
	Name    string        `xml:"name"`
}

func item(id, name string, children ...device.NavigationItem) device.NavigationItem {
	return device.NavigationItem{ID: id, Name: name, Children: children}
}

// menu mirrors the Dutch V3 layout. Paths of the configured firmware
// profile must resolve against it.
func menu() device.Navigation {
	week := func(groupID, groupName, weekID string) device.NavigationItem {
		g := item(groupID, groupName,
			item(weekID, "Week"),
			item(groupID+"1", "5+2"),
			item(groupID+"2", "Dagen (Ma, Di,...)"),
		)
		g.ReadOnly = true
		return g
	}
	timers := item("0x3dc420", "Klokprogramma",
		week("0x453560", "Verwarmen", heatingWeekID),
		week("0x43e8e8", "Warmwater", tapWaterWeekID),
	)
	timers.ReadOnly = true
	return device.Navigation{Items: []device.NavigationItem{
		item("0x45e068", "Informatie",
			item(temperaturesID, "Temperaturen"),
			item("0x455968", "Ingangen"),
		),
		item("0x450798", "Instelling",
			item("0x460bd0", "Bedrijfsmode"),
		),
		timers,
		item("0x45c7b0", "Toegang: Gebruiker"),
	}}
}

func (d *Device) navigationXML() string {
	nav := menu()
	out, err := xml.Marshal(struct {
		XMLName xml.Name `xml:"Navigation"`
		ID      string   `xml:"id,attr"`
		Items   []device.NavigationItem `xml:"item"`
	}{ID: navigationID, Items: nav.Items})
	if err != nil {
		return "<Error>" + err.Error() + "</Error>"
	}
	return string(out)
}

func (d *Device) screenXML(id string) string {
	var screen contentScreen
	switch id {
	case temperaturesID:
		screen = contentScreen{Name: "Temperaturen", Items: []contentItem{
			{ID: tapWaterActualID, Name: "Tapwater gemeten", Value: celsius(d.measured)},
			{ID: tapWaterSetID, Name: d.fw.TapWaterSetpointField, Value: celsius(d.setpoint)},
			{ID: "0x461ecc", Name: "Zonneboiler", Value: "---"},
		}}
	case tapWaterWeekID, heatingWeekID:
		screen = contentScreen{Name: "Week", Items: []contentItem{{
			Name:  "Maandag - Zondag",
			Items: d.timerItems(id),
		}}}
	default:
		screen = contentScreen{Name: id}
	}
	out, err := xml.Marshal(screen)
	if err != nil {
		return "<Error>" + err.Error() + "</Error>"
	}
	return string(out)
}

func (d *Device) timerItems(screen string) []contentItem {
	values := d.schedules[screen]
	items := make([]contentItem, len(values))
	for i, v := range values {
		slot := device.ScheduleSlot{Raw: v}
		items[i] = contentItem{
			ID:    slotID(screen, i),
			Name:  strconv.Itoa(i+1) + ")",
			Value: clock(slot.Low()) + " - " + clock(slot.High()),
			Type:  "timer",
			Raw:   strconv.Itoa(v),
		}
	}
	return items
}

func clock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func celsius(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "°C"
}
