package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const navigationXML = `<Navigation id='0x45cd88'><item id='0x45e068'><name>Informatie</name><item id='0x45df90'><name>Temperaturen</name></item><item id='0x455968'><name>Ingangen</name></item><item id='0x455760'><name>Uitgangen</name></item><item id='0x45bf10'><name>Aflooptijden</name></item><item id='0x456f08'><name>Bedrijfsuren</name></item><item id='0x4643a8'><name>Storingsbuffer</name></item><item id='0x3ddfa8'><name>Afschakelingen</name></item><item id='0x45d840'><name>Installatiestatus</name></item><item id='0x460cb8'><name>Energie</name></item><item id='0x4586a8'><name>GBS</name></item></item><item id='0x450798'><name>Instelling</name><item id='0x460bd0'><name>Bedrijfsmode</name></item><item id='0x461170'><name>Temperaturen</name></item><item id='0x462988'><name>Systeeminstelling</name></item></item><item id='0x3dc420'><name>Klokprogramma</name><readOnly>true</readOnly><item id='0x453560'><name>Verwarmen</name><readOnly>true</readOnly><item id='0x45e118'><name>Week</name></item><item id='0x45df00'><name>5+2</name></item><item id='0x45c200'><name>Dagen (Ma, Di,...)</name></item></item><item id='0x43e8e8'><name>Warmwater</name><readOnly>true</readOnly><item id='0x4642a8'><name>Week</name></item><item id='0x463940'><name>5+2</name></item><item id='0x463b68'><name>Dagen (Ma, Di,...)</name></item></item><item id='0x3dcc00'><name>Zwembad</name><readOnly>true</readOnly><item id='0x455580'><name>Week</name></item><item id='0x463f78'><name>5+2</name></item><item id='0x462690'><name>Dagen (Ma, Di,...)</name></item></item></item><item id='0x45c7b0'><name>Toegang: Gebruiker</name></item></Navigation>`

const temperaturesXML = `<Content><item id='0x4816ac'><name>Aanvoer</name><value>22.3°C</value></item><item id='0x44fdcc'><name>Retour</name><value>22.0°C</value></item><item id='0x4807dc'><name>Retour berekend</name><value>23.0°C</value></item><item id='0x45e1bc'><name>Heetgas</name><value>38.0°C</value></item><item id='0x448894'><name>Buitentemperatuur</name><value>11.6°C</value></item><item id='0x48047c'><name>Gemiddelde temp.</name><value>13.1°C</value></item><item id='0x457724'><name>Tapwater gemeten</name><value>54.2°C</value></item><item id='0x45e97c'><name>Tapwater ingesteld</name><value>57.0°C</value></item><item id='0x45a41c'><name>Bron-in</name><value>10.5°C</value></item><item id='0x480204'><name>Bron-uit</name><value>10.3°C</value></item><item id='0x4803cc'><name>Menggroep2-aanvoer</name><value>22.0°C</value></item><item id='0x4609cc'><name>Menggr2-aanv.ingest.</name><value>19.0°C</value></item><item id='0x45a514'><name>Zonnecollector</name><value>5.0°C</value></item><item id='0x461ecc'><name>Zonneboiler</name><value>---</value></item><item id='0x4817a4'><name>Externe energiebron</name><value>5.0°C</value></item><item id='0x4646b4'><name>Aanvoer max.</name><value>66.0°C</value></item><item id='0x45e76c'><name>Zuiggasleiding comp.</name><value>19.4°C</value></item><item id='0x4607d4'><name>Comp. verwarming</name><value>37.7°C</value></item><item id='0x43e60c'><name>Oververhitting</name><value>4.8 K</value></item><name>Temperaturen</name></Content>`

const inputsXML = `<Content><item id='0x4e7944'><name>ASD</name><value>Aan</value></item><item id='0x4ffbfc'><name>EVU</name><value>Aan</value></item><item id='0x4ef3b4'><name>HD</name><value>Uit</value></item><item id='0x4dac64'><name>MOT</name><value>Aan</value></item><item id='0x4ca4c4'><name>SWT</name><value>Uit</value></item><item id='0x4fa864'><name>Analoog-In 21</name><value>0.00 V</value></item><item id='0x4d5f1c'><name>Analoog-In 22</name><value>0.00 V</value></item><item id='0x4e6a3c'><name>HD</name><value>8.10 bar</value></item><item id='0x4ca47c'><name>ND</name><value>8.38 bar</value></item><item id='0x4e8004'><name>Debiet</name><value>1200 l/h</value></item><name>Ingangen</name></Content>`

const weekScheduleXML = `<Content>
  <item>
    <name>Maandag - Zondag</name>
    <item id='0xa57344'><value>10:00 - 00:00</value><name>1)</name><type>timer</type><raw>600</raw></item>
    <item id='0xa53c8c'><value>00:00 - 03:00</value><name>2)</name><type>timer</type><raw>11796480</raw></item>
    <item id='0xa47ee4'><value>00:00 - 00:00</value><name>3)</name><type>timer</type><raw>0</raw></item>
    <item id='0xa6630c'><value>00:00 - 00:00</value><name>4)</name><type>timer</type><raw>0</raw></item>
    <item id='0xa68d74'><value>00:00 - 00:00</value><name>5)</name><type>timer</type><raw>0</raw></item>
  </item>
</Content>`

var weekSlotIDs = []string{"0xa57344", "0xa53c8c", "0xa47ee4", "0xa6630c", "0xa68d74"}

// fakeRemote records every operation as a short string so tests can
// compare whole command sequences.
type fakeRemote struct {
	screens map[string]string
	calls   []string
	failOn  string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{screens: map[string]string{
		FirmwareV3.TapWaterSchedulePath: weekScheduleXML,
		FirmwareV3.HeatingSchedulePath:  weekScheduleXML,
		FirmwareV3.TemperaturesPath:     temperaturesXML,
	}}
}

func (f *fakeRemote) record(call string) error {
	f.calls = append(f.calls, call)
	if f.failOn != "" && strings.HasPrefix(call, f.failOn) {
		return fmt.Errorf("%w: injected at %s", ErrConnectionFailure, call)
	}
	return nil
}

func (f *fakeRemote) Exchange(_ context.Context, message string) (string, error) {
	return "", f.record(message)
}

func (f *fakeRemote) Send(_ context.Context, message string) error {
	return f.record(message)
}

func (f *fakeRemote) MoveRight(context.Context) error { return f.record("RIGHT") }
func (f *fakeRemote) MoveLeft(context.Context) error  { return f.record("LEFT") }
func (f *fakeRemote) Click(context.Context) error     { return f.record("CLICK") }

func (f *fakeRemote) NavigateTo(_ context.Context, path string) (string, error) {
	if err := f.record("NAV " + path); err != nil {
		return "", err
	}
	screen, ok := f.screens[path]
	if !ok {
		return "", errors.New("no screen for " + path)
	}
	return screen, nil
}

func (f *fakeRemote) count(call string) int {
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

// gestureCount sums the pulses of kind in script.
func gestureCount(script Script, kind GestureKind) int {
	n := 0
	for _, g := range script.Gestures {
		if g.Kind == kind {
			n += max(g.Repeat, 1)
		}
	}
	return n
}
