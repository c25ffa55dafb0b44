package display

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"airmonitor/internal/models"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	valueStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("238")).Padding(0, 2)
	frameStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	invertStyle  = frameStyle.Reverse(true)
	onIconStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	offIconStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const brightnessStep = 10

// TUI renders the display in a terminal. Keys map to the same preference
// changes the config server accepts.
type TUI struct {
	updates chan models.DisplaySnapshot
	submit  func(models.PreferenceChange) error
	onQuit  func()
	opts    []tea.ProgramOption
}

// NewTUI builds a terminal renderer. submit receives keyboard preference
// changes; onQuit runs when the user quits.
func NewTUI(submit func(models.PreferenceChange) error, onQuit func(), opts ...tea.ProgramOption) *TUI {
	return &TUI{
		updates: make(chan models.DisplaySnapshot, 8),
		submit:  submit,
		onQuit:  onQuit,
		opts:    opts,
	}
}

// Render queues a frame. Frames are dropped while the terminal is behind.
func (t *TUI) Render(s models.DisplaySnapshot) {
	select {
	case t.updates <- s:
	default:
	}
}

// Run drives the terminal program until ctx is done or the user quits.
func (t *TUI) Run(ctx context.Context) error {
	opts := append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, t.opts...)
	p := tea.NewProgram(newTUIModel(t.submit), opts...)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-t.updates:
				p.Send(snapshotMsg(s))
			}
		}
	}()

	_, err := p.Run()
	if t.onQuit != nil {
		t.onQuit()
	}
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

type snapshotMsg models.DisplaySnapshot

type tuiModel struct {
	snap   models.DisplaySnapshot
	submit func(models.PreferenceChange) error
	status string
}

func newTUIModel(submit func(models.PreferenceChange) error) tuiModel {
	return tuiModel{submit: submit}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.snap = models.DisplaySnapshot(msg)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var change models.PreferenceChange
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "+", "=":
		change = models.BrightnessChanged{Value: clampBrightness(m.snap.Brightness + brightnessStep)}
	case "-":
		change = models.BrightnessChanged{Value: clampBrightness(m.snap.Brightness - brightnessStep)}
	case "i":
		change = models.ColorInversionToggled{Enabled: !m.snap.ColorsInverted}
	case "w":
		change = models.WifiToggled{Enabled: !m.snap.WifiMode}
	case "c":
		change = models.CalibrationRequested{}
	default:
		return m, nil
	}
	if m.submit == nil {
		return m, nil
	}
	if err := m.submit(change); err != nil {
		m.status = fmt.Sprintf("%s: %v", change.Kind(), err)
	} else {
		m.status = change.Kind() + " queued"
	}
	return m, nil
}

func clampBrightness(v int) int {
	if v < 0 {
		return 0
	}
	if v > models.MaxBrightness {
		return models.MaxBrightness
	}
	return v
}

func (m tuiModel) View() string {
	var b strings.Builder
	switch m.snap.Screen {
	case models.ScreenWelcome:
		b.WriteString(titleStyle.Render("CanAirIO") + "\n")
		for _, line := range m.snap.WelcomeMessages {
			b.WriteString(line + "\n")
		}
	case models.ScreenMain:
		b.WriteString(m.mainView())
	default:
		b.WriteString(statusStyle.Render("display off"))
	}

	box := frameStyle
	if m.snap.ColorsInverted {
		box = invertStyle
	}
	out := box.Render(strings.TrimRight(b.String(), "\n"))
	footer := footerStyle.Render("+/- brightness  i invert  w wifi  c calibrate  q quit")
	if m.status != "" {
		footer += "\n" + statusStyle.Render(m.status)
	}
	return out + "\n" + footer
}

func (m tuiModel) mainView() string {
	p := m.snap.Panel
	unit, label := "ug/m3", "PM2.5"
	if p.DeviceType > models.LastPMDeviceType {
		unit, label = "ppm", "CO2"
	}
	lines := []string{
		fmt.Sprintf("%s %s %s", label, valueStyle.Render(fmt.Sprintf("%d", p.MainValue)), unit),
		fmt.Sprintf("H %.1f%%  T %.1fC", p.Humidity, p.Temperature),
		fmt.Sprintf("BAT %d%%  RSSI %d  stime %ds  bright %d", p.BatteryPct, p.RSSI, m.snap.SampleTime, m.snap.Brightness),
		strings.Join([]string{
			icon("wifi", m.snap.Flags.WifiConnected),
			icon("sensor", m.snap.Flags.SensorsOK),
			icon("client", m.snap.Flags.ConfigClientConnected),
		}, " "),
	}
	return strings.Join(lines, "\n")
}

func icon(name string, on bool) string {
	if on {
		return onIconStyle.Render("[" + name + "]")
	}
	return offIconStyle.Render("[" + name + "]")
}
