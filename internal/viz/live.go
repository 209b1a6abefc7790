// Package viz renders a live terminal view of a running equilibration
// protocol: the stage ladder, the latest engine readback, and temperature
// and pressure traces across completed stages.
package viz

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/kvasudev/eqmd/internal/md"
	"github.com/kvasudev/eqmd/internal/protocol"
	"github.com/kvasudev/eqmd/internal/schedule"
)

var (
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	stageStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	currentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("49"))
	statsStyle   = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("240")).Padding(0, 2)
	graphStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// Messages delivered from the run goroutine to the UI.
type (
	StageStartMsg struct{ Stage schedule.Stage }
	StageEndMsg   struct {
		Stage schedule.Stage
		State md.State
	}
	FailureMsg struct {
		Stage int
		Err   error
	}
	DoneMsg struct {
		Result *protocol.Result
		Err    error
	}
)

// channelObserver forwards protocol events into the UI message channel. The
// protocol runs on its own goroutine, so blocking sends are fine.
type channelObserver struct {
	ch chan tea.Msg
}

func (o channelObserver) OnStageStart(stage schedule.Stage) {
	o.ch <- StageStartMsg{Stage: stage}
}

func (o channelObserver) OnStageEnd(stage schedule.Stage, state md.State) {
	o.ch <- StageEndMsg{Stage: stage, State: state}
}

func (o channelObserver) OnFailure(stageIndex int, err error) {
	o.ch <- FailureMsg{Stage: stageIndex, Err: err}
}

// Model is the bubbletea model for the live protocol view.
type Model struct {
	stages []schedule.Stage
	start  func(ctx context.Context, obs protocol.Observer) (*protocol.Result, error)

	events  chan tea.Msg
	cancel  context.CancelFunc
	current int
	status  md.Status
	last    md.State
	haveObs bool
	temps   []float64
	press   []float64
	err     error
	result  *protocol.Result
}

// NewModel prepares a live view. start is invoked once on its own goroutine
// with the observer wired to the UI.
func NewModel(stages []schedule.Stage,
	start func(ctx context.Context, obs protocol.Observer) (*protocol.Result, error)) Model {
	return Model{
		stages: stages,
		start:  start,
		events: make(chan tea.Msg, 4),
		status: md.StatusPending,
	}
}

func (m Model) Init() tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	obs := channelObserver{ch: m.events}
	events := m.events
	start := m.start

	run := func() tea.Msg {
		result, err := start(ctx, obs)
		return DoneMsg{Result: result, Err: err}
	}
	return tea.Batch(run, waitForEvent(events), storeCancel(cancel))
}

// storeCancel smuggles the cancel func back into the model via Update.
func storeCancel(cancel context.CancelFunc) tea.Cmd {
	return func() tea.Msg { return cancelMsg{cancel: cancel} }
}

type cancelMsg struct{ cancel context.CancelFunc }

func waitForEvent(ch chan tea.Msg) tea.Cmd {
	return func() tea.Msg { return <-ch }
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case cancelMsg:
		m.cancel = msg.cancel
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			if m.status.Terminal() {
				return m, tea.Quit
			}
			return m, nil
		}
		return m, nil

	case StageStartMsg:
		m.status = md.StatusRunning
		m.current = msg.Stage.Index
		return m, waitForEvent(m.events)

	case StageEndMsg:
		m.last = msg.State
		m.haveObs = true
		m.temps = append(m.temps, msg.State.Temperature)
		m.press = append(m.press, msg.State.Pressure)
		return m, waitForEvent(m.events)

	case FailureMsg:
		m.err = msg.Err
		return m, waitForEvent(m.events)

	case DoneMsg:
		m.result = msg.Result
		if msg.Result != nil {
			m.status = msg.Result.Status
		}
		if msg.Err != nil {
			m.err = msg.Err
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("eqmd 21-stage equilibration"))
	b.WriteString("\n")

	ladder := m.renderLadder()
	stats := m.renderStats()
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, ladder, statsStyle.Render(stats)))

	if len(m.temps) > 1 {
		graph := asciigraph.Plot(m.temps,
			asciigraph.Height(6), asciigraph.Width(60),
			asciigraph.Caption("temperature (K) per stage"))
		b.WriteString(graphStyle.Render(graph))
		b.WriteString("\n")
	}
	if len(m.press) > 1 {
		graph := asciigraph.Plot(m.press,
			asciigraph.Height(6), asciigraph.Width(60),
			asciigraph.Caption("pressure (bar) per stage"))
		b.WriteString(graphStyle.Render(graph))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString(errStyle.Render(fmt.Sprintf("error: %v", m.err)))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("q: cancel at next stage boundary"))
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderLadder() string {
	var b strings.Builder
	for _, s := range m.stages {
		label := fmt.Sprintf("%-5s %s %5.0fK", s.Name, s.Ensemble, s.Temperature)
		if s.BarostatEnabled() {
			label += fmt.Sprintf(" %9.0f bar", s.Pressure)
		} else {
			label += strings.Repeat(" ", 14)
		}
		switch {
		case s.Index == m.current && !m.status.Terminal():
			b.WriteString(currentStyle.Render("> " + label))
		case s.Index <= m.current:
			b.WriteString(doneStyle.Render("  " + label))
		default:
			b.WriteString(stageStyle.Render("  " + label))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderStats() string {
	var b strings.Builder
	fmt.Fprintf(&b, "status  %s\n", m.status)
	fmt.Fprintf(&b, "stage   %d/%d\n", m.current, len(m.stages))
	if m.haveObs {
		fmt.Fprintf(&b, "\nT  %10.1f K\n", m.last.Temperature)
		fmt.Fprintf(&b, "P  %10.1f bar\n", m.last.Pressure)
		fmt.Fprintf(&b, "V  %10.2f\n", m.last.Volume)
		fmt.Fprintf(&b, "PE %10.2f\n", m.last.PotentialEnergy)
		fmt.Fprintf(&b, "KE %10.2f\n", m.last.KineticEnergy)
	}
	return b.String()
}

// Run drives the live view until the protocol reaches a terminal status or
// the user quits, and returns the final result.
func Run(stages []schedule.Stage,
	start func(ctx context.Context, obs protocol.Observer) (*protocol.Result, error)) (*protocol.Result, error) {
	p := tea.NewProgram(NewModel(stages, start))
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	m, ok := final.(Model)
	if !ok {
		return nil, nil
	}
	return m.result, m.err
}
