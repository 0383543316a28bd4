// Package plan models an onboarding run as an ordered list of named
// steps, each reporting whether it changed anything, found its work
// already done, or failed.
package plan

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/campus-hpc/onboard/internal/logger"
	"github.com/campus-hpc/onboard/internal/ui"
)

// Outcome is the terminal state of a step.
type Outcome int

const (
	// Applied means the step changed system state.
	Applied Outcome = iota
	// AlreadySatisfied means the step found nothing to do.
	AlreadySatisfied
	// Failed means the step could not complete.
	Failed
	// Skipped means the step was not attempted, usually because an
	// earlier fatal step failed.
	Skipped
)

// String returns the human-readable outcome name.
func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case AlreadySatisfied:
		return "already satisfied"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// StepFunc does the work of one step.
type StepFunc func(ctx context.Context) (Outcome, error)

// Step is a named unit of onboarding work.
type Step struct {
	// Name identifies the step in output and results.
	Name string

	// Run performs the step.
	Run StepFunc

	// Fatal stops the plan when this step fails. Non-fatal failures
	// are recorded and the plan continues.
	Fatal bool
}

// Result records what happened to one step.
type Result struct {
	Name     string
	Outcome  Outcome
	Err      error
	Duration time.Duration
}

// Plan executes steps in order, rendering progress as it goes.
type Plan struct {
	steps []Step
	out   io.Writer
	log   logger.Logger
}

// New creates an empty plan writing progress to out.
func New(out io.Writer) *Plan {
	return &Plan{out: out, log: logger.Default()}
}

// Add appends a step to the plan.
func (p *Plan) Add(step Step) *Plan {
	p.steps = append(p.steps, step)
	return p
}

// AddFunc appends a non-fatal step.
func (p *Plan) AddFunc(name string, fn StepFunc) *Plan {
	return p.Add(Step{Name: name, Run: fn})
}

// AddFatal appends a step whose failure aborts the rest of the plan.
func (p *Plan) AddFatal(name string, fn StepFunc) *Plan {
	return p.Add(Step{Name: name, Run: fn, Fatal: true})
}

// Len returns the number of steps.
func (p *Plan) Len() int { return len(p.steps) }

// Execute runs every step in order. A fatal step failure marks all
// remaining steps Skipped. The returned error is the first fatal
// failure, or nil; non-fatal failures are only visible in the results.
//
// When out is a terminal, progress is rendered as a live step list with
// a spinner on the running step; otherwise each step prints one line as
// it completes.
func (p *Plan) Execute(ctx context.Context) ([]Result, error) {
	if f, ok := p.out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return p.executeLive(ctx, f)
	}
	return p.executePlain(ctx)
}

func (p *Plan) run(ctx context.Context, onStart func(int), onFinish func(int, Outcome, time.Duration)) ([]Result, error) {
	results := make([]Result, 0, len(p.steps))
	var fatal error

	for i, step := range p.steps {
		if fatal != nil {
			onFinish(i, Skipped, 0)
			results = append(results, Result{Name: step.Name, Outcome: Skipped})
			continue
		}

		p.log.Debug("step %d/%d: %s", i+1, len(p.steps), step.Name)
		onStart(i)
		start := time.Now()
		outcome, err := step.Run(ctx)
		elapsed := time.Since(start)

		if err != nil {
			outcome = Failed
		}
		onFinish(i, outcome, elapsed)

		results = append(results, Result{
			Name:     step.Name,
			Outcome:  outcome,
			Err:      err,
			Duration: elapsed,
		})

		if outcome == Failed && step.Fatal {
			fatal = err
			if fatal == nil {
				fatal = fmt.Errorf("step %q failed", step.Name)
			}
		}
	}

	return results, fatal
}

func (p *Plan) executePlain(ctx context.Context) ([]Result, error) {
	return p.run(ctx,
		func(int) {},
		func(i int, outcome Outcome, elapsed time.Duration) {
			if outcome == Skipped {
				p.renderSkipped(p.steps[i].Name)
				return
			}
			p.render(p.steps[i].Name, outcome, elapsed)
		})
}

func (p *Plan) executeLive(ctx context.Context, f *os.File) ([]Result, error) {
	labels := make([]string, len(p.steps))
	for i, step := range p.steps {
		labels[i] = step.Name
	}
	prog := tea.NewProgram(liveModel{list: ui.NewStepList(labels)},
		tea.WithOutput(f), tea.WithInput(nil))

	var (
		results []Result
		fatal   error
		done    = make(chan struct{})
	)
	go func() {
		defer close(done)
		results, fatal = p.run(ctx,
			func(i int) {
				prog.Send(stepStartedMsg{index: i})
			},
			func(i int, outcome Outcome, _ time.Duration) {
				prog.Send(stepFinishedMsg{index: i, state: stepState(outcome)})
			})
		prog.Send(planDoneMsg{})
	}()

	if _, err := prog.Run(); err != nil {
		p.log.Debug("live renderer failed: %v", err)
	}
	<-done
	return results, fatal
}

type stepStartedMsg struct{ index int }

type stepFinishedMsg struct {
	index int
	state ui.StepState
}

type planDoneMsg struct{}

// liveModel adapts a ui.StepList to the plan's step lifecycle.
type liveModel struct {
	list ui.StepList
}

func (m liveModel) Init() tea.Cmd { return m.list.Init() }

func (m liveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case stepStartedMsg:
		return m, m.list.Start(msg.index)
	case stepFinishedMsg:
		m.list.Finish(msg.index, msg.state)
		return m, nil
	case planDoneMsg:
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m liveModel) View() string { return m.list.View() }

func stepState(o Outcome) ui.StepState {
	switch o {
	case Failed:
		return ui.StepFailed
	case Skipped:
		return ui.StepSkipped
	default:
		return ui.StepDone
	}
}

func (p *Plan) render(name string, outcome Outcome, elapsed time.Duration) {
	timing := lipgloss.NewStyle().Foreground(ui.ColorMuted).Render(ui.FormatDuration(elapsed))

	switch outcome {
	case Applied:
		fmt.Fprintf(p.out, "%s %s %s\n", ui.Success(ui.SymbolSuccess), name, timing)
	case AlreadySatisfied:
		fmt.Fprintf(p.out, "%s %s %s\n", ui.Success(ui.SymbolComplete), name,
			lipgloss.NewStyle().Foreground(ui.ColorMuted).Render("(already set up)"))
	case Failed:
		fmt.Fprintf(p.out, "%s %s %s\n", ui.Error(ui.SymbolFail), name, timing)
	}
}

func (p *Plan) renderSkipped(name string) {
	fmt.Fprintf(p.out, "%s %s\n", ui.Warning(ui.SymbolSkipped), name)
}

// Summarize tallies results by outcome.
func Summarize(results []Result) (applied, satisfied, failed, skipped int) {
	for _, r := range results {
		switch r.Outcome {
		case Applied:
			applied++
		case AlreadySatisfied:
			satisfied++
		case Failed:
			failed++
		case Skipped:
			skipped++
		}
	}
	return
}

// FirstFailure returns the first failed result, or nil.
func FirstFailure(results []Result) *Result {
	for i := range results {
		if results[i].Outcome == Failed {
			return &results[i]
		}
	}
	return nil
}
