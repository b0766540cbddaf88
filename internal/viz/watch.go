package viz

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/eqpath/internal/horizon"
	"github.com/san-kum/eqpath/internal/newton"
	"github.com/san-kum/eqpath/internal/storage"
)

const (
	sparkWidth = 48
	tickRate   = time.Second / 10
)

type (
	// IterationMsg reports one Newton iteration.
	IterationMsg newton.Iteration
	// AttemptMsg reports one finished horizon attempt.
	AttemptMsg horizon.Attempt
	// DoneMsg ends the watch. Run is nil when the solve never produced one.
	DoneMsg struct {
		Run *storage.RunMetadata
		Err error
	}
	tickMsg time.Time
)

// Feed returns solver callbacks that forward progress to ch. Sends block
// until the watch reads them or ctx is done; once ctx is done progress is
// dropped.
func Feed(ctx context.Context, ch chan<- tea.Msg) (newton.Observer, func(horizon.Attempt)) {
	send := func(msg tea.Msg) {
		select {
		case ch <- msg:
		case <-ctx.Done():
		}
	}
	obs := newton.ObserverFunc(func(it newton.Iteration) { send(IterationMsg(it)) })
	return obs, func(a horizon.Attempt) { send(AttemptMsg(a)) }
}

// Watch follows a running solve: the residual of every Newton iteration and
// the outcome of every horizon attempt.
type Watch struct {
	title      string
	maxHorizon int
	events     <-chan tea.Msg

	residuals []float64
	last      newton.Iteration
	attempts  []horizon.Attempt
	frame     int
	start     time.Time
	elapsed   time.Duration

	done bool
	run  *storage.RunMetadata
	err  error
}

func NewWatch(title string, maxHorizon int, events <-chan tea.Msg) Watch {
	return Watch{
		title:      title,
		maxHorizon: maxHorizon,
		events:     events,
		residuals:  make([]float64, 0, 64),
		start:      time.Now(),
	}
}

func listen(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return DoneMsg{}
		}
		return msg
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickRate, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (w Watch) Init() tea.Cmd {
	return tea.Batch(listen(w.events), tick())
}

func (w Watch) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return w, tea.Quit
		}
	case IterationMsg:
		w.last = newton.Iteration(msg)
		w.residuals = append(w.residuals, msg.Residual)
		return w, listen(w.events)
	case AttemptMsg:
		w.attempts = append(w.attempts, horizon.Attempt(msg))
		// Each attempt restarts Newton.
		w.residuals = w.residuals[:0]
		return w, listen(w.events)
	case DoneMsg:
		w.done = true
		w.run, w.err = msg.Run, msg.Err
		w.elapsed = time.Since(w.start)
		return w, nil
	case tickMsg:
		if w.done {
			return w, nil
		}
		w.frame++
		return w, tick()
	}
	return w, nil
}

// Done reports whether the solve has finished.
func (w Watch) Done() bool { return w.done }

// Err returns the solver error carried by DoneMsg.
func (w Watch) Err() error { return w.err }

func (w Watch) Attempts() []horizon.Attempt { return w.attempts }

func (w Watch) View() string {
	var s strings.Builder

	status := Spinner(w.frame) + " solving"
	if w.done {
		status = fmt.Sprintf("done in %s", w.elapsed.Round(time.Millisecond))
	}
	s.WriteString(HeaderStyle.Render(Title.Render(strings.ToUpper(w.title))) + "\n")
	s.WriteString(Subtle.Render(status) + "\n\n")

	if w.done && w.run != nil {
		s.WriteString(RenderSummary(*w.run) + "\n")
	} else {
		h := 0
		if n := len(w.attempts); n > 0 {
			h = w.attempts[n-1].Horizon
		}
		if w.maxHorizon > 0 {
			s.WriteString(row("Horizon", fmt.Sprintf("%d / %d", h, w.maxHorizon)))
			s.WriteString(MetricLabel.Render("") + ProgressBar(float64(h)/float64(w.maxHorizon), 30) + "\n")
		}
		s.WriteString(row("Iteration", fmt.Sprintf("%d", w.last.Iter)))
		s.WriteString(row("Residual", fmt.Sprintf("%.3e", w.last.Residual)))
		s.WriteString(row("Step", fmt.Sprintf("%.4g (%d backtracks)", w.last.Lambda, w.last.Backtracks)))
		s.WriteString(MetricLabel.Render("log10 residual") + Sparkline(logScale(w.residuals), sparkWidth) + "\n")
		if len(w.attempts) > 0 {
			s.WriteString("\n" + AttemptTable(w.attempts))
		}
	}

	if w.err != nil {
		s.WriteString("\n" + ErrorStyle().Render("error: ") + w.err.Error() + "\n")
	}
	s.WriteString("\n" + KeyHint.Render("q: quit"))
	return s.String()
}
