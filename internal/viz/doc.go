// Package viz renders solver output in the terminal.
//
//   - [PlotPath]: asciigraph line plot of selected variables of a path
//   - [RenderSummary]: lipgloss panel with the flag, diagnostics, horizon
//     attempts and metrics of a run
//   - [Watch]: Bubble Tea model that follows a running solve
//
// A watch is fed through a channel:
//
//	ch := make(chan tea.Msg)
//	obs, onAttempt := viz.Feed(ctx, ch)
//	go func() {
//		// run the solver with obs and onAttempt wired in
//		ch <- viz.DoneMsg{Run: &meta, Err: err}
//	}()
//	tea.NewProgram(viz.NewWatch("lag3", 500, ch)).Run()
package viz
