// Package sweep solves one experiment over a grid of parameter values, for
// comparative statics across calibrations:
//
//	g, _ := sweep.NewGrid(sweep.Axis{Param: "kappa", Values: []float64{0.05, 0.1, 0.2}})
//	points, err := sweep.Run(ctx, cfg, g, sweep.Options{})
//	best, ok := sweep.Best(points, "half_life_y")
package sweep
