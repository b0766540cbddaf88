package horizon_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/eqpath/internal/config"
	"github.com/san-kum/eqpath/internal/econ"
	"github.com/san-kum/eqpath/internal/hetagent"
	"github.com/san-kum/eqpath/internal/horizon"
	"github.com/san-kum/eqpath/internal/logger"
	"github.com/san-kum/eqpath/internal/models"
	"github.com/san-kum/eqpath/internal/stack"
	"github.com/san-kum/eqpath/internal/steady"
)

func solved(s models.Spec) *econ.Model {
	m, err := s.Model()
	Expect(err).NotTo(HaveOccurred())
	_, err = steady.Solve(m, nil, steady.Options{})
	Expect(err).NotTo(HaveOccurred())
	return m
}

func steadyOf(m *econ.Model) econ.State {
	x, ok := m.SteadyState()
	Expect(ok).To(BeTrue())
	return x
}

func horizons(res *horizon.Result) []int {
	var hs []int
	for _, a := range res.Attempts {
		hs = append(hs, a.Horizon)
	}
	return hs
}

// scripted returns an attempt func that reports the given flags in order and
// success afterwards.
func scripted(flags ...econ.Flag) (horizon.AttemptFunc, *[]int) {
	var seen []int
	return func(m *econ.Model, init econ.State, h int, _ stack.Options) (*stack.Result, error) {
		seen = append(seen, h)
		flag := econ.Success
		if len(seen) <= len(flags) {
			flag = flags[len(seen)-1]
		}
		res := &stack.Result{
			Path:        make(econ.Path, h+1),
			Flag:        flag,
			Diagnostics: econ.Diagnostics{Horizon: h, Attempts: 1, Iterations: 1},
		}
		for t := range res.Path {
			res.Path[t] = init.Clone()
		}
		if flag == econ.Success {
			return res, nil
		}
		res.Diagnostics.Residual = 1
		return res, econ.Errorf("stack", flag, "scripted failure at horizon %d", h)
	}, &seen
}

var approx = cmpopts.EquateApprox(0, 1e-8)

var _ = Describe("FindPath", func() {
	var lag3 *econ.Model

	BeforeEach(func() {
		lag3 = solved(models.NewLag3())
	})

	Context("canonical lag3 scenario", func() {
		var res *horizon.Result

		BeforeEach(func() {
			var err error
			res, err = horizon.FindPath(lag3, econ.State{0.1, 0.2, 0, 0}, 50, 500, horizon.Options{Tol: 1e-8})
			Expect(err).NotTo(HaveOccurred())
		})

		It("converges after extending the horizon once", func() {
			Expect(res.Flag).To(Equal(econ.Success))
			Expect(horizons(res)).To(Equal([]int{50, 100}))
			Expect(res.Attempts[0].Next).To(Equal(horizon.Extending))
			Expect(res.Attempts[1].Next).To(Equal(horizon.Converged))
			Expect(res.Diagnostics.Horizon).To(Equal(100))
			Expect(res.Diagnostics.Attempts).To(Equal(2))
		})

		It("truncates to periods 0..T", func() {
			Expect(res.Path).To(HaveLen(51))
			Expect(res.Path[0]).To(Equal(econ.State{0.1, 0.2, 0, 0}))
		})

		It("matches the period-9 reference values", func() {
			want := econ.State{0.019970296634854383, 0.02434724392808362, 0.0300843018130914, 0.08910000493623567}
			Expect(cmp.Diff(want, res.Path[9], approx)).To(BeEmpty())
		})

		It("ends at the steady state with a residual below tolerance", func() {
			Expect(res.Diagnostics.Residual).To(BeNumerically("<", 1e-8))
			Expect(res.Diagnostics.TerminalGap).To(BeNumerically("<=", 1e-8))
		})

		It("is deterministic", func() {
			again, err := horizon.FindPath(lag3, econ.State{0.1, 0.2, 0, 0}, 50, 500, horizon.Options{Tol: 1e-8})
			Expect(err).NotTo(HaveOccurred())
			Expect(cmp.Equal(res.Path, again.Path)).To(BeTrue())
			Expect(again.Diagnostics).To(Equal(res.Diagnostics))
		})
	})

	It("returns the steady state unchanged when started there", func() {
		stst := steadyOf(lag3)
		res, err := horizon.FindPath(lag3, stst, 30, 500, horizon.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Path).To(HaveLen(31))
		Expect(res.Attempts).To(HaveLen(1))
		for _, x := range res.Path {
			Expect(cmp.Diff(stst, x, cmpopts.EquateApprox(0, 1e-12))).To(BeEmpty())
		}
	})

	It("only grows the horizon and never past the maximum", func() {
		res, _ := horizon.FindPath(lag3, econ.State{0.1, 0.2, 0, 0}, 50, 80, horizon.Options{})
		Expect(horizons(res)).To(Equal([]int{50, 80}))
		Expect(res.Attempts[1].TerminalGap).To(BeNumerically("<", res.Attempts[0].TerminalGap))
	})

	DescribeTable("agrees on the first periods whatever the starting horizon",
		func(minHorizon int) {
			res, err := horizon.FindPath(lag3, econ.State{0.1, 0.2, 0, 0}, 50, 500, horizon.Options{Tol: 1e-8, MinHorizon: minHorizon})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Flag).To(Equal(econ.Success))
			Expect(res.Attempts[0].Horizon).To(Equal(minHorizon))

			want := econ.State{0.019970296634854383, 0.02434724392808362, 0.0300843018130914, 0.08910000493623567}
			Expect(cmp.Diff(want, res.Path[9], approx)).To(BeEmpty())
		},
		Entry("H=100", 100),
		Entry("H=150", 150),
		Entry("H=300", 300),
		Entry("H=500", 500),
	)

	It("starts from MinHorizon when it exceeds T", func() {
		res, err := horizon.FindPath(lag3, econ.State{0.1, 0.2, 0, 0}, 10, 500, horizon.Options{MinHorizon: 100})
		Expect(err).NotTo(HaveOccurred())
		Expect(horizons(res)).To(Equal([]int{100}))
		Expect(res.Path).To(HaveLen(11))
	})

	DescribeTable("rejects invalid input before solving",
		func(init econ.State, T, maxHorizon int) {
			attempt, seen := scripted()
			res, err := horizon.FindPath(lag3, init, T, maxHorizon, horizon.Options{Attempt: attempt})
			Expect(err).To(MatchError(econ.ErrInvalidInput))
			Expect(res.Flag).To(Equal(econ.InvalidInput))
			Expect(*seen).To(BeEmpty())
		},
		Entry("T below one", econ.State{0, 0, 0, 0}, 0, 100),
		Entry("T beyond max horizon", econ.State{0, 0, 0, 0}, 101, 100),
		Entry("short initial state", econ.State{0, 0}, 10, 100),
	)

	It("rejects a model without steady state", func() {
		m, err := models.NewLag3().Model()
		Expect(err).NotTo(HaveOccurred())
		res, err := horizon.FindPath(m, econ.State{0, 0, 0, 0}, 10, 100, horizon.Options{})
		Expect(err).To(MatchError(econ.ErrInvalidInput))
		Expect(res.Flag).To(Equal(econ.InvalidInput))
	})

	Context("with scripted attempts", func() {
		It("surfaces a singular jacobian immediately", func() {
			attempt, seen := scripted(econ.SingularJacobian)
			res, err := horizon.FindPath(lag3, econ.State{0.1, 0, 0, 0}, 20, 500, horizon.Options{Attempt: attempt})
			Expect(err).To(MatchError(econ.ErrSingularJacobian))
			Expect(res.Flag).To(Equal(econ.SingularJacobian))
			Expect(*seen).To(Equal([]int{20}))
		})

		It("doubles the horizon after a failed solve", func() {
			attempt, seen := scripted(econ.NonConvergence, econ.NonConvergence)
			res, err := horizon.FindPath(lag3, econ.State{0.1, 0, 0, 0}, 20, 500, horizon.Options{Attempt: attempt})
			Expect(err).NotTo(HaveOccurred())
			Expect(*seen).To(Equal([]int{20, 40, 80}))
			Expect(res.Flag).To(Equal(econ.Success))
			Expect(res.Path).To(HaveLen(21))
		})

		It("caps the horizon at the maximum", func() {
			attempt, seen := scripted(econ.NonConvergence, econ.NonConvergence, econ.NonConvergence)
			res, err := horizon.FindPath(lag3, econ.State{0.1, 0, 0, 0}, 20, 50, horizon.Options{Attempt: attempt})
			Expect(err).To(MatchError(econ.ErrHorizonExceeded))
			Expect(res.Flag).To(Equal(econ.HorizonExceeded))
			Expect(*seen).To(Equal([]int{20, 40, 50}))
			Expect(res.Attempts[2].Next).To(Equal(horizon.Exhausted))
		})

		It("stops after MaxAttempts", func() {
			attempt, seen := scripted(econ.NonConvergence, econ.NonConvergence, econ.NonConvergence, econ.NonConvergence)
			res, err := horizon.FindPath(lag3, econ.State{0.1, 0, 0, 0}, 5, 10000, horizon.Options{Attempt: attempt, MaxAttempts: 3})
			Expect(err).To(MatchError(econ.ErrHorizonExceeded))
			Expect(*seen).To(Equal([]int{5, 10, 20}))
			Expect(res.Diagnostics.Attempts).To(Equal(3))
		})

		It("reports every attempt", func() {
			attempt, _ := scripted(econ.NonConvergence)
			var got []horizon.Attempt
			_, err := horizon.FindPath(lag3, econ.State{0.1, 0, 0, 0}, 20, 500, horizon.Options{
				Attempt:   attempt,
				OnAttempt: func(a horizon.Attempt) { got = append(got, a) },
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(2))
			Expect(got[0].Flag).To(Equal(econ.NonConvergence))
			Expect(got[0].Next).To(Equal(horizon.Extending))
			Expect(got[1].Next).To(Equal(horizon.Converged))
		})
	})

	It("gives up with a best-effort path when the horizon is too short", func() {
		rbc := solved(models.NewRBC())
		init, err := rbc.With(steadyOf(rbc), "Z", 1.01)
		Expect(err).NotTo(HaveOccurred())

		res, err := horizon.FindPath(rbc, init, 20, 100, horizon.Options{})
		Expect(err).To(MatchError(econ.ErrHorizonExceeded))
		Expect(res.Flag).To(Equal(econ.HorizonExceeded))
		Expect(horizons(res)).To(Equal([]int{20, 40, 80, 100}))
		Expect(res.Path).To(HaveLen(21))
		Expect(res.Diagnostics.TerminalGap).To(BeNumerically(">", 1e-8))
		for _, a := range res.Attempts {
			Expect(a.Flag).To(Equal(econ.Success))
		}
	})

	It("conserves household mass along the aiyagari tfp transition", func() {
		if testing.Short() {
			Skip("household transition is slow")
		}
		cfg := config.GetPreset("aiyagari", "tfp")
		Expect(cfg).NotTo(BeNil())

		m, err := models.NewAiyagari().Model()
		Expect(err).NotTo(HaveOccurred())
		_, err = steady.Solve(m, nil, cfg.SteadyOptions())
		Expect(err).NotTo(HaveOccurred())
		init, err := cfg.InitialState(m, steadyOf(m))
		Expect(err).NotTo(HaveOccurred())

		res, err := horizon.FindPath(m, init, cfg.Path.Horizon, cfg.Path.MaxHorizon, cfg.PathOptions())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Flag).To(Equal(econ.Success))
		Expect(res.Path).To(HaveLen(cfg.Path.Horizon + 1))
		Expect(res.Household).NotTo(BeNil())
		Expect(res.Household.Distributions).To(HaveLen(res.Diagnostics.Horizon + 1))
		for _, d := range res.Household.Distributions {
			Expect(d.Sum()).To(BeNumerically("~", 1, hetagent.MassTol))
		}
	})

	Describe("logging", func() {
		It("logs attempts at verbose 1 and iterations at verbose 2", func() {
			var buf bytes.Buffer
			l := logger.New(logger.Config{Verbose: 2, Writer: &buf})

			_, err := horizon.FindPath(lag3, econ.State{0.1, 0.2, 0, 0}, 50, 500, horizon.Options{Verbose: 1, Logger: l})
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.Count(buf.String(), "horizon attempt")).To(Equal(2))
			Expect(buf.String()).NotTo(ContainSubstring("newton iteration"))

			buf.Reset()
			_, err = horizon.FindPath(lag3, econ.State{0.1, 0.2, 0, 0}, 50, 500, horizon.Options{Verbose: 2, Logger: l})
			Expect(err).NotTo(HaveOccurred())
			Expect(buf.String()).To(ContainSubstring("newton iteration"))
			Expect(buf.String()).To(ContainSubstring("model=lag3"))
		})
	})
})

var _ = Describe("FindPathStacked", func() {
	It("solves the nk discount-factor shock", func() {
		nk := solved(models.NewNK())
		res, err := horizon.FindPathStacked(nk, econ.Shock{Name: "e_beta", Value: 0.02}, horizon.StackedOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Flag).To(Equal(econ.Success))
		Expect(res.Path).To(HaveLen(horizon.DefaultHorizon + 1))
		Expect(res.Diagnostics.Horizon).To(Equal(horizon.DefaultHorizon))

		want := econ.State{0.9969117849853416, 0.9985726280640043, 1.0170952557223212, 0.9832938574212821}
		Expect(cmp.Diff(want, res.Path[9], cmpopts.EquateApprox(0, 1e-7))).To(BeEmpty())
		Expect(cmp.Diff(steadyOf(nk), res.Path[0], approx)).To(BeEmpty())
	})

	It("adds a variable shock to the initial state", func() {
		lag3 := solved(models.NewLag3())
		res, err := horizon.FindPathStacked(lag3, econ.Shock{Name: "y", Value: 0.1}, horizon.StackedOptions{Horizon: 50})
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Path).To(HaveLen(51))
		Expect(res.Path[0][0]).To(BeNumerically("~", 0.1, 1e-12))
	})

	It("treats a zero shock as the steady state", func() {
		nk := solved(models.NewNK())
		res, err := horizon.FindPathStacked(nk, econ.Shock{Name: "e_beta"}, horizon.StackedOptions{Horizon: 20})
		Expect(err).NotTo(HaveOccurred())
		for _, x := range res.Path {
			Expect(cmp.Diff(steadyOf(nk), x, cmpopts.EquateApprox(0, 1e-12))).To(BeEmpty())
		}
	})

	It("rejects unknown names", func() {
		nk := solved(models.NewNK())
		res, err := horizon.FindPathStacked(nk, econ.Shock{Name: "nope", Value: 1}, horizon.StackedOptions{})
		Expect(err).To(MatchError(econ.ErrInvalidInput))
		Expect(res.Flag).To(Equal(econ.InvalidInput))
	})
})
