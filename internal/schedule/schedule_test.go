package schedule_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kvasudev/eqmd/internal/md"
	"github.com/kvasudev/eqmd/internal/schedule"
)

var _ = Describe("Build", func() {
	It("rejects a non-positive max pressure before any simulation work", func() {
		for _, p := range []float64{0, -1, -50_000} {
			_, err := schedule.Build(p)
			Expect(err).To(MatchError(md.ErrMaxPressure))
		}
	})

	It("produces exactly 21 stages with strictly increasing indices", func() {
		stages, err := schedule.Build(50_000)
		Expect(err).NotTo(HaveOccurred())
		Expect(stages).To(HaveLen(schedule.NumStages))
		for i, s := range stages {
			Expect(s.Index).To(Equal(i + 1))
			Expect(s.DurationSteps).To(BeNumerically(">", 0))
			Expect(s.Temperature).To(BeNumerically(">", 0))
		}
	})

	It("is a pure function of max pressure", func() {
		a, err := schedule.Build(75_000)
		Expect(err).NotTo(HaveOccurred())
		b, err := schedule.Build(75_000)
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(Equal(b))
	})

	It("scales NPT targets by max pressure", func() {
		stages, err := schedule.Build(75_000)
		Expect(err).NotTo(HaveOccurred())

		targets := map[string]float64{}
		for _, s := range stages {
			if s.BarostatEnabled() {
				targets[s.Name] = s.Pressure
			}
		}
		Expect(targets).To(Equal(map[string]float64{
			"md3":  1_500,
			"md6":  45_000,
			"md9":  75_000,
			"md12": 37_500,
			"md15": 7_500,
			"md18": 750,
			"md21": schedule.AmbientPressure,
		}))
	})

	It("keeps pressure fractions inside [-1, 1]", func() {
		// 0.5 bar sits below the ambient target, where the final stage's
		// fraction would otherwise exceed 1.
		for _, maxPressure := range []float64{50_000, 1, 0.5} {
			stages, err := schedule.Build(maxPressure)
			Expect(err).NotTo(HaveOccurred())
			for _, s := range stages {
				if s.BarostatEnabled() {
					Expect(s.PressureFraction).To(BeNumerically(">=", -1))
					Expect(s.PressureFraction).To(BeNumerically("<=", 1))
				}
			}
			Expect(stages[schedule.NumStages-1].Pressure).To(Equal(schedule.AmbientPressure))
		}
	})

	It("releases every compression through a hot NVT anneal before the next cycle", func() {
		stages, err := schedule.Build(50_000)
		Expect(err).NotTo(HaveOccurred())

		for i, s := range stages {
			if !s.BarostatEnabled() || s.Pressure <= schedule.AmbientPressure {
				continue
			}
			// A compressed stage is never the last, and the pressure is
			// released (barostat detached) at the annealing temperature
			// before any further pressure target applies.
			Expect(i + 1).To(BeNumerically("<", len(stages)))
			next := stages[i+1]
			Expect(next.BarostatEnabled()).To(BeFalse())
			Expect(next.Temperature).To(Equal(schedule.MaxTemperature))
		}
	})

	It("alternates the published temperature levels", func() {
		stages, err := schedule.Build(50_000)
		Expect(err).NotTo(HaveOccurred())
		for _, s := range stages {
			Expect(s.Temperature).To(Or(
				Equal(schedule.BaseTemperature),
				Equal(schedule.MaxTemperature),
			))
		}
		Expect(stages[0].Temperature).To(Equal(schedule.MaxTemperature))
	})

	It("ends with the long ambient NPT relaxation", func() {
		stages, err := schedule.Build(50_000)
		Expect(err).NotTo(HaveOccurred())

		last := stages[len(stages)-1]
		Expect(last.Name).To(Equal("md21"))
		Expect(last.BarostatEnabled()).To(BeTrue())
		Expect(last.Pressure).To(Equal(schedule.AmbientPressure))
		Expect(last.Picoseconds()).To(Equal(800.0))
	})

	It("converts published durations at the 2 fs timestep", func() {
		stages, err := schedule.Build(50_000)
		Expect(err).NotTo(HaveOccurred())
		Expect(stages[0].DurationSteps).To(Equal(25_000))   // 50 ps
		Expect(stages[4].DurationSteps).To(Equal(50_000))   // 100 ps
		Expect(stages[11].DurationSteps).To(Equal(2_500))   // 5 ps
		Expect(stages[20].DurationSteps).To(Equal(400_000)) // 800 ps
	})
})
