package pid_test

import (
	"math/rand"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/pidloop/pid"
)

var _ = Describe("Controller", func() {

	var (
		cfg  pid.Config[float64]
		ctrl *pid.Controller[float64]
		rng  *rand.Rand
	)

	BeforeEach(func() {
		cfg = pid.Config[float64]{
			Kp:           4,
			Ki:           2,
			Kd:           0.5,
			Direction:    pid.Direct,
			Mode:         pid.NonAccumulating,
			SamplePeriod: 50 * time.Millisecond,
			OutMin:       -20,
			OutMax:       35,
			SetPoint:     3,
		}
		rng = rand.New(rand.NewSource(7))
	})

	JustBeforeEach(func() {
		var err error
		ctrl, err = pid.NewFloat64(cfg)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("clamping", func() {
		for _, mode := range []pid.OutputMode{pid.NonAccumulating, pid.Accumulating} {
			mode := mode
			Context("in "+mode.String()+" mode", func() {
				BeforeEach(func() { cfg.Mode = mode })

				It("keeps every output and the integral inside the limits", func() {
					for i := 0; i < 2000; i++ {
						out := ctrl.Update(rng.Float64()*400 - 200)
						Expect(out).To(BeNumerically(">=", cfg.OutMin))
						Expect(out).To(BeNumerically("<=", cfg.OutMax))
						Expect(ctrl.Terms().Integral).To(BeNumerically(">=", cfg.OutMin))
						Expect(ctrl.Terms().Integral).To(BeNumerically("<=", cfg.OutMax))
					}
				})
			})
		}
	})

	Describe("first update", func() {
		BeforeEach(func() {
			cfg.Kp, cfg.Ki, cfg.Kd = 0, 0, 10
		})

		It("contributes no derivative term", func() {
			Expect(ctrl.Update(1000)).To(BeZero())
			Expect(ctrl.Terms().Derivative).To(BeZero())
		})

		It("applies derivative action from the second update on", func() {
			ctrl.Update(1)
			Expect(ctrl.Update(2)).To(BeNumerically("<", 0))
		})
	})

	Describe("anti-windup", func() {
		It("pins the integral at the upper limit under sustained error", func() {
			for i := 0; i < 500; i++ {
				ctrl.Update(-1e6)
			}
			Expect(ctrl.Terms().Integral).To(Equal(cfg.OutMax))
		})

		It("pins the integral at the lower limit under sustained negative error", func() {
			for i := 0; i < 500; i++ {
				ctrl.Update(1e6)
			}
			Expect(ctrl.Terms().Integral).To(Equal(cfg.OutMin))
		})
	})

	Describe("direction", func() {
		It("mirrors scaled gains and unclamped outputs", func() {
			cfg.OutMin, cfg.OutMax = -1e9, 1e9
			direct, err := pid.NewFloat64(cfg)
			Expect(err).NotTo(HaveOccurred())
			cfg.Direction = pid.Reverse
			reverse, err := pid.NewFloat64(cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(reverse.Zp()).To(Equal(-direct.Zp()))
			Expect(reverse.Zi()).To(Equal(-direct.Zi()))
			Expect(reverse.Zd()).To(Equal(-direct.Zd()))

			for i := 0; i < 50; i++ {
				in := rng.Float64()*10 - 5
				Expect(reverse.Update(in)).To(BeNumerically("~", -direct.Update(in), 1e-9))
			}
		})
	})

	Describe("rejected requests", func() {
		It("keeps gains after SetTunings(-1, 1, 1)", func() {
			Expect(ctrl.SetTunings(-1, 1, 1)).To(MatchError(pid.ErrNegativeGain))
			Expect([]float64{ctrl.Kp(), ctrl.Ki(), ctrl.Kd()}).To(Equal([]float64{4, 2, 0.5}))
		})

		It("keeps limits after SetOutputLimits(5, 5) and (5, 3)", func() {
			Expect(ctrl.SetOutputLimits(5, 5)).To(MatchError(pid.ErrInvalidLimits))
			Expect(ctrl.SetOutputLimits(5, 3)).To(MatchError(pid.ErrInvalidLimits))
			lo, hi := ctrl.OutputLimits()
			Expect(lo).To(Equal(cfg.OutMin))
			Expect(hi).To(Equal(cfg.OutMax))
		})
	})

	Describe("sample period rescale", func() {
		It("doubles zi and halves zd when the period doubles", func() {
			zi, zd := ctrl.Zi(), ctrl.Zd()
			Expect(ctrl.SetSamplePeriod(100 * time.Millisecond)).To(Succeed())
			Expect(ctrl.Zi()).To(BeNumerically("~", 2*zi, 1e-12))
			Expect(ctrl.Zd()).To(BeNumerically("~", zd/2, 1e-12))
		})

		It("matches a controller initialized at the new period", func() {
			Expect(ctrl.SetSamplePeriod(20 * time.Millisecond)).To(Succeed())
			cfg.SamplePeriod = 20 * time.Millisecond
			fresh, err := pid.NewFloat64(cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(ctrl.Zi()).To(BeNumerically("~", fresh.Zi(), 1e-12))
			Expect(ctrl.Zd()).To(BeNumerically("~", fresh.Zd(), 1e-9))
		})
	})
})
