package sgt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"saft_gamma_mie/database"
	"saft_gamma_mie/eos"
	"saft_gamma_mie/equilibrium"
)

var (
	hexane_groups = []eos.GroupCount{{Name: "CH3", Count: 2}, {Name: "CH2", Count: 4}}
	butane_groups = []eos.GroupCount{{Name: "CH3", Count: 2}, {Name: "CH2", Count: 2}}
)

func newEoS(t *testing.T, comps ...*eos.Component) *eos.EoS {
	mix, err := eos.NewMixture(comps...)
	require.NoError(t, err)
	e, err := eos.New(database.Default(), mix)
	require.NoError(t, err)
	return e
}

// 相関式の影響パラメータを与えた成分
func withCii(t *testing.T, name string, groups []eos.GroupCount) *eos.Component {
	plain, err := eos.NewComponent(name, groups)
	require.NoError(t, err)
	c := newEoS(t, plain).CiiCorrelation()[0]
	comp, err := eos.NewComponent(name, groups, c)
	require.NoError(t, err)
	return comp
}

func saturation(t *testing.T, e *eos.EoS, T float64) *equilibrium.Solution {
	s, err := equilibrium.Psat(e, T, equilibrium.Init{}, equilibrium.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, s.Err())
	return s
}

func TestToMilliNewton(t *testing.T) {
	assert.InDelta(t, 72., ToMilliNewton(0.072), 1e-12)
	r := Result{Tension: 0.02}
	assert.InDelta(t, 20., r.MilliNewton(), 1e-12)
}

func TestProfileInterpolation(t *testing.T) {
	z := []float64{-1e-9, 0, 2e-9}
	rho := mat.NewDense(3, 2, []float64{
		10, 100,
		20, 300,
		40, 700,
	})
	p, err := new_profile(z, rho)
	require.NoError(t, err)

	assert.Equal(t, []float64{10, 100}, p.At(-1e-9))
	assert.Equal(t, []float64{40, 700}, p.At(2e-9))
	assert.InDeltaSlice(t, []float64{15, 200}, p.At(-0.5e-9), 1e-9)
	assert.InDeltaSlice(t, []float64{30, 500}, p.At(1e-9), 1e-9)
	// 範囲外は端の値
	assert.Equal(t, []float64{10, 100}, p.At(-5e-9))
	assert.Equal(t, []float64{40, 700}, p.At(5e-9))

	// 結果は呼び出し間で共有しない
	a := p.At(0)
	a[0] = -1
	assert.Equal(t, []float64{20, 300}, p.At(0))
}

func TestProfileRejectsBadCoordinates(t *testing.T) {
	rho := mat.NewDense(3, 1, []float64{1, 2, 3})

	_, err := new_profile([]float64{0, 0, 1}, rho)
	assert.ErrorIs(t, err, eos.ErrSpecification)

	_, err = new_profile([]float64{0, 2, 1}, rho)
	assert.ErrorIs(t, err, eos.ErrSpecification)

	_, err = new_profile([]float64{0, 1}, rho)
	assert.ErrorIs(t, err, eos.ErrSpecification)
}

func TestPureNeedsInfluenceParameter(t *testing.T) {
	plain, err := eos.NewComponent("n-hexane", hexane_groups)
	require.NoError(t, err)
	e := newEoS(t, plain)
	_, err = Pure(e, 7000, 10, 300, 2e4, DefaultOptions())
	assert.ErrorIs(t, err, eos.ErrSpecification)

	m := newEoS(t, withCii(t, "n-hexane", hexane_groups), withCii(t, "n-butane", butane_groups))
	_, err = Pure(m, 7000, 10, 300, 2e4, DefaultOptions())
	assert.ErrorIs(t, err, eos.ErrSpecification)

	h := newEoS(t, withCii(t, "n-hexane", hexane_groups))
	_, err = Pure(h, 7000, -1, 300, 2e4, DefaultOptions())
	assert.ErrorIs(t, err, eos.ErrDomain)

	_, err = Pure(h, 7000, 10, 300, 2e4, Options{})
	assert.ErrorIs(t, err, eos.ErrSpecification)
}

func TestPureHexane(t *testing.T) {
	e := newEoS(t, withCii(t, "n-hexane", hexane_groups))
	s := saturation(t, e, 300)

	r, err := Pure(e, s.Phases[0].Rho(), s.Phases[1].Rho(), 300, s.P(), DefaultOptions())
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.Greater(t, r.MilliNewton(), 5.)
	assert.Less(t, r.MilliNewton(), 40.)

	// 気相側から液相側へ単調に増加する分布
	rho := r.Profile.Component(0)
	z := r.Profile.Z
	require.Equal(t, len(z), len(rho))
	for k := 1; k < len(z); k++ {
		assert.Greater(t, z[k], z[k-1])
		assert.Greater(t, rho[k], rho[k-1])
	}
	assert.Less(t, z[0], 0.)
	assert.Greater(t, z[len(z)-1], 0.)

	// 引数の順序によらない
	swapped, err := Pure(e, s.Phases[1].Rho(), s.Phases[0].Rho(), 300, s.P(), DefaultOptions())
	require.NoError(t, err)
	assert.InEpsilon(t, r.Tension, swapped.Tension, 1e-12)
}

func TestPureDecreasesWithTemperature(t *testing.T) {
	e := newEoS(t, withCii(t, "n-hexane", hexane_groups))

	prev := 0.
	for i, T := range []float64{300, 340, 380, 420, 460} {
		s := saturation(t, e, T)
		r, err := Pure(e, s.Phases[0].Rho(), s.Phases[1].Rho(), T, s.P(), DefaultOptions())
		require.NoError(t, err)
		assert.Greater(t, r.Tension, 0.)
		if i > 0 {
			assert.Less(t, r.Tension, prev, "T=%g", T)
		}
		prev = r.Tension
	}
}

func TestPureTensionVanishesAtCriticalPoint(t *testing.T) {
	e := newEoS(t, withCii(t, "n-hexane", hexane_groups))
	opts := equilibrium.DefaultOptions()

	type point struct{ T, tension, drho float64 }
	var pts []point
	at := func(T float64) bool {
		s, err := equilibrium.Psat(e, T, equilibrium.Init{}, opts)
		if err != nil || s.Err() != nil {
			return false
		}
		r, err := Pure(e, s.Phases[0].Rho(), s.Phases[1].Rho(), T, s.P(), DefaultOptions())
		require.NoError(t, err, "T=%g", T)
		pts = append(pts, point{T, r.Tension, s.Phases[0].Rho() - s.Phases[1].Rho()})
		return true
	}

	// 相分離がなくなる温度まで上げ、その手前を二分法で詰める。
	lo, hi := 0., 0.
	for T := 300.; T <= 700; T += 25 {
		if !at(T) {
			hi = T
			break
		}
		lo = T
	}
	require.Greater(t, hi, 0., "no critical point below 700 K")
	for i := 0; i < 8; i++ {
		mid := (lo + hi) / 2
		if at(mid) {
			lo = mid
		} else {
			hi = mid
		}
	}
	require.GreaterOrEqual(t, len(pts), 8)

	for k := 1; k < len(pts); k++ {
		require.Greater(t, pts[k].T, pts[k-1].T)
		assert.Less(t, pts[k].tension, pts[k-1].tension, "T=%g", pts[k].T)
		assert.Less(t, pts[k].drho, pts[k-1].drho, "T=%g", pts[k].T)
	}
	first, last := pts[0], pts[len(pts)-1]
	assert.Greater(t, last.tension, 0.)
	assert.Less(t, last.tension, 0.1*first.tension)
	assert.Less(t, last.drho, 0.3*first.drho)
}

func TestFitCiiRecoversConstant(t *testing.T) {
	truth := withCii(t, "n-hexane", hexane_groups)
	c0 := truth.Cii(0)
	e := newEoS(t, truth)

	var data []database.Experiment
	for _, T := range []float64{290, 320, 350, 380} {
		s := saturation(t, e, T)
		r, err := Pure(e, s.Phases[0].Rho(), s.Phases[1].Rho(), T, s.P(), DefaultOptions())
		require.NoError(t, err)
		data = append(data, database.Experiment{
			T: T, P: s.P(), RhoL: s.Phases[0].Rho(), RhoV: s.Phases[1].Rho(), Tension: r.Tension,
		})
	}

	plain, err := eos.NewComponent("n-hexane", hexane_groups)
	require.NoError(t, err)
	fit, err := FitCii(newEoS(t, plain), data, 0, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, fit.Coef, 1)
	assert.InEpsilon(t, c0, fit.Coef[0], 0.01)
	assert.Less(t, fit.AAD, 1e-3)
	assert.Less(t, fit.MaxDeviation(data), 1e-3)

	lin, err := FitCii(newEoS(t, plain), data, 1, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, lin.Coef, 2)
	assert.InEpsilon(t, c0, lin.Cii(335), 0.01)

	_, err = FitCii(newEoS(t, plain), data[:1], 1, DefaultOptions())
	assert.ErrorIs(t, err, eos.ErrSpecification)
}

func TestMixtureReferenceAndBVPAgree(t *testing.T) {
	e := newEoS(t, withCii(t, "n-butane", butane_groups), withCii(t, "n-hexane", hexane_groups))
	x := []float64{0.3, 0.7}
	T := 300.

	bub, err := equilibrium.BubblePy(e, x, T, equilibrium.Init{P: 1e5}, equilibrium.Options{Tol: 1e-10, MaxIter: 500})
	require.NoError(t, err)
	require.NoError(t, bub.Err())

	rhol := make([]float64, 2)
	rhov := make([]float64, 2)
	floats.ScaleTo(rhol, bub.Phases[0].Rho(), bub.Phases[0].X)
	floats.ScaleTo(rhov, bub.Phases[1].Rho(), bub.Phases[1].X)

	ref, err := MixtureBeta0(e, rhol, rhov, T, bub.P(), DefaultOptions())
	require.NoError(t, err)
	assert.True(t, ref.Success)
	assert.Greater(t, ref.Tension, 0.)

	bvp, err := Mixture(e, rhol, rhov, T, bub.P(), nil, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, bvp.Success)
	assert.InEpsilon(t, ref.Tension, bvp.Tension, 0.05)

	n := len(bvp.Profile.Z)
	assert.InDeltaSlice(t, rhov, bvp.Profile.Rho.RawRowView(0), 1e-9)
	assert.InDeltaSlice(t, rhol, bvp.Profile.Rho.RawRowView(n-1), 1e-9)

	// 純物質の張力の間にある
	pure := func(groups []eos.GroupCount, name string) float64 {
		p := newEoS(t, withCii(t, name, groups))
		s := saturation(t, p, T)
		r, err := Pure(p, s.Phases[0].Rho(), s.Phases[1].Rho(), T, s.P(), DefaultOptions())
		require.NoError(t, err)
		return r.Tension
	}
	lo, hi := pure(butane_groups, "n-butane"), pure(hexane_groups, "n-hexane")
	assert.Greater(t, ref.Tension, lo)
	assert.Less(t, ref.Tension, hi)
}

func TestMixtureArguments(t *testing.T) {
	e := newEoS(t, withCii(t, "n-butane", butane_groups), withCii(t, "n-hexane", hexane_groups))
	rho := []float64{100, 100}
	_, err := Mixture(e, rho, rho, 300, 1e5, [][]float64{{0.1, 0}, {0, 0}}, DefaultOptions())
	assert.ErrorIs(t, err, eos.ErrSpecification)

	_, err = MixtureBeta0(e, []float64{1}, rho, 300, 1e5, DefaultOptions())
	assert.ErrorIs(t, err, eos.ErrComposition)

	h := newEoS(t, withCii(t, "n-hexane", hexane_groups))
	_, err = MixtureBeta0(h, []float64{7000}, []float64{10}, 300, 1e5, DefaultOptions())
	assert.ErrorIs(t, err, eos.ErrSpecification)
}
