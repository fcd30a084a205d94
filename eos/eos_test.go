package eos

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saft_gamma_mie/database"
)

func water(t *testing.T) *Component {
	c, err := NewComponent("water", []GroupCount{{"H2O", 1}})
	require.NoError(t, err)
	return c
}

func hexane(t *testing.T) *Component {
	c, err := NewComponent("n-hexane", []GroupCount{{"CH3", 2}, {"CH2", 4}})
	require.NoError(t, err)
	return c
}

func methanol(t *testing.T) *Component {
	c, err := NewComponent("methanol", []GroupCount{{"CH3", 1}, {"CH2OH", 1}})
	require.NoError(t, err)
	return c
}

func newEoS(t *testing.T, comps ...*Component) *EoS {
	mix, err := NewMixture(comps...)
	require.NoError(t, err)
	e, err := New(database.Default(), mix)
	require.NoError(t, err)
	return e
}

func TestNewComponentValidation(t *testing.T) {
	_, err := NewComponent("empty", nil)
	assert.ErrorIs(t, err, ErrSpecification)

	_, err = NewComponent("zero", []GroupCount{{"CH3", 0}})
	assert.ErrorIs(t, err, ErrSpecification)

	_, err = NewComponent("dup", []GroupCount{{"CH3", 1}, {"CH3", 1}})
	assert.ErrorIs(t, err, ErrSpecification)

	_, err = NewMixture()
	assert.ErrorIs(t, err, ErrSpecification)
}

func TestResolveUnknownGroup(t *testing.T) {
	c, err := NewComponent("x", []GroupCount{{"CH3", 1}, {"XYZ", 2}})
	require.NoError(t, err)
	_, err = NewPure(database.Default(), c)
	assert.ErrorIs(t, err, database.ErrUnknownGroup)
}

func TestCiiPolynomial(t *testing.T) {
	c, err := NewComponent("water", []GroupCount{{"H2O", 1}}, 2e-22, 1e-20)
	require.NoError(t, err)
	assert.True(t, c.HasCii())
	assert.InDelta(t, 2e-22*300+1e-20, c.Cii(300), 1e-30)

	assert.False(t, water(t).HasCii())
}

func TestParameterSymmetry(t *testing.T) {
	e := newEoS(t, water(t), hexane(t), methanol(t))
	p := e.Parameters()
	ps := database.Default()

	require.Equal(t, []string{"H2O", "CH3", "CH2", "CH2OH"}, p.Groups)

	for k := range p.Groups {
		g, err := ps.Group(p.Groups[k])
		require.NoError(t, err)
		assert.Equal(t, g.Sigma*angstrom, p.Sigma[k][k])
		assert.Equal(t, g.Eps*kb, p.Eps[k][k])
		assert.Equal(t, g.LambdaR, p.LambdaR[k][k])
		assert.Equal(t, g.LambdaA, p.LambdaA[k][k])

		for l := range p.Groups {
			assert.Equal(t, p.Sigma[k][l], p.Sigma[l][k])
			assert.Equal(t, p.Eps[k][l], p.Eps[l][k])
			assert.Equal(t, p.LambdaR[k][l], p.LambdaR[l][k])
			assert.Equal(t, p.LambdaA[k][l], p.LambdaA[l][k])
		}
	}

	// カタログの異種間パラメータ CH3-CH2
	assert.InEpsilon(t, 350.77*kb, p.Eps[1][2], 1e-12)
	// 組み合わせ則 H2O-CH3
	s := (3.0063 + 4.0772) / 2
	eps := math.Sqrt(math.Pow(3.0063, 3)*math.Pow(4.0772, 3)) / math.Pow(s, 3) * math.Sqrt(266.68*256.77)
	assert.InEpsilon(t, eps*kb, p.Eps[0][1], 1e-12)
	assert.InEpsilon(t, s*angstrom, p.Sigma[0][1], 1e-12)
	assert.InEpsilon(t, 3+math.Sqrt(14.02*12.05), p.LambdaR[0][1], 1e-12)

	// 会合サイトは H2O (H, e1) と CH2OH (H, e1)
	assert.True(t, e.Associating())
	assert.Len(t, p.sites, 4)
}

func TestWithUnlikeOverride(t *testing.T) {
	mix, err := NewMixture(water(t), hexane(t))
	require.NoError(t, err)
	over := mix.WithUnlike("CH3", "H2O", 300, 20)

	e1, err := New(database.Default(), mix)
	require.NoError(t, err)
	e2, err := New(database.Default(), over)
	require.NoError(t, err)

	assert.InEpsilon(t, 300*kb, e2.Parameters().Eps[0][1], 1e-12)
	assert.InEpsilon(t, 20., e2.Parameters().LambdaR[1][0], 1e-12)
	assert.NotEqual(t, e1.Parameters().Eps[0][1], e2.Parameters().Eps[0][1])
	// 元の混合物は変更されない。
	assert.Empty(t, mix.unlike)

	// 混合物の上書きはカタログより優先される。
	over2 := mix.WithUnlike("CH2", "CH3", 400, 0)
	e3, err := New(database.Default(), over2)
	require.NoError(t, err)
	assert.InEpsilon(t, 400*kb, e3.Parameters().Eps[1][2], 1e-12)
}

func TestPureFluidReduction(t *testing.T) {
	pure := newEoS(t, hexane(t))
	mix := newEoS(t, hexane(t), water(t))

	T, rho := 320., 7500.
	a1, err := pure.Ares(T, rho, []float64{1})
	require.NoError(t, err)
	a2, err := mix.Ares(T, rho, []float64{1, 0})
	require.NoError(t, err)
	assert.InEpsilon(t, a1, a2, 1e-10)

	p1, err := pure.Pressure(T, rho, []float64{1})
	require.NoError(t, err)
	p2, err := mix.Pressure(T, rho, []float64{1, 0})
	require.NoError(t, err)
	assert.InEpsilon(t, p1, p2, 1e-8)

	l1, _, err := pure.LogFugacity(T, 1e5, []float64{1}, Liquid, 0)
	require.NoError(t, err)
	l2, _, err := mix.LogFugacity(T, 1e5, []float64{1, 0}, Liquid, 0)
	require.NoError(t, err)
	assert.InDelta(t, l1[0], l2[0], 1e-7)
}

func TestPureFluidReductionAssociating(t *testing.T) {
	pure := newEoS(t, water(t))
	mix := newEoS(t, water(t), methanol(t))
	require.True(t, mix.Associating())

	T, rho := 330., 54000.
	a1, err := pure.Ares(T, rho, []float64{1})
	require.NoError(t, err)
	a2, err := mix.Ares(T, rho, []float64{1, 0})
	require.NoError(t, err)
	assert.InEpsilon(t, a1, a2, 1e-9)

	p1, err := pure.Pressure(T, rho, []float64{1})
	require.NoError(t, err)
	p2, err := mix.Pressure(T, rho, []float64{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, p1, p2, 1e-8*math.Max(math.Abs(p1), 1e5))

	l1, _, err := pure.LogFugacity(T, 1e5, []float64{1}, Liquid, 0)
	require.NoError(t, err)
	l2, _, err := mix.LogFugacity(T, 1e5, []float64{1, 0}, Liquid, 0)
	require.NoError(t, err)
	assert.InDelta(t, l1[0], l2[0], 1e-7)
}

func TestCrossAssociation(t *testing.T) {
	p := newEoS(t, water(t), methanol(t)).Parameters()

	find := func(group string, kind database.SiteType) int {
		for a, s := range p.sites {
			if p.Groups[s.group] == group && s.kind == kind {
				return a
			}
		}
		t.Fatalf("site %s/%s not found", group, kind)
		return -1
	}
	wh, we := find("H2O", database.SiteH), find("H2O", database.SiteE1)
	mh, me := find("CH2OH", database.SiteH), find("CH2OH", database.SiteE1)

	// カタログの自己会合
	assert.InEpsilon(t, 1985.4*kb, p.eps_hb[wh][we], 1e-12)
	assert.InEpsilon(t, 62.309*angstrom3, p.kab[mh][me], 1e-12)

	// 異種間は組み合わせ則
	eps := math.Sqrt(1985.4 * 2097.9)
	c := (math.Cbrt(101.69) + math.Cbrt(62.309)) / 2
	for _, pair := range [][2]int{{wh, me}, {mh, we}} {
		a, b := pair[0], pair[1]
		assert.InEpsilon(t, eps*kb, p.eps_hb[a][b], 1e-12)
		assert.InEpsilon(t, c*c*c*angstrom3, p.kab[a][b], 1e-12)
		assert.Equal(t, p.eps_hb[a][b], p.eps_hb[b][a])
		assert.Equal(t, p.kab[a][b], p.kab[b][a])
	}

	// 同種サイト間は結合しない。
	assert.Zero(t, p.eps_hb[wh][mh])
	assert.Zero(t, p.kab[we][me])

	// 同じ値の組み合わせは元の値
	assert.InEpsilon(t, 1985.4, combine_eps_hb(1985.4, 1985.4), 1e-14)
	assert.InEpsilon(t, 101.69, combine_kab(101.69, 101.69), 1e-12)

	// 各成分が2サイトずつ未知数を持つ。
	assert.Len(t, p.inst, 4)
}

func TestWaterDensityAt300K(t *testing.T) {
	e := newEoS(t, water(t))
	x := []float64{1}

	rhol, err := e.Density(300, 3536.8, x, Liquid, 0)
	require.NoError(t, err)
	assert.InEpsilon(t, 55315., rhol, 0.03)

	rhov, err := e.Density(300, 3536.8, x, Vapor, 0)
	require.NoError(t, err)
	assert.InEpsilon(t, 1.42, rhov, 0.03)

	// 圧力の再計算
	P, err := e.Pressure(300, rhol, x)
	require.NoError(t, err)
	assert.InEpsilon(t, 3536.8, P, 1e-6)

	// 初期値からの Newton 法も同じ根に収束する。
	rho2, err := e.Density(300, 3536.8, x, Liquid, rhol*1.01)
	require.NoError(t, err)
	assert.InEpsilon(t, rhol, rho2, 1e-9)

	dpdrho, err := e.DPdRho(300, rhol, x)
	require.NoError(t, err)
	assert.Greater(t, dpdrho, 0.)
}

func TestAssociationSolver(t *testing.T) {
	e := newEoS(t, water(t))
	ta, err := e.TemperatureAux(300)
	require.NoError(t, err)

	x := []float64{1}
	rho := 55000 * Na
	da := e.density_aux(ta, rho, x)
	ns := e._site_numbers(x)
	delta := e._get_delta(ta, da)

	cold := _solve_xass(rho, ns, delta, nil, DefaultAssocOptions())
	require.True(t, cold.Converged)
	require.Len(t, cold.X, 2)
	for s, X := range cold.X {
		assert.Greater(t, X, 0.)
		assert.Less(t, X, 1.)

		var sum float64
		for u := range ns {
			sum += ns[u] * delta[s][u] * cold.X[u]
		}
		assert.InDelta(t, X, 1/(1+rho*sum), 1e-10)
	}

	// H と e1 が同数のため非結合分率は等しい。
	assert.InDelta(t, cold.X[0], cold.X[1], 1e-10)

	// 解において Q は a_assoc = Σ N_s (ln X_s - X_s/2 + 1/2) と一致する。
	var aassoc float64
	for s, X := range cold.X {
		aassoc += ns[s] * (math.Log(X) - X/2 + 0.5)
	}
	assert.InDelta(t, aassoc, _get_q(rho, ns, delta, cold.X), 1e-9)

	warm := _solve_xass(rho, ns, delta, cold.X, DefaultAssocOptions())
	assert.True(t, warm.Converged)
	assert.LessOrEqual(t, warm.Iterations, 2)

	// 反復回数が不足すれば未収束として報告する。
	short := _solve_xass(rho, ns, delta, nil, AssocOptions{Tol: 1e-14, MaxIter: 1})
	assert.False(t, short.Converged)
	assert.Equal(t, 1, short.Iterations)
	assert.Len(t, short.X, 2)
}

func TestNonAssociatingSkipsSolve(t *testing.T) {
	e := newEoS(t, hexane(t))
	assert.False(t, e.Associating())
	ta, err := e.TemperatureAux(300)
	require.NoError(t, err)
	r := e._solve_assoc(ta, 7000*Na, []float64{1}, nil)
	assert.True(t, r.Converged)
	assert.Nil(t, r.X)
}

func TestGibbsDuhem(t *testing.T) {
	e := newEoS(t, water(t), methanol(t))
	T, P := 320., 1e6
	x := []float64{0.4, 0.6}

	_, v, err := e.LogFugacity(T, P, x, Liquid, 0)
	require.NoError(t, err)

	dp := 1e-2 * P
	lp, _, err := e.LogFugacity(T, P+dp, x, Liquid, 0)
	require.NoError(t, err)
	lm, _, err := e.LogFugacity(T, P-dp, x, Liquid, 0)
	require.NoError(t, err)

	// Σ x_i (∂μ_i/∂P)_T = v, μ_i = RT (ln φ_i + ln x_i P) + const
	var sum float64
	for i := range x {
		dmu := (lp[i] + math.Log(P+dp) - lm[i] - math.Log(P-dp)) / (2 * dp)
		sum += x[i] * R * T * dmu
	}
	assert.InEpsilon(t, v, sum, 1e-3)
}

func TestLocalStateMatchesPressure(t *testing.T) {
	e := newEoS(t, water(t), methanol(t))
	ta, err := e.TemperatureAux(330)
	require.NoError(t, err)

	rho := []float64{20000, 10000}
	l, err := e.LocalAux(ta, rho, nil)
	require.NoError(t, err)
	P, err := e.Pressure(330, 30000, []float64{2. / 3, 1. / 3})
	require.NoError(t, err)
	assert.InDelta(t, P, l.P, 1e-6*30000*R*330)

	mu, err := e.ChemicalPotential(330, 30000, []float64{2. / 3, 1. / 3})
	require.NoError(t, err)
	assert.InDelta(t, mu[0], l.Mu[0], 1e-6*R*330)
	assert.InDelta(t, mu[1], l.Mu[1], 1e-6*R*330)

	// 平衡値を自身に取れば ΔΩ = f - Σρμ + P = 0
	assert.InDelta(t, 0, l.DeltaOmega(rho, l.Mu, l.P), 1e-6*math.Abs(l.F))
}

func TestDomainErrors(t *testing.T) {
	e := newEoS(t, water(t))
	x := []float64{1}

	_, err := e.Pressure(300, -1, x)
	assert.ErrorIs(t, err, ErrDomain)

	_, err = e.Pressure(-300, 1000, x)
	assert.ErrorIs(t, err, ErrDomain)

	_, err = e.Pressure(300, 1e7, x)
	assert.ErrorIs(t, err, ErrDomain)

	_, err = e.Density(300, -5, x, Liquid, 0)
	assert.ErrorIs(t, err, ErrDomain)

	_, err = e.Pressure(300, 1000, []float64{0.5, 0.5})
	assert.ErrorIs(t, err, ErrComposition)

	_, err = e.Density(300, 1e5, x, Phase("S"), 0)
	assert.ErrorIs(t, err, ErrSpecification)

	ta, err := e.TemperatureAux(300)
	require.NoError(t, err)
	_, err = e.LocalAux(ta, []float64{0}, nil)
	assert.ErrorIs(t, err, ErrDomain)
}

func TestNearClosePacking(t *testing.T) {
	e := newEoS(t, water(t))
	x := []float64{1}
	finite := func(v float64) bool {
		return !math.IsNaN(v) && !math.IsInf(v, 0)
	}

	for _, c := range []struct{ T, f float64 }{{300, 0.95}, {450, 0.99}} {
		ta, err := e.TemperatureAux(c.T)
		require.NoError(t, err)
		rho := c.f * e.MaxDensityAux(ta, x)

		if P, err := e.Pressure(c.T, rho, x); err == nil {
			assert.True(t, finite(P), "P=%g at T=%g", P, c.T)
		} else {
			assert.ErrorIs(t, err, ErrDomain)
		}
		if a, err := e.Ares(c.T, rho, x); err == nil {
			assert.True(t, finite(a), "a=%g at T=%g", a, c.T)
		} else {
			assert.ErrorIs(t, err, ErrDomain)
		}
		if mu, err := e.ChemicalPotential(c.T, rho, x); err == nil {
			assert.True(t, finite(mu[0]), "mu=%g at T=%g", mu[0], c.T)
		} else {
			assert.ErrorIs(t, err, ErrDomain)
		}
	}

	// 最密充填を超える密度
	ta, err := e.TemperatureAux(300)
	require.NoError(t, err)
	_, err = e.Pressure(300, 1.01*e.MaxDensityAux(ta, x), x)
	assert.ErrorIs(t, err, ErrDomain)
	_, err = e.Ares(300, 1.01*e.MaxDensityAux(ta, x), x)
	assert.ErrorIs(t, err, ErrDomain)
}

func TestNegativeAssociationStrengthKeepsFractionsPositive(t *testing.T) {
	ns := []float64{1, 1}
	rho := 1e28
	d := -3e-28
	delta := [][]float64{{0, d}, {d, 0}}

	for _, x0 := range [][]float64{nil, {0.5, 0.5}} {
		r := _solve_xass(rho, ns, delta, x0, DefaultAssocOptions())
		for _, X := range r.X {
			assert.Greater(t, X, 0.)
			assert.LessOrEqual(t, X, 1.)
		}
		assert.False(t, math.IsNaN(_get_q(rho, ns, delta, r.X)))
	}
}

func TestSpeedOfSoundIdealGasLimit(t *testing.T) {
	e := newEoS(t, water(t))
	T := 300.

	w, err := e.SpeedOfSound(T, 100, []float64{1}, Vapor, 0)
	require.NoError(t, err)

	// 単原子理想気体 w = sqrt(5/3 RT/M)
	ideal := math.Sqrt(5. / 3 * R * T / (18.015e-3))
	assert.InEpsilon(t, ideal, w, 0.01)

	res, err := e.Residual(T, 100, []float64{1}, Vapor, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0, res.H/(R*T), 0.01)
	assert.InDelta(t, 0, res.G/(R*T), 0.01)
}

func TestResidualLiquid(t *testing.T) {
	e := newEoS(t, hexane(t))
	res, err := e.Residual(300, 1e5, []float64{1}, Liquid, 0)
	require.NoError(t, err)

	// 液相では残余エンタルピーは負（蒸発潜熱の程度）
	assert.Less(t, res.H, -2e4)
	assert.Less(t, res.S, 0.)
	assert.Greater(t, res.Cp, res.Cv)
}

func TestCiiCorrelation(t *testing.T) {
	e := newEoS(t, water(t), hexane(t))
	c := e.CiiCorrelation()
	require.Len(t, c, 2)
	for _, ci := range c {
		assert.Greater(t, ci, 0.)
		assert.False(t, math.IsNaN(ci))
	}
	// 大きな分子ほど影響パラメータは大きい。
	assert.Greater(t, c[1], c[0])
}

func TestBrent(t *testing.T) {
	f := func(x float64) float64 { return x*x*x - 2*x - 5 }
	r := _brent(f, 2, 3, f(2), f(3), 1e-14, 100)
	assert.InDelta(t, 2.0945514815423265, r, 1e-12)
}

func TestEffectiveDiameter(t *testing.T) {
	e := newEoS(t, water(t))
	p := e.Parameters()

	// 温度上昇とともに有効径は小さくなり、σ を超えない。
	prev := math.Inf(1)
	for _, T := range []float64{200, 300, 400, 600} {
		ta, err := e.TemperatureAux(T)
		require.NoError(t, err)
		d := ta.dkk[0][0]
		assert.Less(t, d, p.Sigma[0][0])
		assert.Less(t, d, prev)
		prev = d
	}
}
