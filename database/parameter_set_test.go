package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	ps := Default()

	h2o, err := ps.Group("H2O")
	require.NoError(t, err)
	assert.Equal(t, 2, h2o.Sites(SiteH))
	assert.Equal(t, 2, h2o.Sites(SiteE1))
	assert.True(t, h2o.IsAssociating())
	assert.InDelta(t, 3.0063, h2o.Sigma, 1e-12)

	ch3, err := ps.Group("CH3")
	require.NoError(t, err)
	assert.False(t, ch3.IsAssociating())

	assert.Contains(t, ps.Groups(), "CH2OH")
}

func TestUnknownGroup(t *testing.T) {
	_, err := Default().Group("XYZ")
	assert.ErrorIs(t, err, ErrUnknownGroup)
}

func TestPairLookupIsSymmetric(t *testing.T) {
	ps := Default()

	u1, ok1 := ps.Unlike("CH3", "CH2")
	u2, ok2 := ps.Unlike("CH2", "CH3")
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, u1, u2)

	a1, ok1 := ps.Assoc("H2O", SiteH, "H2O", SiteE1)
	a2, ok2 := ps.Assoc("H2O", SiteE1, "H2O", SiteH)
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, a1, a2)
	assert.InDelta(t, 1985.4, a1.EpsAB, 1e-12)

	_, ok := ps.Assoc("H2O", SiteH, "H2O", SiteH)
	assert.False(t, ok)
}

func TestNewParameterSetRejectsBadRecords(t *testing.T) {
	g := Group{Name: "A", Vk: 1, Sk: 1, Sigma: 3, Eps: 100, LambdaR: 12, LambdaA: 6}

	_, err := NewParameterSet([]Group{g, g}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidRecord)

	bad := g
	bad.LambdaR = 5
	bad.Name = "B"
	_, err = NewParameterSet([]Group{bad}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidRecord)

	_, err = NewParameterSet([]Group{g}, []UnlikePair{{GroupK: "A", GroupL: "Z", Eps: 1}}, nil)
	assert.ErrorIs(t, err, ErrUnknownGroup)

	_, err = NewParameterSet([]Group{g}, nil, []AssocPair{{GroupK: "A", SiteA: SiteH, GroupL: "A", SiteB: SiteE1, EpsAB: 1, KAB: 1}})
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestLoadParameterSet(t *testing.T) {
	dir := t.TempDir()
	groups := "group,vk,Sk,sigma,eps,lr,la,nH,ne1,ne2,mw\n" +
		"CH3,1,0.57255,4.0772,256.77,15.050,6.0,0,0,0,15.035\n" +
		"CH2,1,0.22932,4.8801,473.39,19.871,6.0,0,0,0,14.027\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "groups.csv"), []byte(groups), 0644))

	ps, err := LoadParameterSet(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"CH3", "CH2"}, ps.Groups())
	_, ok := ps.Unlike("CH3", "CH2")
	assert.False(t, ok)
}

func TestLoadExperiments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exp.csv")
	data := "T,P,rhol,rhov,tension\n" +
		"300,3536.8,55315,1.42,0.0717\n" +
		"310,6231.0,55170,2.42,0.0701\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	rows, err := LoadExperiments(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.InDelta(t, 0.0701, rows[1].Tension, 1e-12)

	bad := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("T,P,rhol,rhov,tension\n-1,1,1,1,1\n"), 0644))
	_, err = LoadExperiments(bad)
	assert.ErrorIs(t, err, ErrInvalidRecord)
}
