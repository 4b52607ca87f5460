package enums

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_KnownOrdinals(t *testing.T) {
	reg := Default()

	tests := []struct {
		domain string
		name   string
		want   int64
	}{
		{MissionStates, "startup", 0},
		{MissionStates, "manual", 11},
		{ADCSStates, "manual", 5},
		{ADCSStates, "point_manual", 7},
		{RWAModes, "RWA_DISABLED", 0},
		{RWAModes, "RWA_SPEED_CTRL", 1},
		{PiksiModes, "spp", 0},
		{PiksiModes, "no_fix", 3},
		{PiksiModes, "dead", 9},
	}

	for _, tt := range tests {
		t.Run(tt.domain+"/"+tt.name, func(t *testing.T) {
			got, err := reg.GetByName(tt.domain, tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefault_RoundTripEveryName(t *testing.T) {
	reg := Default()

	require.ElementsMatch(t, []string{MissionStates, ADCSStates, RWAModes, PiksiModes}, reg.Domains())

	for _, domain := range reg.Domains() {
		table, err := reg.Table(domain)
		require.NoError(t, err)

		for _, name := range table.Names() {
			n, err := reg.GetByName(domain, name)
			require.NoError(t, err)

			back, err := reg.GetByNum(domain, n)
			require.NoError(t, err)
			assert.Equal(t, name, back, "domain %s", domain)
		}
	}
}

func TestDefault_IsSingleton(t *testing.T) {
	var wg sync.WaitGroup
	got := make([]*Registry, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = Default()
		}(i)
	}
	wg.Wait()

	for _, r := range got {
		assert.Same(t, got[0], r)
	}
}

func TestLookupMisses(t *testing.T) {
	reg := Default()

	_, err := reg.GetByName(MissionStates, "Manual")
	require.Error(t, err)
	assert.True(t, IsUnknownEnumerant(err))
	assert.Contains(t, err.Error(), `"Manual"`)

	_, err = reg.GetByNum(RWAModes, 3)
	require.Error(t, err)
	assert.True(t, IsUnknownEnumerant(err))
	assert.Contains(t, err.Error(), "ordinal 3")

	_, err = reg.GetByNum(RWAModes, -1)
	assert.True(t, IsUnknownEnumerant(err))

	_, err = reg.GetByName("thruster_modes", "on")
	require.Error(t, err)
	assert.True(t, IsUnknownEnumerant(err))
	assert.Contains(t, err.Error(), `no domain "thruster_modes"`)

	assert.Panics(t, func() { reg.MustGetByName(RWAModes, "RWA_TORQUE_CTRL") })
}

func TestTable_NamesIsACopy(t *testing.T) {
	table, err := Default().Table(RWAModes)
	require.NoError(t, err)

	names := table.Names()
	names[0] = "mutated"

	got, err := table.GetByNum(0)
	require.NoError(t, err)
	assert.Equal(t, "RWA_DISABLED", got)
	assert.Equal(t, 3, table.Len())
}

func TestLoad_CustomTables(t *testing.T) {
	src := `
domains: {
	prop_states: ["disabled", "idle", "firing"]
}
`
	reg, err := Load([]byte(src))
	require.NoError(t, err)

	n, err := reg.GetByName("prop_states", "firing")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = reg.GetByName(MissionStates, "manual")
	assert.True(t, IsUnknownEnumerant(err))
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{"syntax", `domains: {`, "compile enum tables"},
		{"missing domains", `other: 1`, "domains is required"},
		{"duplicate", `domains: { a: ["x", "y", "x"] }`, `"x" declared at ordinals 0 and 2`},
		{"not strings", `domains: { a: [1, 2] }`, `domain "a"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
