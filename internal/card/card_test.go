package card

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsExtraDeck(t *testing.T) {
	cases := []struct {
		name string
		typ  uint32
		want bool
	}{
		{"normal monster", TypeMonster, false},
		{"fusion", TypeMonster | TypeFusion, true},
		{"synchro", TypeMonster | TypeSynchro, true},
		{"xyz", TypeMonster | TypeXyz, true},
		{"link monster", TypeMonster | TypeLink, true},
		{"link spell", TypeSpell | TypeLink, false},
		{"trap", TypeTrap, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Data{Type: tc.typ}.IsExtraDeck())
		})
	}
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, uint32(10), Data{Code: 10}.Canonical())
	assert.Equal(t, uint32(10), Data{Code: 11, Alias: 10}.Canonical())
}

func TestMemoryCatalog_Lookup(t *testing.T) {
	c := NewMemoryCatalog(Data{Code: 1, Type: TypeMonster}, Data{Code: 2, Type: TypeSpell})
	d, ok := c.Lookup(2)
	require.True(t, ok)
	assert.Equal(t, TypeSpell, d.Type)

	_, ok = c.Lookup(3)
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}

const sampleLists = `#[2024.01 TCG][Custom]
!2024.01 TCG
#forbidden
100 0 --Pot of Greed
#limited
200 1
300 2 --semi
!Whitelist
$whitelist
400 3
500 1
`

func TestParseBanlists(t *testing.T) {
	lists, err := ParseBanlists(strings.NewReader(sampleLists))
	require.NoError(t, err)
	require.Len(t, lists, 2)

	tcg := lists[0]
	assert.Equal(t, "2024.01 TCG", tcg.Name)
	assert.False(t, tcg.IsWhitelist())
	assert.True(t, tcg.IsForbidden(100))
	assert.True(t, tcg.IsLimited(200))
	assert.True(t, tcg.IsSemiLimited(300))
	assert.False(t, tcg.IsLimited(300))
	assert.NotEqual(t, banlistHashSeed, tcg.Hash)

	wl := lists[1]
	assert.True(t, wl.IsWhitelist())
	assert.True(t, wl.IsWhitelisted(400))
	assert.True(t, wl.IsWhitelisted(500))
	assert.True(t, wl.IsLimited(500))
	assert.False(t, wl.IsWhitelisted(100))

	assert.Same(t, wl, FindBanlist(lists, "Whitelist", 0))
	assert.Same(t, tcg, FindBanlist(lists, "", tcg.Hash))
	assert.Nil(t, FindBanlist(lists, "", 0))
}

func TestParseBanlists_Errors(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"entry before header", "100 0\n"},
		{"missing count", "!x\n100\n"},
		{"bad code", "!x\nabc 1\n"},
		{"count out of range", "!x\n100 4\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseBanlists(strings.NewReader(tc.input))
			assert.Error(t, err)
		})
	}
}

func TestBanlistHash_OrderIndependent(t *testing.T) {
	a := NewBanlist("a")
	a.Set(100, 0)
	a.Set(200, 1)
	b := NewBanlist("b")
	b.Set(200, 1)
	b.Set(100, 0)
	assert.Equal(t, a.Hash, b.Hash)

	c := NewBanlist("c")
	c.Set(100, 1)
	c.Set(200, 1)
	assert.NotEqual(t, a.Hash, c.Hash)
}
