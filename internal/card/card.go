package card

// Type bits of a card's type mask.
const (
	TypeMonster uint32 = 0x1
	TypeSpell   uint32 = 0x2
	TypeTrap    uint32 = 0x4
	TypeFusion  uint32 = 0x40
	TypeRitual  uint32 = 0x80
	TypeSynchro uint32 = 0x2000
	TypeToken   uint32 = 0x4000
	TypeXyz     uint32 = 0x800000
	TypeLink    uint32 = 0x4000000
)

// Scope bits describe where a card is legal.
const (
	ScopeOCG        uint32 = 0x1
	ScopeTCG        uint32 = 0x2
	ScopeAnime      uint32 = 0x4
	ScopeIllegal    uint32 = 0x8
	ScopeVideoGame  uint32 = 0x10
	ScopeCustom     uint32 = 0x20
	ScopeSpeed      uint32 = 0x40
	ScopePrerelease uint32 = 0x100
	ScopeRush       uint32 = 0x200
	ScopeLegend     uint32 = 0x400
	ScopeHidden     uint32 = 0x1000

	ScopeOCGTCG   = ScopeOCG | ScopeTCG
	ScopeOfficial = ScopeOCG | ScopeTCG | ScopePrerelease
)

type Data struct {
	Code  uint32
	Alias uint32
	Type  uint32
	Scope uint32
}

// IsExtraDeck reports whether the card lives in the extra deck.
// Link spells exist, so Link alone is not enough.
func (d Data) IsExtraDeck() bool {
	if d.Type&(TypeFusion|TypeSynchro|TypeXyz) != 0 {
		return true
	}
	return d.Type&TypeLink != 0 && d.Type&TypeMonster != 0
}

func (d Data) IsToken() bool { return d.Type&TypeToken != 0 }

// Canonical is the code legality is tracked under.
func (d Data) Canonical() uint32 {
	if d.Alias != 0 {
		return d.Alias
	}
	return d.Code
}

type Catalog interface {
	Lookup(code uint32) (Data, bool)
}

type MemoryCatalog struct {
	cards map[uint32]Data
}

func NewMemoryCatalog(cards ...Data) *MemoryCatalog {
	c := &MemoryCatalog{cards: make(map[uint32]Data, len(cards))}
	for _, d := range cards {
		c.cards[d.Code] = d
	}
	return c
}

func (c *MemoryCatalog) Lookup(code uint32) (Data, bool) {
	d, ok := c.cards[code]
	return d, ok
}

func (c *MemoryCatalog) Len() int { return len(c.cards) }
