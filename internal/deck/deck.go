package deck

import "github.com/DoyleJ11/duel-rooms/internal/card"

// Deck is immutable once loaded. Unresolved holds the first code the catalog
// could not resolve, 0 if every code was found.
type Deck struct {
	Main       []uint32
	Extra      []uint32
	Side       []uint32
	Unresolved uint32
}

// Load splits raw code lists into zones. Tokens are dropped and unknown codes
// are skipped but remembered, so the rejection surfaces at ready-check.
func Load(cat card.Catalog, main, side []uint32) *Deck {
	d := &Deck{}
	resolve := func(code uint32) (card.Data, bool) {
		data, ok := cat.Lookup(code)
		if !ok {
			if d.Unresolved == 0 {
				d.Unresolved = code
			}
			return card.Data{}, false
		}
		if data.IsToken() {
			return card.Data{}, false
		}
		return data, true
	}
	for _, code := range main {
		data, ok := resolve(code)
		if !ok {
			continue
		}
		if data.IsExtraDeck() {
			d.Extra = append(d.Extra, code)
		} else {
			d.Main = append(d.Main, code)
		}
	}
	for _, code := range side {
		if _, ok := resolve(code); ok {
			d.Side = append(d.Side, code)
		}
	}
	return d
}
