package deck

import (
	"fmt"
	"slices"

	"github.com/DoyleJ11/duel-rooms/internal/card"
)

// ErrorKind values are sent to clients verbatim.
type ErrorKind uint8

const (
	CardBanlisted     ErrorKind = 1
	CardOCGOnly       ErrorKind = 2
	CardTCGOnly       ErrorKind = 3
	CardUnknown       ErrorKind = 4
	CardMoreThan3     ErrorKind = 5
	DeckBadMainCount  ErrorKind = 6
	DeckBadExtraCount ErrorKind = 7
	DeckBadSideCount  ErrorKind = 8
	CardForbiddenType ErrorKind = 9
	CardUnofficial    ErrorKind = 10
)

var kindNames = map[ErrorKind]string{
	CardBanlisted:     "card banlisted",
	CardOCGOnly:       "card is OCG only",
	CardTCGOnly:       "card is TCG only",
	CardUnknown:       "unknown card",
	CardMoreThan3:     "more than 3 copies",
	DeckBadMainCount:  "bad main deck count",
	DeckBadExtraCount: "bad extra deck count",
	DeckBadSideCount:  "bad side deck count",
	CardForbiddenType: "forbidden card type",
	CardUnofficial:    "unofficial card",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("deck error %d", uint8(k))
}

// Rejection names the first failing check. Value is a card code or, for the
// count kinds, the observed zone size.
type Rejection struct {
	Kind  ErrorKind
	Value uint32
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %d", r.Kind, r.Value)
}

// Allowed is the room's region policy.
type Allowed uint8

const (
	AllowedOCGOnly Allowed = iota
	AllowedTCGOnly
	AllowedOCGTCG
	AllowedWithPrerelease
	AllowedAny
)

type Range struct {
	Min int
	Max int
}

func (r Range) contains(n int) bool { return n >= r.Min && n <= r.Max }

type Limits struct {
	Main  Range
	Extra Range
	Side  Range
}

func DefaultLimits() Limits {
	return Limits{
		Main:  Range{Min: 40, Max: 60},
		Extra: Range{Min: 0, Max: 15},
		Side:  Range{Min: 0, Max: 15},
	}
}

type Rules struct {
	Limits         Limits
	ForbiddenTypes uint32
	Allowed        Allowed
	Banlist        *card.Banlist
}

func reject(kind ErrorKind, value uint32) error {
	return &Rejection{Kind: kind, Value: value}
}

// Validate returns nil or a *Rejection for the first check d fails.
func Validate(d *Deck, rules Rules, cat card.Catalog) error {
	if d.Unresolved != 0 {
		return reject(CardUnknown, d.Unresolved)
	}

	counts := make(map[uint32]int)
	tally := func(codes []uint32) {
		for _, code := range codes {
			data, _ := cat.Lookup(code)
			if data.Alias != 0 {
				code = data.Alias
			}
			counts[code]++
		}
	}
	tally(d.Main)
	tally(d.Extra)
	tally(d.Side)

	switch {
	case !rules.Limits.Main.contains(len(d.Main)):
		return reject(DeckBadMainCount, uint32(len(d.Main)))
	case !rules.Limits.Extra.contains(len(d.Extra)):
		return reject(DeckBadExtraCount, uint32(len(d.Extra)))
	case !rules.Limits.Side.contains(len(d.Side)):
		return reject(DeckBadSideCount, uint32(len(d.Side)))
	}

	codes := make([]uint32, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	slices.Sort(codes)

	for _, code := range codes {
		if err := checkCard(code, counts[code], rules, cat); err != nil {
			return err
		}
	}
	return nil
}

func checkCard(code uint32, count int, rules Rules, cat card.Catalog) error {
	data, _ := cat.Lookup(code)
	switch {
	case count > 3:
		return reject(CardMoreThan3, code)
	case data.Type&rules.ForbiddenTypes != 0:
		return reject(CardForbiddenType, code)
	case isUnofficial(data.Scope, rules.Allowed):
		return reject(CardUnofficial, code)
	case rules.Allowed == AllowedOCGOnly && data.Scope&card.ScopeOCG == 0:
		return reject(CardTCGOnly, code)
	case rules.Allowed == AllowedTCGOnly && data.Scope&card.ScopeTCG == 0:
		return reject(CardOCGOnly, code)
	}
	if bl := rules.Banlist; bl != nil {
		switch {
		case bl.IsWhitelist() && !bl.IsWhitelisted(code),
			bl.IsForbidden(code),
			count > 1 && bl.IsLimited(code),
			count > 2 && bl.IsSemiLimited(code):
			return reject(CardBanlisted, code)
		}
	}
	return nil
}

func isUnofficial(scope uint32, allowed Allowed) bool {
	switch allowed {
	case AllowedOCGOnly, AllowedTCGOnly, AllowedOCGTCG:
		return scope > card.ScopeOCGTCG
	case AllowedWithPrerelease:
		return scope&card.ScopeOfficial == 0
	}
	return false
}
