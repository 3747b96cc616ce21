package card

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const banlistHashSeed uint32 = 0x7dfcee6a

type Banlist struct {
	Name      string
	Hash      uint32
	whitelist bool

	allowed     map[uint32]struct{}
	forbidden   map[uint32]struct{}
	limited     map[uint32]struct{}
	semiLimited map[uint32]struct{}
}

func NewBanlist(name string) *Banlist {
	return &Banlist{
		Name:        name,
		Hash:        banlistHashSeed,
		allowed:     make(map[uint32]struct{}),
		forbidden:   make(map[uint32]struct{}),
		limited:     make(map[uint32]struct{}),
		semiLimited: make(map[uint32]struct{}),
	}
}

// Set records code with the given copy limit (0..3) and folds it into the hash.
func (b *Banlist) Set(code uint32, count int) {
	switch count {
	case 0:
		b.forbidden[code] = struct{}{}
	case 1:
		b.limited[code] = struct{}{}
	case 2:
		b.semiLimited[code] = struct{}{}
	default:
		count = 3
	}
	b.allowed[code] = struct{}{}
	c := uint32(count)
	b.Hash ^= ((code << 18) | (code >> 14)) ^ ((code << (27 + c)) | (code >> (5 - c)))
}

func (b *Banlist) MarkWhitelist() { b.whitelist = true }

func (b *Banlist) IsWhitelist() bool { return b.whitelist }

func (b *Banlist) IsWhitelisted(code uint32) bool {
	_, ok := b.allowed[code]
	return ok
}

func (b *Banlist) IsForbidden(code uint32) bool {
	_, ok := b.forbidden[code]
	return ok
}

func (b *Banlist) IsLimited(code uint32) bool {
	_, ok := b.limited[code]
	return ok
}

func (b *Banlist) IsSemiLimited(code uint32) bool {
	_, ok := b.semiLimited[code]
	return ok
}

// ParseBanlists reads lflist.conf formatted lists. Entries before the first
// "!name" header are rejected.
func ParseBanlists(r io.Reader) ([]*Banlist, error) {
	var (
		lists []*Banlist
		cur   *Banlist
		line  int
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		switch {
		case text == "" || strings.HasPrefix(text, "#"):
			continue
		case strings.HasPrefix(text, "!"):
			cur = NewBanlist(strings.TrimSpace(text[1:]))
			lists = append(lists, cur)
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("banlist line %d: entry before list header", line)
		}
		if strings.HasPrefix(text, "$whitelist") {
			cur.MarkWhitelist()
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 2 {
			return nil, fmt.Errorf("banlist line %d: want \"code count\", got %q", line, text)
		}
		code, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("banlist line %d: bad code: %w", line, err)
		}
		count, err := strconv.Atoi(fields[1])
		if err != nil || count < 0 || count > 3 {
			return nil, fmt.Errorf("banlist line %d: bad count %q", line, fields[1])
		}
		cur.Set(uint32(code), count)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read banlist: %w", err)
	}
	return lists, nil
}

// FindBanlist returns the first list matching name or hash. Zero values never match.
func FindBanlist(lists []*Banlist, name string, hash uint32) *Banlist {
	for _, b := range lists {
		if (name != "" && b.Name == name) || (hash != 0 && b.Hash == hash) {
			return b
		}
	}
	return nil
}
