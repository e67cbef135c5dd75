// Package cidr answers whether an IP address falls inside a CIDR block.
//
// IPv4 blocks are matched with explicit 32-bit mask arithmetic. IPv6 blocks
// are matched as 128-bit address ranges. An address and a block of
// different families never match, and an unparseable address never matches
// anything; neither case is an error.
package cidr

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"go4.org/netipx"
)

// ErrInvalidBlock is returned when a CIDR block cannot be parsed.
var ErrInvalidBlock = errors.New("invalid cidr block")

// Block is a base address plus a prefix length.
//
// Host bits of Base below Bits are not required to be zero; matching masks
// both sides before comparing.
type Block struct {
	Base netip.Addr
	Bits int
}

// ParseBlock parses "a.b.c.d/n", an IPv6 prefix, or a bare address (which
// becomes a full-length block).
func ParseBlock(s string) (Block, error) {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "/") {
		addr, err := ParseAddr(s)
		if err != nil {
			return Block{}, fmt.Errorf("%w: %q", ErrInvalidBlock, s)
		}
		return Block{Base: addr, Bits: addr.BitLen()}, nil
	}

	base, bitsStr, _ := strings.Cut(s, "/")
	addr, err := ParseAddr(base)
	if err != nil {
		return Block{}, fmt.Errorf("%w: %q", ErrInvalidBlock, s)
	}
	// Re-parse through netip so the prefix length gets the same range checks.
	prefix, err := netip.ParsePrefix(addr.String() + "/" + bitsStr)
	if err != nil {
		return Block{}, fmt.Errorf("%w: %q: %v", ErrInvalidBlock, s, err)
	}
	return Block{Base: addr, Bits: prefix.Bits()}, nil
}

// MustParseBlock is like ParseBlock but panics on error. Use it for
// compiled-in tables only.
func MustParseBlock(s string) Block {
	b, err := ParseBlock(s)
	if err != nil {
		panic(err)
	}
	return b
}

// ParseBlocks parses every entry and stops at the first invalid one.
func ParseBlocks(entries []string) ([]Block, error) {
	blocks := make([]Block, 0, len(entries))
	for _, entry := range entries {
		b, err := ParseBlock(entry)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

// ParseAddr parses an IPv4 or IPv6 literal. IPv4-mapped IPv6 addresses are
// unmapped and zones are dropped, so "::ffff:1.2.3.4" compares as 1.2.3.4.
func ParseAddr(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}, err
	}
	return addr.WithZone("").Unmap(), nil
}

func (b Block) String() string {
	return fmt.Sprintf("%s/%d", b.Base, b.Bits)
}

// IsValid reports whether the block has a base address and a prefix length
// within the width of its family.
func (b Block) IsValid() bool {
	return b.Base.IsValid() && b.Bits >= 0 && b.Bits <= b.Base.BitLen()
}

// Contains reports whether addr is inside the block.
func (b Block) Contains(addr netip.Addr) bool {
	if !b.IsValid() || !addr.IsValid() {
		return false
	}
	addr = addr.WithZone("").Unmap()
	if addr.Is4() != b.Base.Is4() {
		return false
	}

	if addr.Is4() {
		mask := mask32(b.Bits)
		return toUint32(addr)&mask == toUint32(b.Base)&mask
	}

	r := netipx.RangeOfPrefix(netip.PrefixFrom(b.Base, b.Bits))
	return r.Contains(addr)
}

// Matches reports whether the textual address ip is inside block. Invalid
// syntax yields false.
func Matches(ip string, block Block) bool {
	addr, err := ParseAddr(ip)
	if err != nil {
		return false
	}
	return block.Contains(addr)
}

// mask32 returns a mask with the given number of leading one bits. The
// extremes are spelled out so no shift ever uses the full register width.
func mask32(bits int) uint32 {
	switch {
	case bits <= 0:
		return 0
	case bits >= 32:
		return ^uint32(0)
	default:
		return ^uint32(0) << (32 - bits)
	}
}

func toUint32(addr netip.Addr) uint32 {
	b := addr.As4()
	return binary.BigEndian.Uint32(b[:])
}
