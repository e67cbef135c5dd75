package strategies

import (
	"context"
	"net/netip"

	"github.com/gokaycavdar/go-geogate/pkg/cidr"
	"github.com/gokaycavdar/go-geogate/pkg/models"
)

// DefaultPrivateBlocks are the private and link-local ranges treated as
// local development traffic.
var DefaultPrivateBlocks = []string{
	"10.0.0.0/8",     // RFC1918
	"172.16.0.0/12",  // RFC1918
	"192.168.0.0/16", // RFC1918
	"169.254.0.0/16", // RFC3927 link-local
	"fc00::/7",       // RFC4193 unique-local
	"fe80::/10",      // RFC4291 link-local
}

// DefaultLoopbackAddrs are matched exactly, before the range table.
var DefaultLoopbackAddrs = []string{"127.0.0.1", "::1"}

// PrivateNetworkDetector trusts loopback and private-range visitors.
//
// It only ever says Match or Unknown: not being private says nothing about
// where an address really is, so the chain must keep going.
type PrivateNetworkDetector struct {
	Loopback []netip.Addr
	Blocks   []cidr.Block
}

// NewPrivateNetworkDetector creates a detector with the default loopback
// addresses and private ranges.
func NewPrivateNetworkDetector() *PrivateNetworkDetector {
	loopback := make([]netip.Addr, 0, len(DefaultLoopbackAddrs))
	for _, s := range DefaultLoopbackAddrs {
		loopback = append(loopback, netip.MustParseAddr(s))
	}

	blocks := make([]cidr.Block, 0, len(DefaultPrivateBlocks))
	for _, s := range DefaultPrivateBlocks {
		blocks = append(blocks, cidr.MustParseBlock(s))
	}

	return &PrivateNetworkDetector{
		Loopback: loopback,
		Blocks:   blocks,
	}
}

func (p *PrivateNetworkDetector) Name() string {
	return NamePrivateNetwork
}

func (p *PrivateNetworkDetector) Resolve(_ context.Context, visitor models.Visitor) (models.Verdict, error) {
	addr, err := cidr.ParseAddr(visitor.IPAddress)
	if err != nil {
		return models.Unknown, nil
	}

	for _, lo := range p.Loopback {
		if addr == lo {
			return models.Match, nil
		}
	}

	for _, block := range p.Blocks {
		if block.Contains(addr) {
			return models.Match, nil
		}
	}

	return models.Unknown, nil
}
