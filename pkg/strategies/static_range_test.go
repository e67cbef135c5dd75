package strategies

import (
	"context"
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go4.org/netipx"

	"github.com/gokaycavdar/go-geogate/pkg/cidr"
	"github.com/gokaycavdar/go-geogate/pkg/models"
)

func resolveStatic(t *testing.T, s *StaticRangeTable, ip string) models.Verdict {
	t.Helper()

	verdict, err := s.Resolve(context.Background(), models.Visitor{IPAddress: ip})
	require.NoError(t, err)
	return verdict
}

func TestStaticRangeTableEveryBlockMatches(t *testing.T) {
	t.Parallel()

	s := DefaultStaticRangeTable()
	require.Equal(t, len(DefaultThailandRanges), s.Count())

	// First and last address of every block.
	for _, block := range s.Blocks {
		assert.Equalf(t, models.Match, resolveStatic(t, s, block.Base.String()), "block %s", block)

		last := lastAddr(block)
		assert.Equalf(t, models.Match, resolveStatic(t, s, last), "last address of %s", block)
	}
}

func TestStaticRangeTableOutsideAddresses(t *testing.T) {
	t.Parallel()

	s := DefaultStaticRangeTable()
	for _, ip := range []string{"8.8.8.8", "1.0.127.255", "1.1.0.0", "203.170.64.0", "2001:db8::1", "127.0.0.1"} {
		assert.Equalf(t, models.NoMatch, resolveStatic(t, s, ip), "address %s", ip)
	}
}

func TestStaticRangeTableUnparseable(t *testing.T) {
	t.Parallel()

	s := DefaultStaticRangeTable()
	for _, ip := range []string{"", "localhost", "1.2.3", "999.1.1.1"} {
		assert.Equalf(t, models.Unknown, resolveStatic(t, s, ip), "address %q", ip)
	}
}

func TestLoadStaticRangeTable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ranges.txt")
	content := "# extra ranges\n\n198.51.100.0/24\tdocumentation\n203.0.113.7\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := LoadStaticRangeTable(path, DefaultStaticRangeTable().Blocks)
	require.NoError(t, err)
	assert.Equal(t, len(DefaultThailandRanges)+2, s.Count())

	assert.Equal(t, models.Match, resolveStatic(t, s, "198.51.100.200"))
	assert.Equal(t, models.Match, resolveStatic(t, s, "203.0.113.7"))
	assert.Equal(t, models.NoMatch, resolveStatic(t, s, "203.0.113.8"))
	assert.Equal(t, models.Match, resolveStatic(t, s, "1.0.128.1"))
}

func TestLoadStaticRangeTableErrors(t *testing.T) {
	t.Parallel()

	_, err := LoadStaticRangeTable(filepath.Join(t.TempDir(), "missing.txt"), nil)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(path, []byte("10.0.0.0/8\nnot-a-block\n"), 0o600))

	_, err = LoadStaticRangeTable(path, nil)
	assert.ErrorIs(t, err, cidr.ErrInvalidBlock)
	assert.Contains(t, err.Error(), ":2:")
}

// lastAddr returns the highest address inside block.
func lastAddr(block cidr.Block) string {
	return netipx.PrefixLastIP(netip.PrefixFrom(block.Base, block.Bits).Masked()).String()
}
