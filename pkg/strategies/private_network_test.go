package strategies

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokaycavdar/go-geogate/pkg/models"
)

func TestPrivateNetworkDetectorMatchesLocal(t *testing.T) {
	t.Parallel()

	d := NewPrivateNetworkDetector()
	for _, ip := range []string{
		"127.0.0.1", "::1",
		"10.0.0.1", "10.255.255.255",
		"172.16.0.1", "172.31.255.254",
		"192.168.1.10",
		"169.254.10.20",
		"fd00::1", "fc00::abcd",
		"fe80::1", "febf::1",
	} {
		verdict, err := d.Resolve(context.Background(), models.Visitor{IPAddress: ip})
		require.NoError(t, err)
		assert.Equalf(t, models.Match, verdict, "address %s", ip)
	}
}

func TestPrivateNetworkDetectorNeverSaysNoMatch(t *testing.T) {
	t.Parallel()

	d := NewPrivateNetworkDetector()
	for _, ip := range []string{
		"8.8.8.8", "1.0.128.1", "172.32.0.1", "192.169.0.1",
		"127.0.0.2", "2001:db8::1", "fec0::1", "", "garbage",
	} {
		verdict, err := d.Resolve(context.Background(), models.Visitor{IPAddress: ip})
		require.NoError(t, err)
		assert.Equalf(t, models.Unknown, verdict, "address %q", ip)
	}
}
