package gate

import (
	"net"
	"net/http"
	"strings"

	"github.com/gokaycavdar/go-geogate/pkg/cidr"
)

// DefaultIPHeaders are consulted in order before the connection address.
var DefaultIPHeaders = []string{
	"Client-Ip",
	"X-Forwarded-For",
	"X-Forwarded",
	"X-Cluster-Client-Ip",
	"Forwarded-For",
	"Forwarded",
}

// IPExtractor finds the visitor address of a request.
//
// Headers are honored only when the connection comes from a trusted proxy.
// An empty Trusted list trusts every peer.
type IPExtractor struct {
	Headers []string
	Trusted []cidr.Block
}

// NewIPExtractor parses the trusted proxy list.
func NewIPExtractor(trusted []string) (IPExtractor, error) {
	blocks, err := cidr.ParseBlocks(trusted)
	if err != nil {
		return IPExtractor{}, err
	}
	return IPExtractor{Headers: DefaultIPHeaders, Trusted: blocks}, nil
}

// ClientIP returns the first element of the first non-empty header, or the
// remote address when no header applies.
func (x IPExtractor) ClientIP(r *http.Request) string {
	remote := remoteHost(r.RemoteAddr)
	if !x.trusts(remote) {
		return remote
	}

	for _, name := range x.Headers {
		value := r.Header.Get(name)
		if value == "" {
			continue
		}
		first, _, _ := strings.Cut(value, ",")
		return strings.TrimSpace(first)
	}
	return remote
}

func (x IPExtractor) trusts(remote string) bool {
	if len(x.Trusted) == 0 {
		return true
	}
	for _, block := range x.Trusted {
		if cidr.Matches(remote, block) {
			return true
		}
	}
	return false
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
