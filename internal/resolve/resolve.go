package resolve

import (
	"net"
	"time"

	"github.com/miekg/dns"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
)

// ErrInvalidHost is returned when a target cannot be resolved to an address.
var ErrInvalidHost = errors.New("invalid host")

// Host resolves a hostname or literal address to a single IP, preferring
// IPv4. Unresolvable names map to ErrInvalidHost.
func Host(host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip, nil
	}

	addrs, err := net.LookupIP(host)
	if err != nil || len(addrs) == 0 {
		return nil, errors.Wrapf(ErrInvalidHost, "resolving %q", host)
	}

	for _, addr := range addrs {
		if v4 := addr.To4(); v4 != nil {
			return v4, nil
		}
	}
	return addrs[0], nil
}

// Resolver performs reverse (PTR) lookups for hop responders. Results are
// cached so repeated traces against the same path do not re-query.
type Resolver struct {
	client *dns.Client
	server string
	cache  *gocache.Cache
}

func NewResolver() *Resolver {
	r := &Resolver{
		client: &dns.Client{
			Timeout: 2 * time.Second,
		},
		cache: gocache.New(10*time.Minute, time.Minute),
	}

	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err == nil && len(conf.Servers) > 0 {
		r.server = net.JoinHostPort(conf.Servers[0], conf.Port)
	} else {
		r.server = "127.0.0.1:53"
	}

	return r
}

// Reverse returns the PTR name for ip, or "" when no name exists. Lookup
// failures are not errors; a hop without a name is still a hop.
func (r *Resolver) Reverse(ip net.IP) string {
	if ip == nil {
		return ""
	}

	if name, found := r.cache.Get(ip.String()); found {
		return name.(string)
	}

	name := r.lookupPTR(ip)
	r.cache.Set(ip.String(), name, gocache.DefaultExpiration)
	return name
}

func (r *Resolver) lookupPTR(ip net.IP) string {
	arpa, err := dns.ReverseAddr(ip.String())
	if err != nil {
		return ""
	}

	msg := new(dns.Msg)
	msg.SetQuestion(arpa, dns.TypePTR)
	msg.RecursionDesired = true

	in, _, err := r.client.Exchange(msg, r.server)
	if err != nil || in.Rcode != dns.RcodeSuccess {
		return ""
	}

	for _, rr := range in.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			return trimDot(ptr.Ptr)
		}
	}
	return ""
}

func trimDot(name string) string {
	if len(name) > 0 && name[len(name)-1] == '.' {
		return name[:len(name)-1]
	}
	return name
}
