package describe

import (
	"context"
	"net"
	"net/url"
	"strings"

	"github.com/juju/errors"
)

// Guard decides whether a URL may be fetched on a visitor's behalf.
type Guard func(ctx context.Context, u *url.URL) error

var (
	privateIPBlocks  []*net.IPNet
	blockedHostnames = map[string]struct{}{
		"localhost":                 {},
		"metadata.google.internal":  {},
		"metadata.google.internal.": {},
	}
)

func init() {
	for _, cidr := range []string{
		"127.0.0.0/8",
		"10.0.0.0/8",
		"100.64.0.0/10",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16",
		"::1/128",
		"fc00::/7",
		"fe80::/10",
		"::/128",
	} {
		_, block, err := net.ParseCIDR(cidr)
		if err == nil {
			privateIPBlocks = append(privateIPBlocks, block)
		}
	}
}

func isPublicIP(ip net.IP) bool {
	if ip == nil || ip.IsLoopback() || ip.IsUnspecified() {
		return false
	}
	for _, block := range privateIPBlocks {
		if block.Contains(ip) {
			return false
		}
	}
	return true
}

// PublicOnly refuses non-http schemes, internal hostnames and any host that
// resolves to a private address. A non-empty allow list additionally
// restricts hosts to those names and their subdomains.
func PublicOnly(resolver *net.Resolver, allow ...string) Guard {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return func(ctx context.Context, u *url.URL) error {
		scheme := strings.ToLower(u.Scheme)
		if scheme != "http" && scheme != "https" {
			return errors.NotValidf("scheme %q", u.Scheme)
		}
		host := strings.ToLower(u.Hostname())
		if host == "" {
			return errors.NotValidf("empty host")
		}
		if _, blocked := blockedHostnames[host]; blocked {
			return errors.NotValidf("host %s", host)
		}
		if len(allow) > 0 && !hostAllowed(host, allow) {
			return errors.NotValidf("host %s not allowed", host)
		}
		if ip := net.ParseIP(host); ip != nil {
			if !isPublicIP(ip) {
				return errors.NotValidf("address %s", ip)
			}
			return nil
		}
		addrs, err := resolver.LookupIPAddr(ctx, host)
		if err != nil {
			return errors.Annotatef(err, "resolve %s", host)
		}
		for _, a := range addrs {
			if !isPublicIP(a.IP) {
				return errors.NotValidf("host %s resolves to %s", host, a.IP)
			}
		}
		return nil
	}
}

func hostAllowed(host string, allow []string) bool {
	for _, a := range allow {
		a = strings.ToLower(a)
		if host == a || strings.HasSuffix(host, "."+a) {
			return true
		}
	}
	return false
}
