// Package urlcheck validates caller-supplied URLs before any outbound
// request is made. Feed and article URLs come from untrusted clients, so
// every one is screened for scheme abuse and private-network targets.
package urlcheck

import (
	"net"
	"net/netip"
	"net/url"

	"github.com/MattGoodwin0/newsletter-aggregator/internal/models"
)

// Schemes refused regardless of host
var blockedSchemes = map[string]bool{
	"file":   true,
	"ftp":    true,
	"gopher": true,
	"dict":   true,
	"ldap":   true,
	"ldaps":  true,
	"sftp":   true,
	"tftp":   true,
	"jar":    true,
}

// Private and reserved networks, IPv4 and IPv6. Covers RFC-1918 space,
// loopback, link-local (cloud metadata endpoints live there), shared
// ISP NAT space and the documentation/benchmark blocks.
var privateNets = mustPrefixes(
	"0.0.0.0/8",
	"10.0.0.0/8",
	"100.64.0.0/10",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"172.16.0.0/12",
	"192.0.0.0/24",
	"192.168.0.0/16",
	"198.18.0.0/15",
	"198.51.100.0/24",
	"203.0.113.0/24",
	"224.0.0.0/4",
	"240.0.0.0/4",
	"255.255.255.255/32",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
	"ff00::/8",
)

func mustPrefixes(cidrs ...string) []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		prefixes = append(prefixes, netip.MustParsePrefix(c))
	}
	return prefixes
}

// Checker screens URLs for SSRF-safe fetching. LookupHost may be
// replaced in tests; nil uses the system resolver.
type Checker struct {
	LookupHost func(host string) ([]string, error)
}

// New creates a checker backed by the system resolver
func New() *Checker {
	return &Checker{LookupHost: net.LookupHost}
}

// CheckURL returns nil when the URL is safe to fetch. Any rejection is
// an InvalidRequest failure with a caller-facing reason:
//  1. scheme must be http or https and not on the blocklist
//  2. bare IP literals must not be private or reserved
//  3. the hostname is resolved and every returned address checked,
//     which also defends against DNS rebinding
func (c *Checker) CheckURL(raw string) error {
	if raw == "" {
		return models.NewFailure(models.FailureInvalidRequest, "URL must not be empty")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return models.Failuref(models.FailureInvalidRequest, "URL could not be parsed: %v", err)
	}

	scheme := parsed.Scheme
	if blockedSchemes[scheme] {
		return models.Failuref(models.FailureInvalidRequest, "scheme %q is not permitted", scheme)
	}
	if scheme != "http" && scheme != "https" {
		return models.NewFailure(models.FailureInvalidRequest, "only http and https URLs are accepted")
	}

	hostname := parsed.Hostname()
	if hostname == "" {
		return models.NewFailure(models.FailureInvalidRequest, "URL has no hostname")
	}

	// Bare IP literal: reject private space without touching DNS
	if addr, err := netip.ParseAddr(hostname); err == nil {
		if isPrivate(addr) {
			return models.NewFailure(models.FailureInvalidRequest, "requests to private or internal addresses are not allowed")
		}
		return nil
	}

	lookup := c.LookupHost
	if lookup == nil {
		lookup = net.LookupHost
	}
	resolved, err := lookup(hostname)
	if err != nil || len(resolved) == 0 {
		return models.Failuref(models.FailureInvalidRequest, "hostname %q could not be resolved", hostname)
	}

	for _, ip := range resolved {
		addr, err := netip.ParseAddr(ip)
		if err != nil || isPrivate(addr) {
			return models.Failuref(models.FailureInvalidRequest, "hostname %q resolves to a private or internal address", hostname)
		}
	}

	return nil
}

// CheckFeedURLs validates a generate request's feed list: non-empty, at
// most maxFeeds entries, every URL safe to fetch.
func (c *Checker) CheckFeedURLs(urls []string, maxFeeds int) error {
	if len(urls) == 0 {
		return models.NewFailure(models.FailureInvalidRequest, "at least one feed URL is required")
	}
	if maxFeeds > 0 && len(urls) > maxFeeds {
		return models.Failuref(models.FailureInvalidRequest, "at most %d feed URLs are allowed per request", maxFeeds)
	}
	for _, u := range urls {
		if err := c.CheckURL(u); err != nil {
			return models.Failuref(models.FailureInvalidRequest, "rejected URL %q: %s", u, models.DetailOf(err))
		}
	}
	return nil
}

func isPrivate(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range privateNets {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
