package urlcheck

import (
	"errors"
	"testing"

	"github.com/MattGoodwin0/newsletter-aggregator/internal/models"
)

func publicResolver(ips ...string) func(string) ([]string, error) {
	return func(string) ([]string, error) { return ips, nil }
}

func TestCheckURL_Schemes(t *testing.T) {
	c := &Checker{LookupHost: publicResolver("93.184.216.34")}

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"https allowed", "https://example.com/feed", false},
		{"http allowed", "http://example.com/feed", false},
		{"file blocked", "file:///etc/passwd", true},
		{"ftp blocked", "ftp://example.com/pub", true},
		{"gopher blocked", "gopher://example.com/", true},
		{"dict blocked", "dict://example.com/", true},
		{"unknown scheme blocked", "redis://example.com:6379", true},
		{"no scheme", "example.com/feed", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.CheckURL(tt.url)
			if tt.wantErr && err == nil {
				t.Errorf("CheckURL(%q) = nil, want error", tt.url)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("CheckURL(%q) error = %v", tt.url, err)
			}
		})
	}
}

func TestCheckURL_PrivateIPLiterals(t *testing.T) {
	c := New()

	blocked := []string{
		"http://127.0.0.1/feed",
		"http://10.1.2.3/feed",
		"http://172.16.0.1/feed",
		"http://192.168.1.1/feed",
		"http://169.254.169.254/latest/meta-data/",
		"http://100.64.0.1/feed",
		"http://0.0.0.0/feed",
		"http://[::1]/feed",
		"http://[fe80::1]/feed",
		"http://[fc00::1]/feed",
		"http://[::ffff:192.168.1.1]/feed",
	}
	for _, u := range blocked {
		if err := c.CheckURL(u); err == nil {
			t.Errorf("CheckURL(%q) = nil, want private-address rejection", u)
		}
	}

	// Public literals skip DNS entirely and pass.
	if err := c.CheckURL("http://93.184.216.34/feed"); err != nil {
		t.Errorf("CheckURL(public IP) error = %v", err)
	}
}

func TestCheckURL_ResolvedAddresses(t *testing.T) {
	t.Run("resolves private", func(t *testing.T) {
		c := &Checker{LookupHost: publicResolver("192.168.0.10")}
		if err := c.CheckURL("https://internal.example.com/feed"); err == nil {
			t.Error("CheckURL() = nil, want rejection for hostname resolving to private space")
		}
	})

	t.Run("one private among many", func(t *testing.T) {
		c := &Checker{LookupHost: publicResolver("93.184.216.34", "10.0.0.1")}
		if err := c.CheckURL("https://rebinding.example.com/feed"); err == nil {
			t.Error("CheckURL() = nil, want rejection when any resolved address is private")
		}
	})

	t.Run("resolution failure", func(t *testing.T) {
		c := &Checker{LookupHost: func(string) ([]string, error) {
			return nil, errors.New("no such host")
		}}
		if err := c.CheckURL("https://nxdomain.example.com/feed"); err == nil {
			t.Error("CheckURL() = nil, want rejection for unresolvable hostname")
		}
	})
}

func TestCheckURL_FailureKind(t *testing.T) {
	c := New()
	err := c.CheckURL("file:///etc/passwd")
	if err == nil {
		t.Fatal("CheckURL() = nil, want error")
	}
	if got := models.KindOf(err); got != models.FailureInvalidRequest {
		t.Errorf("KindOf(err) = %q, want %q", got, models.FailureInvalidRequest)
	}
}

func TestCheckFeedURLs(t *testing.T) {
	c := &Checker{LookupHost: publicResolver("93.184.216.34")}

	t.Run("empty list", func(t *testing.T) {
		if err := c.CheckFeedURLs(nil, 10); err == nil {
			t.Error("CheckFeedURLs(nil) = nil, want error")
		}
	})

	t.Run("over the cap", func(t *testing.T) {
		urls := make([]string, 11)
		for i := range urls {
			urls[i] = "https://example.com/feed"
		}
		if err := c.CheckFeedURLs(urls, 10); err == nil {
			t.Error("CheckFeedURLs() = nil, want error for 11 feeds with cap 10")
		}
	})

	t.Run("one bad apple", func(t *testing.T) {
		urls := []string{"https://example.com/feed", "http://127.0.0.1/feed"}
		if err := c.CheckFeedURLs(urls, 10); err == nil {
			t.Error("CheckFeedURLs() = nil, want rejection naming the bad URL")
		}
	})

	t.Run("all good", func(t *testing.T) {
		urls := []string{"https://a.example.com/feed", "https://b.example.com/feed"}
		if err := c.CheckFeedURLs(urls, 10); err != nil {
			t.Errorf("CheckFeedURLs() error = %v", err)
		}
	})
}
