package driver

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	tls2 "github.com/refraction-networking/utls"
	"github.com/use-agent/stproxy/extract"
	"github.com/use-agent/stproxy/models"
	"golang.org/x/net/proxy"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// probe checks target reachability over plain HTTP with a Chrome TLS
// fingerprint (utls), without spending a browser page on it.
type probe struct {
	proxy string
}

func newProbe(proxy string) *probe {
	return &probe{proxy: proxy}
}

// Check fetches the target URL and reports reachability plus the page title.
// It never returns an error; failures land in the status.
func (p *probe) Check(ctx context.Context, targetURL string) models.TargetStatus {
	status := models.TargetStatus{URL: targetURL}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	body, err := p.fetch(ctx, targetURL)
	if err != nil {
		status.Error = err.Error()
		return status
	}

	status.Reachable = true
	status.Title = extract.Title(body)
	return status
}

func (p *probe) fetch(ctx context.Context, targetURL string) ([]byte, error) {
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialTLSChrome(ctx, network, addr, p.proxy)
		},
	}
	if p.proxy != "" {
		proxyURL, err := url.Parse(p.proxy)
		if err == nil && (proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	client := &http.Client{Transport: transport}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("probe: build request: %w", err)
	}
	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("probe: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("probe: HTTP %d for %s", resp.StatusCode, targetURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024)) // 2 MB cap
	if err != nil {
		return nil, fmt.Errorf("probe: read body: %w", err)
	}
	return body, nil
}

// dialTLSChrome establishes a TLS connection using a Chrome fingerprint via
// utls, through a SOCKS5 proxy when one is configured.
func dialTLSChrome(ctx context.Context, network, addr, proxyAddr string) (net.Conn, error) {
	rawConn, err := dialRaw(ctx, network, addr, proxyAddr)
	if err != nil {
		return nil, err
	}

	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls2.UClient(rawConn, &tls2.Config{
		ServerName:         host,
		InsecureSkipVerify: false,
	}, tls2.HelloChrome_Auto)

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// dialRaw returns a plain TCP connection to addr. socks5:// proxies get a
// full SOCKS5 negotiation to the target before the TLS handshake starts;
// http(s) proxies are handled by transport.Proxy and dial direct here.
func dialRaw(ctx context.Context, network, addr, proxyAddr string) (net.Conn, error) {
	dialer := &net.Dialer{}

	if proxyAddr != "" {
		u, err := url.Parse(proxyAddr)
		if err == nil && (u.Scheme == "socks5" || u.Scheme == "socks5h") {
			var auth *proxy.Auth
			if u.User != nil {
				pw, _ := u.User.Password()
				auth = &proxy.Auth{User: u.User.Username(), Password: pw}
			}
			sd, err := proxy.SOCKS5("tcp", u.Host, auth, dialer)
			if err != nil {
				return nil, fmt.Errorf("socks5 proxy: %w", err)
			}
			if cd, ok := sd.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return sd.Dial(network, addr)
		}
	}

	return dialer.DialContext(ctx, network, addr)
}
