package service

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"
)

var (
	errContentURL     = errors.New("content url not allowed")
	errPrivateAddress = errors.New("content host resolves to a non-public address")
)

// checkContentURL accepts only https URLs whose host is in allowHosts or a
// subdomain of one. An empty allowHosts accepts any host; the dialer still
// refuses non-public addresses.
func checkContentURL(raw string, allowHosts []string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", errContentURL, err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", errContentURL, u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("%w: missing host", errContentURL)
	}
	if u.User != nil {
		return fmt.Errorf("%w: credentials in url", errContentURL)
	}
	if len(allowHosts) == 0 {
		return nil
	}
	for _, h := range allowHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return nil
		}
	}
	return fmt.Errorf("%w: host %s", errContentURL, host)
}

// publicAddressOnly is a net.Dialer Control hook. It runs after DNS
// resolution, so it also covers redirects and rebinding.
func publicAddressOnly(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("%w: %s", errPrivateAddress, host)
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() {
		return fmt.Errorf("%w: %s", errPrivateAddress, ip)
	}
	return nil
}

// newContentClient fetches content images without reaching internal hosts.
func newContentClient(timeout time.Duration, allowHosts []string) *http.Client {
	dialer := &net.Dialer{Timeout: 10 * time.Second, Control: publicAddressOnly}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return errors.New("too many redirects")
			}
			return checkContentURL(req.URL.String(), allowHosts)
		},
	}
}
