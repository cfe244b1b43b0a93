package headshot

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"
)

const maxSourceBytes = 10 << 20

var (
	errSourceUnreachable = errors.New("source image is not accessible")
	errForbiddenAddress  = errors.New("source address is not public")
)

// sharedAddressSpace is the carrier-grade NAT range (RFC 6598).
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// ValidImageURL accepts http(s) URLs and data:image/ URLs.
func ValidImageURL(raw string) bool {
	if strings.HasPrefix(raw, "data:image/") {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// Fetcher loads a source photo.
type Fetcher interface {
	Fetch(ctx context.Context, src string) ([]byte, error)
}

// HTTPFetcher downloads http(s) sources and decodes data URLs. It only
// connects to public addresses, redirects included.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return newHTTPFetcher(timeout, publicAddress)
}

func newHTTPFetcher(timeout time.Duration, allow func(netip.Addr) error) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	dialer := &net.Dialer{
		Timeout: 5 * time.Second,
		// Runs after DNS resolution, so it sees the address actually dialed.
		Control: func(network, address string, _ syscall.RawConn) error {
			ap, err := netip.ParseAddrPort(address)
			if err != nil {
				return fmt.Errorf("%w: %s", errForbiddenAddress, address)
			}
			return allow(ap.Addr().Unmap())
		},
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: timeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout, Transport: transport}}
}

// publicAddress rejects loopback, private, link-local (cloud metadata),
// shared, multicast and unspecified addresses.
func publicAddress(ip netip.Addr) error {
	if !ip.IsValid() ||
		ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified() ||
		sharedAddressSpace.Contains(ip) {
		return fmt.Errorf("%w: %s", errForbiddenAddress, ip)
	}
	return nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context, src string) ([]byte, error) {
	if strings.HasPrefix(src, "data:image/") {
		return decodeDataURL(src)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errSourceUnreachable, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errSourceUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", errSourceUnreachable, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errSourceUnreachable, err)
	}
	if len(data) > maxSourceBytes {
		return nil, fmt.Errorf("%w: source exceeds %d bytes", errSourceUnreachable, maxSourceBytes)
	}
	return data, nil
}

func decodeDataURL(src string) ([]byte, error) {
	_, payload, ok := strings.Cut(src, ",")
	if !ok {
		return nil, fmt.Errorf("%w: malformed data url", errSourceUnreachable)
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > maxSourceBytes+2 {
		return nil, fmt.Errorf("%w: source exceeds %d bytes", errSourceUnreachable, maxSourceBytes)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errSourceUnreachable, err)
	}
	if len(data) > maxSourceBytes {
		return nil, fmt.Errorf("%w: source exceeds %d bytes", errSourceUnreachable, maxSourceBytes)
	}
	return data, nil
}
