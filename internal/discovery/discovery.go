// Package discovery advertises and finds point stores on the local network
// over mDNS.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/mdns"
)

const ServiceType = "_sketchsync._tcp"

var ErrNotFound = errors.New("no point store found")

// Advertise announces a store listening on port. instance defaults to the
// host name. Shut the returned server down on exit.
func Advertise(instance string, port int) (*mdns.Server, error) {
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("could not get hostname: %w", err)
		}
		instance = host
	}

	service, err := mdns.NewMDNSService(instance, ServiceType, "", "", port, nil, []string{"sketchsync point store"})
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

// Lookup returns the base URL of the first store that answers before ctx's
// deadline (one second without one), or ErrNotFound.
func Lookup(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	timeout := time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout <= 0 {
		return "", ErrNotFound
	}

	entries := make(chan *mdns.ServiceEntry, 8)
	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true

	errc := make(chan error, 1)
	go func() {
		errc <- mdns.Query(params)
		close(entries)
	}()

	found := ""
	for e := range entries {
		if found != "" {
			continue
		}
		if url, ok := baseURL(e); ok {
			found = url
		}
	}

	if err := <-errc; err != nil && found == "" {
		return "", fmt.Errorf("mdns lookup failed: %w", err)
	}
	if found == "" {
		return "", ErrNotFound
	}
	return found, nil
}

func baseURL(e *mdns.ServiceEntry) (string, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return "", false
	}
	return fmt.Sprintf("http://%s:%d", e.AddrV4.String(), e.Port), true
}
