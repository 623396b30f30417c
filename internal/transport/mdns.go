package transport

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/grandcat/zeroconf"
)

// serviceType is the mDNS service type advertised for discovery.
const serviceType = "_sbsp._tcp"

// Advertiser wraps the registered zeroconf service so it can be shut down
// cleanly during graceful shutdown.
type Advertiser struct {
	server *zeroconf.Server
}

// Advertise registers this process on the local network as serviceName,
// advertising port for discovery by UI clients. Returns an error if the
// registration fails. It has no disabled mode of its own: callers decide
// whether to advertise at all.
func Advertise(serviceName string, port int) (*Advertiser, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "sbsp-playback"
	}

	server, err := zeroconf.Register(
		serviceName,
		serviceType,
		"local.",
		port,
		[]string{"hostname=" + hostname, "port=" + strconv.Itoa(port)},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("register mDNS service %s on port %d: %w", serviceName, port, err)
	}

	log.Printf("mDNS: advertising %s.%s.local. on port %d", serviceName, serviceType, port)
	return &Advertiser{server: server}, nil
}

// Shutdown unregisters the mDNS advertisement.
func (a *Advertiser) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
}
