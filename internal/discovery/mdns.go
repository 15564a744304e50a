// ABOUTME: mDNS discovery of visualizer event sources
// ABOUTME: Sources advertise _visualizer-source._tcp, players browse for it
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service an event source advertises
const ServiceType = "_visualizer-source._tcp"

// DefaultBrowseInterval is how long each browse query listens
const DefaultBrowseInterval = 3 * time.Second

// Config holds discovery configuration
type Config struct {
	Instance       string
	Port           int
	Path           string
	BrowseInterval time.Duration
	Logger         *slog.Logger
}

// Manager handles mDNS operations
type Manager struct {
	config  Config
	log     *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	servers chan *ServerInfo
	wg      sync.WaitGroup

	mu     sync.Mutex
	server *mdns.Server
}

// ServerInfo describes a discovered event source
type ServerInfo struct {
	Name string
	Host string
	Port int
}

// Addr returns host:port
func (s *ServerInfo) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	if config.BrowseInterval <= 0 {
		config.BrowseInterval = DefaultBrowseInterval
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:  config,
		log:     config.Logger.With("component", "discovery"),
		ctx:     ctx,
		cancel:  cancel,
		servers: make(chan *ServerInfo, 10),
	}
}

// Advertise announces this event source until Stop is called
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	var txt []string
	if m.config.Path != "" {
		txt = append(txt, "path="+m.config.Path)
	}

	service, err := mdns.NewMDNSService(m.config.Instance, ServiceType, "", "", m.config.Port, ips, txt)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	m.mu.Lock()
	m.server = server
	m.mu.Unlock()

	m.log.Info("advertising", "instance", m.config.Instance, "port", m.config.Port, "type", ServiceType)
	return nil
}

// Browse searches for event sources in the background; results arrive on
// Servers()
func (m *Manager) Browse() {
	m.wg.Add(1)
	go m.browseLoop()
}

func (m *Manager) browseLoop() {
	defer m.wg.Done()

	for m.ctx.Err() == nil {
		entries := make(chan *mdns.ServiceEntry, 10)
		done := make(chan struct{})

		go func() {
			defer close(done)
			for entry := range entries {
				info := entryToServer(entry)
				if info == nil {
					continue
				}

				m.log.Info("discovered source", "name", info.Name, "addr", info.Addr())

				select {
				case m.servers <- info:
				case <-m.ctx.Done():
				}
			}
		}()

		params := mdns.DefaultParams(ServiceType)
		params.Entries = entries
		params.Timeout = m.config.BrowseInterval
		params.DisableIPv6 = true

		if err := mdns.Query(params); err != nil {
			m.log.Debug("mdns query failed", "error", err)
			select {
			case <-time.After(m.config.BrowseInterval):
			case <-m.ctx.Done():
			}
		}
		close(entries)
		<-done
	}
}

// entryToServer converts an mDNS answer, preferring its IPv4 address
func entryToServer(entry *mdns.ServiceEntry) *ServerInfo {
	if entry == nil || entry.Port == 0 {
		return nil
	}

	var host string
	switch {
	case entry.AddrV4 != nil:
		host = entry.AddrV4.String()
	case entry.AddrV6 != nil:
		host = entry.AddrV6.String()
	case entry.Host != "":
		host = entry.Host
	default:
		return nil
	}

	return &ServerInfo{Name: entry.Name, Host: host, Port: entry.Port}
}

// Servers returns the channel of discovered sources
func (m *Manager) Servers() <-chan *ServerInfo {
	return m.servers
}

// Find browses until the first source answers or ctx ends
func (m *Manager) Find(ctx context.Context) (*ServerInfo, error) {
	m.Browse()

	select {
	case info := <-m.servers:
		return info, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("no %s found: %w", ServiceType, ctx.Err())
	}
}

// Stop ends browsing and advertising
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.server != nil {
		if err := m.server.Shutdown(); err != nil {
			m.log.Debug("mdns shutdown failed", "error", err)
		}
		m.server = nil
	}
}

func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
				ips = append(ips, ipnet.IP)
			}
		}
	}

	return ips, nil
}
