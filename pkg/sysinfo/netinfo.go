package sysinfo

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"net"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/choopsit/toolz/pkg/errors"
	"github.com/choopsit/toolz/pkg/style"
	"github.com/choopsit/toolz/pkg/system"
	"github.com/choopsit/toolz/pkg/types"
)

// Kernel interfaces read by netinfo
const (
	SysClassNet = "/sys/class/net"
	ProcRoute   = "/proc/net/route"
	ResolvConf  = "/etc/resolv.conf"
)

var virtualIface = regexp.MustCompile(`^(lo|vif.*|virbr.*-.*|vnet.*|veth.*|docker\d+)$`)

// Interface describes one physical or bridge interface
type Interface struct {
	Name string
	MTU  int
	MAC  string
	IPv4 []string
}

// NetInfo is what netinfo prints
type NetInfo struct {
	Host       system.HostName
	Interfaces []Interface
	Gateway    string
	GatewayDev string
	DNS        []string
}

// AddrLookup returns the IPv4 addresses of an interface
type AddrLookup func(name string) []string

// LocalIPv4 reads interface addresses from the kernel
func LocalIPv4(name string) []string {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return nil
	}
	var ips []string
	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.To4() != nil {
			ips = append(ips, ipnet.IP.String())
		}
	}
	return ips
}

// CollectNet gathers host, interface, route and resolver information
func CollectNet(fsys types.FS, profile *system.Profile, lookup AddrLookup) (NetInfo, error) {
	info := NetInfo{Host: system.SplitFQDN(profile.FQDN)}
	if info.Host.Host == "" {
		info.Host = system.HostName{Host: profile.Hostname}
	}

	entries, err := fsys.ReadDir(SysClassNet)
	if err != nil {
		return info, errors.Wrapf(err, errors.ErrFileAccess, "cannot list %s", SysClassNet)
	}
	for _, e := range entries {
		name := e.Name()
		if virtualIface.MatchString(name) {
			continue
		}
		iface := Interface{
			Name: name,
			MAC:  readTrimmed(fsys, filepath.Join(SysClassNet, name, "address")),
		}
		iface.MTU, _ = strconv.Atoi(readTrimmed(fsys, filepath.Join(SysClassNet, name, "mtu")))
		if lookup != nil {
			iface.IPv4 = lookup(name)
		}
		info.Interfaces = append(info.Interfaces, iface)
	}
	sort.Slice(info.Interfaces, func(i, j int) bool { return info.Interfaces[i].Name < info.Interfaces[j].Name })

	if data, err := fsys.ReadFile(ProcRoute); err == nil {
		info.GatewayDev, info.Gateway = ParseDefaultRoute(data)
	}
	if data, err := fsys.ReadFile(ResolvConf); err == nil {
		info.DNS = ParseNameservers(data)
	}
	return info, nil
}

// ParseDefaultRoute returns the interface and gateway of the default route
// in /proc/net/route format
func ParseDefaultRoute(data []byte) (string, string) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 || fields[1] != "00000000" {
			continue
		}
		raw, err := hex.DecodeString(fields[2])
		if err != nil || len(raw) != 4 {
			continue
		}
		ip := make(net.IP, 4)
		binary.BigEndian.PutUint32(ip, binary.LittleEndian.Uint32(raw))
		return fields[0], ip.String()
	}
	return "", ""
}

// ParseNameservers lists the nameserver entries of resolv.conf
func ParseNameservers(data []byte) []string {
	var servers []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[0] == "nameserver" {
			servers = append(servers, fields[1])
		}
	}
	return servers
}

// PrintNet renders NetInfo the way netinfo always has
func PrintNet(p *style.Printer, info NetInfo) {
	p.Field("Hostname", 0, info.Host.Host)
	if info.Host.Domain != "" {
		p.Field("FQDN", 0, info.Host.String())
	}
	for _, iface := range info.Interfaces {
		p.Field("Interface", 0, iface.Name)
		p.Field("  - MTU", 14, strconv.Itoa(iface.MTU))
		p.Field("  - MAC address", 14, iface.MAC)
		p.Field("  - IP address", 14, strings.Join(iface.IPv4, ", "))
	}
	p.Field("Gateway", 16, info.Gateway)
	p.Field("DNS nameserver", 16, strings.Join(info.DNS, ", "))
	p.Println()
}

func readTrimmed(fsys types.FS, path string) string {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
