package system

import (
	"regexp"
	"strings"
)

var hostLabel = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?$`)

// HostName is a machine name split at the first dot
type HostName struct {
	Host   string
	Domain string
}

// String joins host and domain back into an FQDN
func (h HostName) String() string {
	if h.Domain == "" {
		return h.Host
	}
	return h.Host + "." + h.Domain
}

// SplitFQDN splits an FQDN into host and domain
func SplitFQDN(fqdn string) HostName {
	host, domain, _ := strings.Cut(fqdn, ".")
	return HostName{Host: host, Domain: domain}
}

// ValidHostname checks a hostname or FQDN against RFC 1123 labels
func ValidHostname(name string) bool {
	if name == "" || len(name) > 255 {
		return false
	}
	name = strings.TrimSuffix(name, ".")
	if name == "" {
		return false
	}
	for _, label := range strings.Split(name, ".") {
		if !hostLabel.MatchString(label) {
			return false
		}
	}
	return true
}
