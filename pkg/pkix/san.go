package pkix

import (
	"net"
	"net/url"
)

type SANKind int

const (
	SANKindIP SANKind = iota
	SANKindNetwork
	SANKindDNS
)

// SANEntry is one classified subject-alternative-name entry.
type SANEntry struct {
	Kind    SANKind
	Value   string
	IP      net.IP     // set for SANKindIP
	Network *net.IPNet // set for SANKindNetwork
}

// SubjectAltNames is the SAN material for a certificate template.
type SubjectAltNames struct {
	DNSNames    []string
	IPAddresses []net.IP
	URIs        []*url.URL
}

// ClassifySAN decides what kind of name a caller-supplied SAN entry is.
// The order is fixed: IP address first, then IP network, then DNS hostname
// as the fallback. A numeric-only label that happens to parse as one of the
// earlier kinds is classified as that kind, never as a hostname.
func ClassifySAN(entry string) SANEntry {
	if ip := net.ParseIP(entry); ip != nil {
		return SANEntry{Kind: SANKindIP, Value: entry, IP: ip}
	}
	if _, network, err := net.ParseCIDR(entry); err == nil {
		return SANEntry{Kind: SANKindNetwork, Value: entry, Network: network}
	}
	return SANEntry{Kind: SANKindDNS, Value: entry}
}

// ClassifySANs classifies every entry and folds the result into the
// DNS-name and IP-address lists of an x509 template. Go's x509 package has
// no native representation for an iPAddress name with a netmask, so a
// network entry contributes its base address.
func ClassifySANs(entries []string) SubjectAltNames {
	sans := SubjectAltNames{}
	for _, entry := range entries {
		classified := ClassifySAN(entry)
		switch classified.Kind {
		case SANKindIP:
			sans.IPAddresses = append(sans.IPAddresses, classified.IP)
		case SANKindNetwork:
			sans.IPAddresses = append(sans.IPAddresses, classified.Network.IP)
		case SANKindDNS:
			sans.DNSNames = append(sans.DNSNames, classified.Value)
		}
	}
	return sans
}
