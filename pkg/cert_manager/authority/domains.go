package authority

import (
	"fmt"
	"path/filepath"

	"github.com/openmon/sitecert/pkg/cert_manager/keypair"
	"github.com/openmon/sitecert/pkg/cert_manager/model"
)

// SiteDomain is the site-local root CA signing the site's own leaf
// certificates (etc/ssl/ca.pem, key followed by certificate).
var SiteDomain = Domain{
	Component: model.ComponentSiteCA,
	Layout:    LayoutCombined,
	CertPath: func(root string) string {
		return filepath.Join(root, "etc", "ssl", "ca.pem")
	},
	SubjectCN: func(identity string) string {
		return fmt.Sprintf("Site '%s' local CA", identity)
	},
	Organization: func(identity string) string {
		return fmt.Sprintf("Monitoring site %s", identity)
	},
	DefaultExpiry: keypair.Years(10),
}

// AgentDomain signs agent pairing certificates from agent-supplied CSRs
// (etc/ssl/agents/ca.pem).
var AgentDomain = Domain{
	Component: model.ComponentAgentCA,
	Layout:    LayoutCombined,
	CertPath: func(root string) string {
		return filepath.Join(root, "etc", "ssl", "agents", "ca.pem")
	},
	SubjectCN: func(identity string) string {
		return fmt.Sprintf("Site '%s' agent signing CA", identity)
	},
	Organization: func(identity string) string {
		return fmt.Sprintf("Monitoring site %s", identity)
	},
	DefaultExpiry: keypair.Years(10),
}

// BrokerDomain is the message broker CA. The broker's TLS stack wants
// certificate and key in separate files under etc/rabbitmq/ssl/.
var BrokerDomain = Domain{
	Component: model.ComponentBrokerCA,
	Layout:    LayoutSplit,
	CertPath: func(root string) string {
		return filepath.Join(root, "etc", "rabbitmq", "ssl", "ca_cert.pem")
	},
	KeyPath: func(root string) string {
		return filepath.Join(root, "etc", "rabbitmq", "ssl", "ca_key.pem")
	},
	SubjectCN: func(identity string) string {
		return fmt.Sprintf("Site '%s' broker CA", identity)
	},
	Organization: func(identity string) string {
		return fmt.Sprintf("Monitoring site %s", identity)
	},
	DefaultExpiry: keypair.Years(10),
}

// RelayDomain signs relay certificates (etc/ssl/relays/ca.pem).
var RelayDomain = Domain{
	Component: model.ComponentRelayCA,
	Layout:    LayoutCombined,
	CertPath: func(root string) string {
		return filepath.Join(root, "etc", "ssl", "relays", "ca.pem")
	},
	SubjectCN: func(identity string) string {
		return fmt.Sprintf("Site '%s' relay signing CA", identity)
	},
	Organization: func(identity string) string {
		return fmt.Sprintf("Monitoring site %s", identity)
	},
	DefaultExpiry: keypair.Years(10),
}

// CustomerBrokerDomain is the per-customer flavor of the broker CA used in
// the multi-tenant trust aggregation scenario. The customer identifier goes
// into both the subject and the path.
func CustomerBrokerDomain(customerID string) Domain {
	return Domain{
		Component: model.ComponentCustomerBrokerCA,
		Layout:    LayoutSplit,
		CertPath: func(root string) string {
			return filepath.Join(root, "etc", "rabbitmq", "ssl", "customers", customerID, "ca_cert.pem")
		},
		KeyPath: func(root string) string {
			return filepath.Join(root, "etc", "rabbitmq", "ssl", "customers", customerID, "ca_key.pem")
		},
		SubjectCN: func(identity string) string {
			return fmt.Sprintf("Customer '%s' broker CA", customerID)
		},
		Organization: func(identity string) string {
			return fmt.Sprintf("Customer %s", customerID)
		},
		DefaultExpiry: keypair.Years(10),
	}
}
