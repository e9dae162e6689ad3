package rotation

import (
	"fmt"

	"github.com/openmon/sitecert/pkg/cert_manager/authority"
	"github.com/openmon/sitecert/pkg/cert_manager/brokercert"
	"github.com/openmon/sitecert/pkg/cert_manager/model"
	"github.com/openmon/sitecert/pkg/cert_manager/truststore"
)

// Target is the closed set of certificate kinds the rotation workflow can
// operate on. Each variant knows its audit component and the file paths
// whose presence makes the target "existing".
type Target interface {
	fmt.Stringer
	Component() model.Component
	Paths(root string, siteID string) []string
}

type SiteTarget struct{}
type SiteCATarget struct{}
type AgentCATarget struct{}
type BrokerCATarget struct{}
type BrokerTarget struct{}

func (SiteTarget) String() string     { return "site" }
func (SiteCATarget) String() string   { return "site-ca" }
func (AgentCATarget) String() string  { return "agent-ca" }
func (BrokerCATarget) String() string { return "broker-ca" }
func (BrokerTarget) String() string   { return "broker" }

func (SiteTarget) Component() model.Component     { return model.ComponentSiteCert }
func (SiteCATarget) Component() model.Component   { return model.ComponentSiteCA }
func (AgentCATarget) Component() model.Component  { return model.ComponentAgentCA }
func (BrokerCATarget) Component() model.Component { return model.ComponentBrokerCA }
func (BrokerTarget) Component() model.Component   { return model.ComponentBrokerCert }

func (SiteTarget) Paths(root string, siteID string) []string {
	return []string{authority.SiteCertificatePath(root, siteID)}
}

func (SiteCATarget) Paths(root string, siteID string) []string {
	return authority.SiteDomain.Paths(root)
}

func (AgentCATarget) Paths(root string, siteID string) []string {
	return authority.AgentDomain.Paths(root)
}

func (BrokerCATarget) Paths(root string, siteID string) []string {
	return append(authority.BrokerDomain.Paths(root), truststore.New(root).Path())
}

func (BrokerTarget) Paths(root string, siteID string) []string {
	return brokercert.NewLocalBrokerCertificate(root).Paths()
}

// TargetNames lists the accepted target spellings, in CLI order.
var TargetNames = []string{"site", "site-ca", "agent-ca", "broker-ca", "broker"}

// ParseTarget maps a CLI spelling to its Target variant.
func ParseTarget(name string) (Target, error) {
	switch name {
	case "site":
		return SiteTarget{}, nil
	case "site-ca":
		return SiteCATarget{}, nil
	case "agent-ca":
		return AgentCATarget{}, nil
	case "broker-ca":
		return BrokerCATarget{}, nil
	case "broker":
		return BrokerTarget{}, nil
	default:
		return nil, fmt.Errorf("unknown target certificate %q%w", name, model.ErrInvalidParameter)
	}
}
