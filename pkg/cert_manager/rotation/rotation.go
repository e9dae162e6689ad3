// Package rotation is the top-level certificate rotation workflow: check
// whether the requested target already exists, refuse to clobber it without
// an explicit replace flag, dispatch to the owning CA or leaf manager and
// emit an audit event on success.
package rotation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/openmon/sitecert/pkg/cert_manager/audit"
	"github.com/openmon/sitecert/pkg/cert_manager/authority"
	"github.com/openmon/sitecert/pkg/cert_manager/brokercert"
	"github.com/openmon/sitecert/pkg/cert_manager/keypair"
	"github.com/openmon/sitecert/pkg/cert_manager/model"
	"github.com/openmon/sitecert/pkg/cert_manager/truststore"
	"github.com/openmon/sitecert/pkg/diskutil"
	"github.com/openmon/sitecert/pkg/pkix"
)

// Request describes one rotation invocation.
type Request struct {
	SiteID  string
	Target  Target
	Expiry  keypair.RelativeExpiry
	KeySize int
	Replace bool
	Actor   string
}

// Orchestrator runs rotation requests against one site root directory.
type Orchestrator struct {
	root string
	sink model.EventSink
}

func New(root string, sink model.EventSink) *Orchestrator {
	return &Orchestrator{root: root, sink: sink}
}

// Rotate executes the workflow for one target. The check-exists, dispatch
// and write sequence runs under an exclusive advisory lock so two concurrent
// rotations of the same site cannot interleave. Managers write atomically
// per artifact; on failure nothing already written is rolled back.
func (o *Orchestrator) Rotate(req Request) (string, error) {
	if err := ValidateRequest(req); err != nil {
		return "", err
	}
	if req.KeySize == 0 {
		req.KeySize = pkix.DefaultRSAKeySize
	}

	if err := diskutil.EnsureDir(filepath.Join(o.root, "etc"), 0o770); err != nil {
		return "", err
	}
	lock := diskutil.NewFileLock(filepath.Join(o.root, "etc", ".cert_rotation.lock"))
	if err := lock.Lock(); err != nil {
		return "", err
	}
	defer lock.Unlock()

	existed := o.targetExists(req)
	if existed && !req.Replace {
		return "", fmt.Errorf(
			"%s certificate already exists (%s), pass --replace to overwrite it%w",
			req.Target, strings.Join(req.Target.Paths(o.root, req.SiteID), ", "), model.ErrAlreadyExists)
	}

	cert, err := o.dispatch(req)
	if err != nil {
		return "", err
	}

	kind := model.EventCertificateCreated
	if existed {
		kind = model.EventCertificateRotated
	}
	if o.sink != nil {
		o.sink.Emit(audit.NewEvent(kind, req.Target.Component(), req.Actor, &cert))
	}

	return fmt.Sprintf("%s certificate for site '%s' %s", req.Target, req.SiteID, pastTense(kind)), nil
}

// targetExists is deliberately conservative: any single present file makes
// the target count as existing, so partial artifacts always require an
// explicit replace instead of being silently merged with new material.
func (o *Orchestrator) targetExists(req Request) bool {
	for _, path := range req.Target.Paths(o.root, req.SiteID) {
		if _, err := os.Stat(path); err == nil {
			return true
		}
	}
	return false
}

func (o *Orchestrator) dispatch(req Request) (model.Certificate, error) {
	switch req.Target.(type) {
	case SiteTarget:
		ca, err := authority.Load(authority.SiteDomain, o.root, req.SiteID)
		if err != nil {
			return model.Certificate{}, err
		}
		leaf, err := ca.CreateSiteCertificate(req.SiteID, nil, req.Expiry, req.KeySize)
		if err != nil {
			return model.Certificate{}, err
		}
		return leaf.Certificate, nil

	case SiteCATarget:
		ca, err := authority.Create(authority.SiteDomain, o.root, req.SiteID, req.Expiry, req.KeySize)
		if err != nil {
			return model.Certificate{}, err
		}
		// Replacing the CA invalidates every leaf it signed; the site
		// certificate is re-issued in the same operation with the usual
		// leaf lifetime.
		if _, err := ca.CreateSiteCertificate(req.SiteID, nil, authority.DefaultSiteCertExpiry, req.KeySize); err != nil {
			return model.Certificate{}, err
		}
		return ca.Certificate(), nil

	case AgentCATarget:
		ca, err := authority.Create(authority.AgentDomain, o.root, req.SiteID, req.Expiry, req.KeySize)
		if err != nil {
			return model.Certificate{}, err
		}
		return ca.Certificate(), nil

	case BrokerCATarget:
		ca, err := authority.CreateAndPersistBrokerCA(o.root, req.SiteID, req.Expiry, req.KeySize)
		if err != nil {
			return model.Certificate{}, err
		}
		if err := ca.WriteTrustedCAs(truststore.New(o.root)); err != nil {
			return model.Certificate{}, err
		}
		return ca.Certificate(), nil

	case BrokerTarget:
		ca, err := authority.Load(authority.BrokerDomain, o.root, req.SiteID)
		if err != nil {
			return model.Certificate{}, err
		}
		bundle, err := brokercert.CreateBundle(req.SiteID, ca, req.Expiry, req.KeySize)
		if err != nil {
			return model.Certificate{}, err
		}
		if err := brokercert.NewLocalBrokerCertificate(o.root).Persist(bundle); err != nil {
			return model.Certificate{}, err
		}
		return bundle.Certificate, nil

	default:
		return model.Certificate{}, fmt.Errorf("unhandled target %T%w", req.Target, model.ErrInvalidParameter)
	}
}

func pastTense(kind model.EventKind) string {
	if kind == model.EventCertificateRotated {
		return "replaced"
	}
	return "created"
}
