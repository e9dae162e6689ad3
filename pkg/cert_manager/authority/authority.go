// Package authority manages the root certificate authorities of a site.
// The four CA domains (site, agent signing, message broker, relay signing)
// share one generic manager parameterized by a Domain descriptor; only the
// on-disk layout, the subject template and the leaf-issuance operations
// differ between them.
package authority

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/openmon/sitecert/pkg/cert_manager/keypair"
	"github.com/openmon/sitecert/pkg/cert_manager/model"
)

type Layout int

const (
	// LayoutCombined keeps private key and certificate in one file.
	LayoutCombined Layout = iota
	// LayoutSplit keeps certificate and private key in two files, the
	// layout the message broker's TLS stack expects.
	LayoutSplit
)

// Domain describes one CA flavor: where its files live, how its subject is
// derived from the site (or customer) identity and how long it lives by
// default.
type Domain struct {
	Component     model.Component
	Layout        Layout
	CertPath      func(root string) string
	KeyPath       func(root string) string // split layout only
	SubjectCN     func(identity string) string
	Organization  func(identity string) string
	DefaultExpiry keypair.RelativeExpiry
}

// Paths returns every file the domain's CA occupies on disk.
func (d Domain) Paths(root string) []string {
	if d.Layout == LayoutSplit {
		return []string{d.CertPath(root), d.KeyPath(root)}
	}
	return []string{d.CertPath(root)}
}

// Authority is a loaded or freshly created certificate authority.
type Authority struct {
	Domain   Domain
	Root     string
	Identity string
	KeyPair  *keypair.CertificateWithPrivateKey
}

// Certificate returns the CA certificate.
func (a *Authority) Certificate() model.Certificate {
	return a.KeyPair.Certificate
}

// Create generates a brand-new self-signed CA for the domain and persists it.
// An existing CA at the same paths is overwritten; refusing to do so without
// an explicit replace flag is the rotation orchestrator's job, not this
// layer's.
func Create(domain Domain, root string, identity string, expiry keypair.RelativeExpiry, keySize int) (*Authority, error) {
	if expiry.IsZero() {
		expiry = domain.DefaultExpiry
	}

	kp, err := keypair.GenerateSelfSigned(domain.SubjectCN(identity), domain.Organization(identity), expiry, keySize, true)
	if err != nil {
		return nil, err
	}

	authority := &Authority{
		Domain:   domain,
		Root:     root,
		Identity: identity,
		KeyPair:  kp,
	}
	if err := authority.persist(); err != nil {
		return nil, err
	}
	return authority, nil
}

// Load reads the domain's CA back from disk. A missing file surfaces as
// ErrCertNotFound.
func Load(domain Domain, root string, identity string) (*Authority, error) {
	var kp *keypair.CertificateWithPrivateKey
	var err error
	if domain.Layout == LayoutSplit {
		kp, err = keypair.LoadSplit(domain.CertPath(root), domain.KeyPath(root))
	} else {
		kp, err = keypair.LoadCombined(domain.CertPath(root))
	}
	if err != nil {
		return nil, err
	}

	return &Authority{
		Domain:   domain,
		Root:     root,
		Identity: identity,
		KeyPair:  kp,
	}, nil
}

// LoadOrCreate loads the CA when its files exist and creates it otherwise.
// Load wins: an existing CA is never clobbered by this convenience.
func LoadOrCreate(domain Domain, root string, identity string, expiry keypair.RelativeExpiry, keySize int) (*Authority, error) {
	authority, err := Load(domain, root, identity)
	if err == nil {
		return authority, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	return Create(domain, root, identity, expiry, keySize)
}

// Exists reports whether any of the domain's CA files are present.
func Exists(domain Domain, root string) bool {
	for _, path := range domain.Paths(root) {
		if _, err := os.Stat(path); err == nil {
			return true
		}
	}
	return false
}

func (a *Authority) persist() error {
	if a.Domain.Layout == LayoutSplit {
		return keypair.SaveSplit(a.Domain.CertPath(a.Root), a.Domain.KeyPath(a.Root), a.KeyPair)
	}
	return keypair.SaveCombined(a.Domain.CertPath(a.Root), a.KeyPair, nil)
}

func isNotFound(err error) bool {
	return errors.Is(err, model.ErrDataNotFound)
}

// SitesDir is the directory holding the site leaf certificates.
func SitesDir(root string) string {
	return filepath.Join(root, "etc", "ssl", "sites")
}

// SiteCertificatePath is the combined key+cert+issuer file of a site's leaf
// certificate.
func SiteCertificatePath(root string, siteID string) string {
	return filepath.Join(SitesDir(root), siteID+".pem")
}
