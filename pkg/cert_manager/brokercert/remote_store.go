package brokercert

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/openmon/sitecert/pkg/cert_manager/model"
	"github.com/openmon/sitecert/pkg/diskutil"
	"github.com/samber/lo"
)

// RemoteSiteCertsStore keeps the bare certificates of other sites, one PEM
// file per site identifier. These certificates carry no private key; they
// are only ever used to verify material received from those sites.
type RemoteSiteCertsStore struct {
	dir string
}

func NewRemoteSiteCertsStore(dir string) *RemoteSiteCertsStore {
	return &RemoteSiteCertsStore{dir: dir}
}

// RemoteSiteCertsDir is the conventional store location below the site root.
func RemoteSiteCertsDir(root string) string {
	return filepath.Join(root, "etc", "rabbitmq", "ssl", "remote_sites")
}

func (s *RemoteSiteCertsStore) path(siteID string) string {
	return filepath.Join(s.dir, siteID+".pem")
}

// Save persists the certificate of the given remote site, replacing any
// previous one.
func (s *RemoteSiteCertsStore) Save(siteID string, cert model.Certificate) error {
	pemBytes, err := cert.PEM()
	if err != nil {
		return err
	}
	if err := diskutil.EnsureDir(s.dir, 0o770); err != nil {
		return err
	}
	return diskutil.AtomicWriteFile(s.path(siteID), pemBytes, 0o660)
}

// Load reads the certificate of the given remote site.
func (s *RemoteSiteCertsStore) Load(siteID string) (model.Certificate, error) {
	raw, err := os.ReadFile(s.path(siteID))
	if os.IsNotExist(err) {
		return model.Certificate{}, fmt.Errorf("site %s: %w", siteID, model.ErrCertNotFound)
	} else if err != nil {
		return model.Certificate{}, err
	}
	return model.ParseCertificatePEM(raw)
}

// List returns the site identifiers with a stored certificate.
func (s *RemoteSiteCertsStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return lo.FilterMap(entries, func(entry os.DirEntry, _ int) (string, bool) {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".pem") {
			return "", false
		}
		return strings.TrimSuffix(name, ".pem"), true
	}), nil
}
