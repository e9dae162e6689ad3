// Package truststore maintains the trust bundle consumed by the message
// broker's TLS stack: an ordered concatenation of CA certificates in one
// file. Every write replaces the file wholesale.
package truststore

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/openmon/sitecert/pkg/diskutil"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

const (
	fileMode = os.FileMode(0o660)
	dirMode  = os.FileMode(0o770)
)

// MessagingTrustedCAs is the broker trust bundle at a fixed path.
type MessagingTrustedCAs struct {
	path string
}

// New points at the conventional bundle location below the site root.
func New(root string) *MessagingTrustedCAs {
	return &MessagingTrustedCAs{path: filepath.Join(root, "etc", "rabbitmq", "ssl", "trusted_cas.pem")}
}

// NewAt points at an explicit bundle path.
func NewAt(path string) *MessagingTrustedCAs {
	return &MessagingTrustedCAs{path: path}
}

func (t *MessagingTrustedCAs) Path() string {
	return t.path
}

// Write replaces the bundle's content with certBytes.
func (t *MessagingTrustedCAs) Write(certBytes []byte) error {
	if err := diskutil.EnsureDir(filepath.Dir(t.path), dirMode); err != nil {
		return err
	}
	return diskutil.AtomicWriteFile(t.path, certBytes, fileMode)
}

// Read returns the current bundle content. A missing bundle reads as empty.
func (t *MessagingTrustedCAs) Read() ([]byte, error) {
	content, err := os.ReadFile(t.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return content, err
}

// Add appends certBytes to the bundle unless the exact bytes are already
// present. The result is written as a full replace.
func (t *MessagingTrustedCAs) Add(certBytes []byte) error {
	current, err := t.Read()
	if err != nil {
		return err
	}
	if bytes.Contains(current, bytes.TrimSpace(certBytes)) {
		return nil
	}
	return t.Write(append(current, certBytes...))
}

// UpdateFromSources rebuilds the bundle as the concatenation of every
// readable source file. Missing sources are skipped, not fatal: a customer
// CA that has not been provisioned yet simply does not contribute. The
// operation is idempotent because it re-reads all sources each time.
func (t *MessagingTrustedCAs) UpdateFromSources(sources []string) error {
	var readErr error
	contents := lo.FilterMap(sources, func(source string, _ int) ([]byte, bool) {
		content, err := os.ReadFile(source)
		if os.IsNotExist(err) {
			logrus.Debugf("trusted CA source %s not present, skipping", source)
			return nil, false
		}
		if err != nil {
			readErr = err
			return nil, false
		}
		return content, true
	})
	if readErr != nil {
		return readErr
	}

	return t.Write(bytes.Join(contents, nil))
}
