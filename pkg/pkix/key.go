package pkix

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

// MinRSAKeySize is the smallest RSA modulus accepted for any generated key.
const MinRSAKeySize = 2048

// DefaultRSAKeySize is used when the caller does not request a size.
const DefaultRSAKeySize = 4096

var ErrKeySizeTooSmall = errors.New("key size below accepted minimum")

// CreatePrivateKey generates a new RSA private key. Key sizes below
// MinRSAKeySize are rejected.
func CreatePrivateKey(bits int) (*rsa.PrivateKey, error) {
	if bits < MinRSAKeySize {
		return nil, fmt.Errorf("%d bit RSA: %w", bits, ErrKeySizeTooSmall)
	}
	return rsa.GenerateKey(rand.Reader, bits)
}

// MarshalPrivateKey encodes the key as a PKCS#8 PEM block.
func MarshalPrivateKey(key *rsa.PrivateKey) ([]byte, error) {
	raw, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: raw}), nil
}

// ParsePrivateKey parses an RSA private key from a PEM block. PKCS#8 is tried
// first, then PKCS#1 as a fallback for older material.
func ParsePrivateKey(raw []byte) (*rsa.PrivateKey, error) {
	pemBlock, _ := pem.Decode(raw)
	if pemBlock == nil {
		return nil, errors.New("invalid private key")
	}

	key, pkcs8Err := x509.ParsePKCS8PrivateKey(pemBlock.Bytes)
	if pkcs8Err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("private key is not RSA")
		}
		return rsaKey, nil
	}

	rsaKey, pkcs1Err := x509.ParsePKCS1PrivateKey(pemBlock.Bytes)
	if pkcs1Err == nil {
		return rsaKey, nil
	}

	return nil, pkcs8Err
}

// IsPublicKeyOf reports whether pubKey is the public half of privKey.
func IsPublicKeyOf(privKey *rsa.PrivateKey, pubKey any) bool {
	pub, ok := pubKey.(interface{ Equal(crypto.PublicKey) bool })
	if !ok {
		return false
	}
	return pub.Equal(privKey.Public())
}
