package rtc

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"github.com/pion/dtls/v3/pkg/crypto/fingerprint"
)

// Certificate is the locally generated identity presented during the DTLS
// handshake. It is owned by the PeerConnection and shared read-only with
// the DTLS transport.
type Certificate struct {
	privateKey crypto.PrivateKey
	x509Cert   *x509.Certificate
}

// GenerateCertificate creates a self-signed ECDSA P-256 certificate valid
// for one month.
func GenerateCertificate() (*Certificate, error) {
	secretKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	origin := make([]byte, 16)
	if _, err = rand.Read(origin); err != nil {
		return nil, fmt.Errorf("generate subject: %w", err)
	}

	// Max random value, a 130-bits integer, i.e 2^130 - 1
	maxBigInt := new(big.Int)
	maxBigInt.Exp(big.NewInt(2), big.NewInt(130), nil).Sub(maxBigInt, big.NewInt(1))
	serialNumber, err := rand.Int(rand.Reader, maxBigInt)
	if err != nil {
		return nil, fmt.Errorf("generate serial number: %w", err)
	}

	template := x509.Certificate{
		ExtKeyUsage: []x509.ExtKeyUsage{
			x509.ExtKeyUsageClientAuth,
			x509.ExtKeyUsageServerAuth,
		},
		BasicConstraintsValid: true,
		NotBefore:             time.Now(),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		NotAfter:              time.Now().AddDate(0, 1, 0),
		SerialNumber:          serialNumber,
		Version:               2,
		Subject:               pkix.Name{CommonName: hex.EncodeToString(origin)},
		SignatureAlgorithm:    x509.ECDSAWithSHA256,
		IsCA:                  true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, secretKey.Public(), secretKey)
	if err != nil {
		return nil, fmt.Errorf("create certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("parse certificate: %w", err)
	}

	return &Certificate{privateKey: secretKey, x509Cert: cert}, nil
}

// Fingerprint returns the SHA-256 digest of the certificate as a
// colon-separated hex string, the form exchanged in session descriptions.
func (c *Certificate) Fingerprint() (string, error) {
	return fingerprint.Fingerprint(c.x509Cert, crypto.SHA256)
}

// Expires returns the timestamp after which this certificate is no longer
// valid.
func (c *Certificate) Expires() time.Time {
	if c.x509Cert == nil {
		return time.Time{}
	}

	return c.x509Cert.NotAfter
}

// tlsCertificate adapts the identity for the DTLS configuration.
func (c *Certificate) tlsCertificate() tls.Certificate {
	return tls.Certificate{
		Certificate: [][]byte{c.x509Cert.Raw},
		PrivateKey:  c.privateKey,
		Leaf:        c.x509Cert,
	}
}
