package cryptor

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"time"
)

// ALPNProtocol is the application protocol identifier negotiated during
// the handshake when both endpoints support it.
const ALPNProtocol = "openprojection/1"

// newClientTLSConfig builds the TLS configuration for the head unit
// side of the handshake. Peer verification is disabled: the projection
// link is authenticated by physical attachment (USB) or wireless
// pairing, and the handshake provides confidentiality only.
func newClientTLSConfig(cert tls.Certificate) *tls.Config {
	return &tls.Config{
		// TLS 1.3 only - no fallback
		MinVersion: tls.VersionTLS13,
		MaxVersion: tls.VersionTLS13,

		// Certificate presented to the device
		Certificates: []tls.Certificate{cert},

		// ALPN protocol
		NextProtos: []string{ALPNProtocol},

		// Curve preferences for key exchange
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},

		// Session tickets disabled (no resumption, and the record
		// bridge relies on no post-handshake messages arriving)
		SessionTicketsDisabled: true,

		// Verification disabled, see above
		InsecureSkipVerify: true,
	}
}

// newServerTLSConfig builds the TLS configuration for the device side
// of the handshake, used by simulators and tests.
func newServerTLSConfig(cert tls.Certificate) *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS13,
		MaxVersion: tls.VersionTLS13,

		Certificates: []tls.Certificate{cert},

		// The head unit's certificate is requested but not verified
		ClientAuth: tls.RequestClientCert,

		NextProtos: []string{ALPNProtocol},

		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},

		SessionTicketsDisabled: true,
	}
}

// GenerateCertificate creates a self-signed certificate for one
// endpoint of the handshake. Validity is generous because expiry is
// never checked: verification is disabled on both roles.
func GenerateCertificate(role Role) (tls.Certificate, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generate key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("generate serial: %w", err)
	}

	commonName := "OpenProjection Head Unit"
	extKeyUsage := x509.ExtKeyUsageClientAuth
	if role == RoleServer {
		commonName = "OpenProjection Device"
		extKeyUsage = x509.ExtKeyUsageServerAuth
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			CommonName:   commonName,
			Organization: []string{"OpenProjection"},
		},
		// Head unit clocks are unreliable, so back-date generously.
		NotBefore:             now.Add(-24 * time.Hour),
		NotAfter:              now.Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{extKeyUsage},
		BasicConstraintsValid: true,
		IsCA:                  false,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("create certificate: %w", err)
	}

	return tls.Certificate{
		Certificate: [][]byte{certDER},
		PrivateKey:  privateKey,
	}, nil
}
