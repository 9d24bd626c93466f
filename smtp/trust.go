// SPDX-FileCopyrightText: Copyright (c) The smtpcheck Authors
//
// SPDX-License-Identifier: MIT

package smtp

import (
	"crypto/sha1" //nolint:gosec // certificate thumbprints are SHA-1 by definition
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PolicyErrors is a bit set of the problems found with a server certificate
type PolicyErrors int

const (
	// PolicyErrorsNone means the certificate passed all checks
	PolicyErrorsNone PolicyErrors = 0

	// CertificateNotAvailable means the server did not present a certificate
	CertificateNotAvailable PolicyErrors = 1 << iota

	// CertificateNameMismatch means the certificate is not valid for the server name
	CertificateNameMismatch

	// CertificateChainErrors means the chain to a trusted root could not be built
	CertificateChainErrors
)

// ChainStatus describes a single problem found while building a certificate chain
type ChainStatus int

const (
	// ChainNoError means no problem was found
	ChainNoError ChainStatus = iota

	// ChainUntrustedRoot means the chain ends in a root that is not in the trust store
	ChainUntrustedRoot

	// ChainNotTimeValid means a certificate of the chain is expired or not yet valid
	ChainNotTimeValid

	// ChainInvalid covers every other chain problem (constraints, usage, signature)
	ChainInvalid
)

// ChainReport is the outcome of the standard chain validation of a server certificate
type ChainReport struct {
	Errors   PolicyErrors
	Statuses []ChainStatus
}

// CertificateInfo holds the attributes of a leaf certificate that are compared against
// the pinned mail server certificates. The notation follows the pinned table: Issuer is
// a comma separated distinguished name starting with the most specific attribute,
// SerialNumber and Fingerprint (SHA-1 of the DER encoding) are uppercase hex.
type CertificateInfo struct {
	CommonName   string
	Issuer       string
	SerialNumber string
	Fingerprint  string
}

// untrustedRootOnly reports whether every chain status is either ChainNoError or
// ChainUntrustedRoot
func (r ChainReport) untrustedRootOnly() bool {
	for _, status := range r.Statuses {
		if status != ChainNoError && status != ChainUntrustedRoot {
			return false
		}
	}
	return true
}

// Evaluate decides whether a server certificate is acceptable. A certificate without
// policy errors is accepted. A missing certificate or a name mismatch is always
// rejected. If the only problem is an untrusted root, the leaf must match one of the
// pinned mail server certificates.
func Evaluate(report ChainReport, leaf CertificateInfo) bool {
	return evaluate(report, leaf, IsKnownMailServerCertificate)
}

func evaluate(report ChainReport, leaf CertificateInfo, known func(CertificateInfo) bool) bool {
	if report.Errors == PolicyErrorsNone {
		return true
	}
	if report.Errors&(CertificateNotAvailable|CertificateNameMismatch) != 0 {
		return false
	}
	if !report.untrustedRootOnly() {
		return false
	}
	return known(leaf)
}

// InspectCertificates runs the standard chain validation for the certificates presented
// by a server. The leaf is checked against serverName, the chain against roots (the
// system pool if nil) at the given time.
func InspectCertificates(certs []*x509.Certificate, serverName string, roots *x509.CertPool,
	now time.Time,
) ChainReport {
	if len(certs) == 0 || certs[0] == nil {
		return ChainReport{Errors: CertificateNotAvailable}
	}
	leaf := certs[0]
	report := ChainReport{}
	if serverName != "" {
		if err := leaf.VerifyHostname(serverName); err != nil {
			report.Errors |= CertificateNameMismatch
		}
	}

	intermediates := x509.NewCertPool()
	for _, cert := range certs[1:] {
		intermediates.AddCert(cert)
	}
	_, err := leaf.Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: intermediates,
		CurrentTime:   now,
	})
	if err == nil {
		report.Statuses = []ChainStatus{ChainNoError}
		return report
	}

	report.Errors |= CertificateChainErrors
	var unknownAuthority x509.UnknownAuthorityError
	var invalid x509.CertificateInvalidError
	switch {
	case errors.As(err, &unknownAuthority):
		report.Statuses = []ChainStatus{ChainUntrustedRoot}
	case errors.As(err, &invalid) && invalid.Reason == x509.Expired:
		report.Statuses = []ChainStatus{ChainNotTimeValid}
	default:
		report.Statuses = []ChainStatus{ChainInvalid}
	}
	return report
}

// VerifyConnection returns a tls.Config.VerifyConnection callback that inspects the
// presented chain and applies Evaluate. The returned error wraps ErrTrustRejected.
// The tls.Config it is used with must set InsecureSkipVerify, so that the standard
// verification of crypto/tls does not run before the callback.
func VerifyConnection(serverName string, roots *x509.CertPool) func(tls.ConnectionState) error {
	return func(cs tls.ConnectionState) error {
		report := InspectCertificates(cs.PeerCertificates, serverName, roots, time.Now())
		var leaf CertificateInfo
		if len(cs.PeerCertificates) > 0 {
			leaf = NewCertificateInfo(cs.PeerCertificates[0])
		}
		if !Evaluate(report, leaf) {
			return fmt.Errorf("%w: %s (issuer %q, serial %s)", ErrTrustRejected, report.Errors,
				leaf.Issuer, leaf.SerialNumber)
		}
		return nil
	}
}

// NewCertificateInfo extracts the pinned attributes of a certificate. The issuer keeps
// the attribute order encoded in the certificate. CommonName falls back to the subject
// email address, then to the first email and DNS subject alternative name when the
// subject has no CN.
func NewCertificateInfo(cert *x509.Certificate) CertificateInfo {
	if cert == nil {
		return CertificateInfo{}
	}
	issuer, err := RawDistinguishedName(cert.RawIssuer)
	if err != nil {
		issuer = DistinguishedName(cert.Issuer)
	}
	fingerprint := sha1.Sum(cert.Raw) //nolint:gosec
	return CertificateInfo{
		CommonName:   simpleName(cert),
		Issuer:       issuer,
		SerialNumber: serialNumber(cert),
		Fingerprint:  fmt.Sprintf("%X", fingerprint[:]),
	}
}

// simpleName returns the CN of the subject or the first name that identifies it otherwise
func simpleName(cert *x509.Certificate) string {
	if cert.Subject.CommonName != "" {
		return cert.Subject.CommonName
	}
	for _, atv := range cert.Subject.Names {
		if atv.Type.Equal(oidEmailAddress) {
			if email, ok := atv.Value.(string); ok && email != "" {
				return email
			}
		}
	}
	if len(cert.EmailAddresses) > 0 {
		return cert.EmailAddresses[0]
	}
	if len(cert.DNSNames) > 0 {
		return cert.DNSNames[0]
	}
	return ""
}

// serialNumber returns the DER content octets of the serial as uppercase hex, which
// keeps the leading zero byte of serials with the high bit set
func serialNumber(cert *x509.Certificate) string {
	if cert.SerialNumber == nil {
		return ""
	}
	serial := cert.SerialNumber.Bytes()
	if len(serial) == 0 {
		return "00"
	}
	if serial[0]&0x80 != 0 {
		serial = append([]byte{0}, serial...)
	}
	return fmt.Sprintf("%X", serial)
}

var attributeNames = map[string]string{
	"2.5.4.3":              "CN",
	"2.5.4.5":              "SERIALNUMBER",
	"2.5.4.6":              "C",
	"2.5.4.7":              "L",
	"2.5.4.8":              "S",
	"2.5.4.9":              "STREET",
	"2.5.4.10":             "O",
	"2.5.4.11":             "OU",
	"2.5.4.17":             "PostalCode",
	"1.2.840.113549.1.9.1": "E",
}

var oidEmailAddress = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 1}

// DistinguishedName formats a name with the most specific attribute first, attributes
// separated by ", " (e.g. "CN=GTS CA 1C3, O=Google Trust Services LLC, C=US").
// pkix.Name does not keep the encoded attribute order, so names taken from a parsed
// certificate should go through RawDistinguishedName instead.
func DistinguishedName(name pkix.Name) string {
	return formatRDNSequence(name.ToRDNSequence())
}

// RawDistinguishedName formats a DER encoded name (e.g. x509.Certificate.RawIssuer)
// like DistinguishedName, keeping every attribute in its encoded order
func RawDistinguishedName(raw []byte) (string, error) {
	var rdns pkix.RDNSequence
	rest, err := asn1.Unmarshal(raw, &rdns)
	if err != nil {
		return "", fmt.Errorf("failed to parse distinguished name: %w", err)
	}
	if len(rest) != 0 {
		return "", errors.New("failed to parse distinguished name: trailing data")
	}
	return formatRDNSequence(rdns), nil
}

func formatRDNSequence(rdns pkix.RDNSequence) string {
	parts := make([]string, 0, len(rdns))
	for i := len(rdns) - 1; i >= 0; i-- {
		for _, atv := range rdns[i] {
			parts = append(parts, attributeName(atv.Type)+"="+attributeValue(atv.Value))
		}
	}
	return strings.Join(parts, ", ")
}

func attributeName(oid asn1.ObjectIdentifier) string {
	if name, ok := attributeNames[oid.String()]; ok {
		return name
	}
	return "OID." + oid.String()
}

func attributeValue(value interface{}) string {
	s := fmt.Sprint(value)
	if strings.ContainsAny(s, ",+=\"<>#;\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// String satisfies the fmt.Stringer interface for the PolicyErrors type
func (p PolicyErrors) String() string {
	if p == PolicyErrorsNone {
		return "no policy errors"
	}
	var errs []string
	if p&CertificateNotAvailable != 0 {
		errs = append(errs, "certificate not available")
	}
	if p&CertificateNameMismatch != 0 {
		errs = append(errs, "certificate name mismatch")
	}
	if p&CertificateChainErrors != 0 {
		errs = append(errs, "certificate chain errors")
	}
	return strings.Join(errs, ", ")
}
