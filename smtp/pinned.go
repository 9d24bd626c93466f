// SPDX-FileCopyrightText: Copyright (c) The smtpcheck Authors
//
// SPDX-License-Identifier: MIT

package smtp

import "time"

// PinnedCertificate is a known certificate of a large mail provider. A server presenting
// it is accepted even if its root is missing from the local trust store.
type PinnedCertificate struct {
	CertificateInfo
	Expires time.Time
}

const (
	issuerApple     = "C=US, S=California, O=Apple Inc., CN=Apple Public Server RSA CA 12 - G1"
	issuerGMail     = "CN=GTS CA 1C3, O=Google Trust Services LLC, C=US"
	issuerOutlook   = "CN=DigiCert Cloud Services CA-1, O=DigiCert Inc, C=US"
	issuerYahoo     = "CN=DigiCert SHA2 High Assurance Server CA, OU=www.digicert.com, O=DigiCert Inc, C=US"
	issuerGmxDotCom = "CN=GeoTrust RSA CA 2018, OU=www.digicert.com, O=DigiCert Inc, C=US"
	issuerGmxDotNet = "CN=TeleSec ServerPass Extended Validation Class 3 CA, STREET=Untere Industriestr. 20, " +
		"L=Netphen, PostalCode=57250, S=Nordrhein Westfalen, OU=T-Systems Trust Center, " +
		"O=T-Systems International GmbH, C=DE"
)

// pinnedCertificates must be updated when the providers rotate their certificates.
// Outdated entries only cause legitimate servers to be rejected.
var pinnedCertificates = []PinnedCertificate{
	pin("imap.gmail.com", issuerGMail, "00B93BA153E99924FA0A0000000110361E",
		"626F8E5304A6894F73EA34C1A5BA30E659430A2F", "2022-01-10T04:47:53Z"),
	pin("imap.gmail.com", issuerGMail, "3D490726264C73630A0000000119533C",
		"663B1630FCAAFBC30038BC2623F7DA087482C0FD", "2022-01-23T21:54:50Z"),
	pin("imap.gmail.com", issuerGMail, "2265A3434A5225380A00000001224DAF",
		"52A853B1121A4B1A7C5DBDBFD6CE39F068888A2B", "2022-01-31T03:11:05Z"),
	pin("imap.gmail.com", issuerGMail, "00EC67725FAF05E6FD0A0000000125FF83",
		"FF388B1BC174CBC3069B8709AB0CD93AF8077E94", "2022-02-20T22:08:30Z"),

	pin("pop.gmail.com", issuerGMail, "00D10ECCD5085799F50A0000000108AD82",
		"EDC8EFF7BABFA726874E1E5753D9A203DB9FB539", "2021-12-26T21:12:18Z"),
	pin("pop.gmail.com", issuerGMail, "00D1539A6D091B588C0A00000001103626",
		"F6C4E61A5F0E8E0ECB6194F13ADF6B255D9CF16D", "2022-01-10T04:48:09Z"),
	pin("pop.gmail.com", issuerGMail, "34C1C63D8A354B9E0A0000000119533E",
		"081431D1D4E703B9038F630F29CE43D1505E7DA6", "2022-01-23T21:55:03Z"),
	pin("pop.gmail.com", issuerGMail, "32D8D7A3EB3680B80A00000001224DB8",
		"664F07AEDFC6D1BB25669D6470CC84371F30146D", "2022-01-31T03:11:21Z"),

	pin("smtp.gmail.com", issuerGMail, "6C04C830530304AA0A0000000110363A",
		"28C09AAA6A21E3DDBC3DDD67FBF375AAEF61B0C9", "2022-01-10T04:49:30Z"),
	pin("smtp.gmail.com", issuerGMail, "7A99E46AA12130370A00000001195354",
		"57A74EA716DC96B74035A7C08CD9649FBF2D834A", "2022-01-23T21:56:15Z"),
	pin("smtp.gmail.com", issuerGMail, "00BDF6AD1401715D6B0A00000001224DCA",
		"4B4948C238114FC92F31C59E5B85C73D1E47BADB", "2022-01-31T03:12:48Z"),

	pin("outlook.com", issuerOutlook, "0CCAC32B0EF281026392B8852AB15642",
		"CBAA1582F1E49AD1D108193B5D38B966BE4993C6", "2022-01-21T18:59:59Z"),
	pin("outlook.com", issuerOutlook, "0CE67C905DDE83B20E77606A636AB967",
		"E295CCF7F125F70907C2E7F97EF0F5E7D5704DE6", "2022-10-23T19:59:59Z"),

	pin("imap.mail.me.com", issuerApple, "2EC9B6B93C77A53D15405C47A9FBC3CF",
		"A047B6AE5E0FF51CC216C1237A44529B0A4DB0D2", "2022-10-02T15:51:56Z"),
	pin("smtp.mail.me.com", issuerApple, "46A537AD83083BCCBDA20D1D8657F573",
		"83AA1EF97EE9AC0EAD8B2C88C62C83F8EDBF2BDB", "2022-10-30T16:11:38Z"),

	pin("*.imap.mail.yahoo.com", issuerYahoo, "07E7B4CB914FFC7FB3E03105C9DA0BE1",
		"D7D39A265E914ADC8B443BF24DB684354D50B000", "2022-03-16T19:59:59Z"),
	pin("legacy.pop.mail.yahoo.com", issuerYahoo, "09CC4977A4C14D4388D90CF6676385FE",
		"7BA05AF724299FF0688842ADEF2837DE25F3C4FD", "2021-12-22T18:59:59Z"),
	pin("legacy.pop.mail.yahoo.com", issuerYahoo, "03B1E9610E0E209A4EA8FC192EBF55D7",
		"7C32F642167257B00E55A9C5DC3E35F1719193BD", "2022-05-18T23:59:59Z"),
	pin("smtp.mail.yahoo.com", issuerYahoo, "096122E949C73D57587E904DE8EBE2BC",
		"C38CA2874F6489686FAE148482325EC3D8763D81", "2022-04-13T19:59:59Z"),

	pin("mout.gmx.com", issuerGmxDotCom, "06206F2270494CD7AD11F2B17E286C2C",
		"A7D3BCC363B307EC3BDE21269A2F05117D6614A8", "2022-07-12T08:00:00Z"),
	pin("mail.gmx.com", issuerGmxDotCom, "0719A4D33A18B550133DDA3253AF6C96",
		"948B0C3FA22BC12C91EEE5B1631A6C41B4A01B9C", "2022-07-12T08:00:00Z"),
	pin("mail.gmx.net", issuerGmxDotNet, "070E7CD59BB7AFD73E8A206219C4F011",
		"E66DC8FE17C9A7718D17441CBE347D1D6F7BF3D2", "2022-05-03T19:59:59Z"),
}

// pinnedIndex is built once and only read afterwards
var pinnedIndex = func() map[CertificateInfo]struct{} {
	index := make(map[CertificateInfo]struct{}, len(pinnedCertificates))
	for _, p := range pinnedCertificates {
		index[p.CertificateInfo] = struct{}{}
	}
	return index
}()

func pin(cn, issuer, serial, fingerprint, expires string) PinnedCertificate {
	exp, err := time.Parse(time.RFC3339, expires)
	if err != nil {
		panic("invalid expiry of pinned certificate " + cn + ": " + err.Error())
	}
	return PinnedCertificate{
		CertificateInfo: CertificateInfo{
			CommonName:   cn,
			Issuer:       issuer,
			SerialNumber: serial,
			Fingerprint:  fingerprint,
		},
		Expires: exp,
	}
}

// IsKnownMailServerCertificate reports whether all four attributes of the certificate
// match a pinned mail server certificate
func IsKnownMailServerCertificate(info CertificateInfo) bool {
	_, ok := pinnedIndex[info]
	return ok
}

// KnownMailServerCertificates returns a copy of the pinned mail server certificates
func KnownMailServerCertificates() []PinnedCertificate {
	list := make([]PinnedCertificate, len(pinnedCertificates))
	copy(list, pinnedCertificates)
	return list
}
