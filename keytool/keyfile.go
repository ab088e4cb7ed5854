/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package keytool

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"
	"gopkg.in/yaml.v3"
)

// KeyRecord is the in-memory representation of one on-disk key pair. It is
// a value object: records are loaded fresh from the key files on every
// invocation and the files remain the only durable store.
type KeyRecord struct {
	Zone      string
	Algorithm uint8
	KeyTag    uint16
	Type      KeyType

	Created  time.Time
	Publish  time.Time
	Activate time.Time
	Inactive time.Time
	Delete   time.Time

	KeyFile     string
	PrivateFile string
	DnskeyRR    *dns.DNSKEY
}

// BindPrivateKey is the subset of the "BIND Private-key-format v1.3" file
// that we ever need to look at.
type BindPrivateKey struct {
	Private_Key_Format string `yaml:"Private-key-format"`
	Algorithm          string `yaml:"Algorithm"`
	PrivateKey         string `yaml:"PrivateKey"`
}

// ParseKeyName splits a key file base name of the form
// K<zone>+<algorithm>+<keytag> into its components.
func ParseKeyName(base string) (string, uint8, uint16, error) {
	if !strings.HasPrefix(base, "K") {
		return "", 0, 0, fmt.Errorf("key file name %q does not start with 'K'", base)
	}
	parts := strings.Split(base, "+")
	if len(parts) != 3 {
		return "", 0, 0, fmt.Errorf("key file name %q is not of the form Kzone+alg+keytag", base)
	}
	zone := parts[0][1:]
	alg, err := strconv.Atoi(parts[1])
	if err != nil || alg < 0 || alg > 255 {
		return "", 0, 0, fmt.Errorf("key file name %q has bad algorithm field: %q", base, parts[1])
	}
	tag, err := strconv.Atoi(parts[2])
	if err != nil || tag < 0 || tag > 65535 {
		return "", 0, 0, fmt.Errorf("key file name %q has bad keytag field: %q", base, parts[2])
	}
	return zone, uint8(alg), uint16(tag), nil
}

// KeyFileBase is the inverse of ParseKeyName.
func KeyFileBase(zone string, alg uint8, keytag uint16) string {
	return fmt.Sprintf("K%s+%03d+%05d", zone, alg, keytag)
}

func dateField(line string) (time.Time, error) {
	words := strings.Fields(line)
	if len(words) < 3 {
		return time.Time{}, fmt.Errorf("unexpected date line: %q", line)
	}
	return ParseDNSTime(words[2])
}

// ReadKeyRecord loads one key pair from its public key file. The identity
// comes from the file name, the timing metadata from the comment lines that
// dnssec-keygen/dnssec-settime write, and the key type from the descriptive
// comment (falling back to the DNSKEY flags field when absent).
func ReadKeyRecord(path string) (*KeyRecord, error) {
	base := strings.TrimSuffix(filepath.Base(path), ".key")
	zone, alg, keytag, err := ParseKeyName(base)
	if err != nil {
		return nil, err
	}

	kr := &KeyRecord{
		Zone:        zone,
		Algorithm:   alg,
		KeyTag:      keytag,
		KeyFile:     path,
		PrivateFile: strings.TrimSuffix(path, ".key") + ".private",
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading key file %q: %v", path, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, ";") {
			switch {
			case strings.Contains(line, "Created:"):
				kr.Created, err = dateField(line)
			case strings.Contains(line, "Publish:"):
				kr.Publish, err = dateField(line)
			case strings.Contains(line, "Activate:"):
				kr.Activate, err = dateField(line)
			case strings.Contains(line, "Inactive:"):
				kr.Inactive, err = dateField(line)
			case strings.Contains(line, "Delete:"):
				kr.Delete, err = dateField(line)
			case strings.Contains(line, "This is a ") && strings.Contains(line, "keyid") && strings.Contains(line, "for"):
				err = kr.parseTypeComment(line)
			}
			if err != nil {
				return nil, fmt.Errorf("%s: %v", base, err)
			}
			continue
		}
		if strings.Contains(line, "DNSKEY") {
			rr, err := dns.NewRR(line)
			if err != nil {
				return nil, fmt.Errorf("%s: error parsing DNSKEY RR: %v", base, err)
			}
			if dnskey, ok := rr.(*dns.DNSKEY); ok {
				kr.DnskeyRR = dnskey
			}
		}
	}

	if kr.Type == TypeAny && kr.DnskeyRR != nil {
		// No descriptive comment; fall back to the SEP bit.
		if kr.DnskeyRR.Flags&1 == 1 {
			kr.Type = TypeKSK
		} else {
			kr.Type = TypeZSK
		}
	}

	return kr, nil
}

func (kr *KeyRecord) parseTypeComment(line string) error {
	words := strings.Fields(line)
	if len(words) < 10 {
		return fmt.Errorf("unexpected key type comment: %q", line)
	}
	switch words[4] {
	case "zone-signing":
		kr.Type = TypeZSK
	case "key-signing":
		kr.Type = TypeKSK
	default:
		return fmt.Errorf("unexpected key type word: %q", words[4])
	}
	claimed, err := strconv.Atoi(strings.TrimSuffix(words[7], ","))
	if err != nil {
		return fmt.Errorf("unexpected keyid in comment: %q", words[7])
	}
	if uint16(claimed) != kr.KeyTag {
		return fmt.Errorf("%s claims to be for keyid %d, but is not", kr.Name(), claimed)
	}
	if zone := words[len(words)-1]; zone != kr.Zone {
		return fmt.Errorf("%s claims to be for zone %s, but is not", kr.Name(), zone)
	}
	return nil
}

// Name returns the key file base name without extension.
func (kr *KeyRecord) Name() string {
	return KeyFileBase(kr.Zone, kr.Algorithm, kr.KeyTag)
}

func (kr *KeyRecord) String() string {
	return fmt.Sprintf("%s+%03d+%05d", kr.Zone, kr.Algorithm, kr.KeyTag)
}

// SignerID is the algorithm+keytag pair used to match this key against
// DNSKEY, RRSIG and DS records seen on the wire.
func (kr *KeyRecord) SignerID() string {
	return fmt.Sprintf("%03d+%05d", kr.Algorithm, kr.KeyTag)
}

// SortKey orders keys by zone, type, algorithm, keytag.
func (kr *KeyRecord) SortKey() string {
	return fmt.Sprintf("%s+%s+%03d+%05d", kr.Zone, kr.Type, kr.Algorithm, kr.KeyTag)
}

// DnskeyPayload returns the rdata portion of the DNSKEY RR, i.e. what
// follows "DNSKEY" in the presentation format.
func (kr *KeyRecord) DnskeyPayload() string {
	if kr.DnskeyRR == nil {
		return ""
	}
	return fmt.Sprintf("%d %d %d %s", kr.DnskeyRR.Flags, kr.DnskeyRR.Protocol,
		kr.DnskeyRR.Algorithm, kr.DnskeyRR.PublicKey)
}

// KeySize estimates the key size in bits from the public key material.
func (kr *KeyRecord) KeySize() int {
	switch kr.Algorithm {
	case dns.ECDSAP256SHA256, dns.ED25519:
		return 256
	case dns.ECDSAP384SHA384:
		return 384
	case dns.RSASHA1, dns.RSASHA256, dns.RSASHA512:
		if kr.DnskeyRR == nil {
			return 2048
		}
		keydata, err := base64.StdEncoding.DecodeString(kr.DnskeyRR.PublicKey)
		if err != nil || len(keydata) < 3 {
			return 2048
		}
		// RFC 3110: one-byte exponent length (or 0 + two bytes), then
		// exponent, then modulus.
		explen := int(keydata[0])
		hdr := 1
		if explen == 0 {
			explen = int(keydata[1])<<8 | int(keydata[2])
			hdr = 3
		}
		return (len(keydata) - hdr - explen) * 8
	}
	return 0
}

// ReadBindPrivateKey parses the .private side of the pair far enough to
// cross-check the algorithm against the public half.
func (kr *KeyRecord) ReadBindPrivateKey() (*BindPrivateKey, error) {
	data, err := os.ReadFile(kr.PrivateFile)
	if err != nil {
		return nil, fmt.Errorf("error reading private key file %q: %v", kr.PrivateFile, err)
	}
	var bpk BindPrivateKey
	if err := yaml.Unmarshal(data, &bpk); err != nil {
		return nil, fmt.Errorf("error parsing private key file %q: %v", kr.PrivateFile, err)
	}
	if bpk.Algorithm != "" {
		words := strings.Fields(bpk.Algorithm)
		if n, err := strconv.Atoi(words[0]); err == nil && uint8(n) != kr.Algorithm {
			return nil, fmt.Errorf("%s: private key algorithm %d does not match file name algorithm %d",
				kr.Name(), n, kr.Algorithm)
		}
	}
	return &bpk, nil
}
