/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 */
package keytool

import (
	"crypto"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/miekg/dns"
)

// Generator materializes rotation plans into on-disk key pairs. Key
// material generation is the only thing it does; all timing decisions have
// already been made by the planner.
type Generator struct {
	Store *KeyStore
	Perms PermPolicy
}

func NewGenerator(store *KeyStore) *Generator {
	return &Generator{Store: store, Perms: DefaultPermPolicy()}
}

func keyBits(alg uint8, size int) (int, error) {
	switch alg {
	case dns.ECDSAP256SHA256, dns.ED25519:
		return 256, nil
	case dns.ECDSAP384SHA384:
		return 384, nil
	case dns.RSASHA256, dns.RSASHA512:
		if size >= 512 && size <= 4096 {
			return size, nil
		}
		return 2048, nil
	}
	return 0, fmt.Errorf("no support for generating algorithm %s keys", dns.AlgorithmToString[alg])
}

func dnskeyFlags(kt KeyType) uint16 {
	if kt == TypeKSK {
		return 257 // ZONE + SEP
	}
	return 256 // ZONE
}

// CreateKey generates a new key pair according to the plan and writes the
// .key/.private files with the planned timestamps embedded. The new record
// is read back from disk so the caller sees exactly what a later invocation
// will see.
func (g *Generator) CreateKey(plan RotationPlan) (*KeyRecord, error) {
	bits, err := keyBits(plan.Algorithm, plan.KeySize)
	if err != nil {
		return nil, err
	}

	nkey := new(dns.DNSKEY)
	nkey.Hdr.Name = dns.Fqdn(plan.Zone)
	nkey.Hdr.Rrtype = dns.TypeDNSKEY
	nkey.Hdr.Class = dns.ClassINET
	nkey.Hdr.Ttl = 3600
	nkey.Flags = dnskeyFlags(plan.Type)
	nkey.Protocol = 3
	nkey.Algorithm = plan.Algorithm

	privkey, err := nkey.Generate(bits)
	if err != nil {
		return nil, fmt.Errorf("error from dnskey.Generate(%d): %v", bits, err)
	}

	keytag := nkey.KeyTag()
	base := filepath.Join(g.Store.Dir, KeyFileBase(plan.Zone, plan.Algorithm, keytag))
	if _, err := os.Stat(base + ".key"); err == nil {
		// Keytag collision with an existing key. Rare, and regenerating
		// produces fresh material with a new tag.
		return nil, fmt.Errorf("key %s already exists, please rerun", filepath.Base(base))
	}

	created := time.Now().UTC()
	if err := g.writeKeyFiles(base, nkey, privkey, plan, created); err != nil {
		return nil, err
	}

	if _, err := g.Perms.Apply(base + ".key"); err != nil {
		log.Printf("Warning: could not set permissions on %s.key: %v", base, err)
	}
	if _, err := g.Perms.Apply(base + ".private"); err != nil {
		log.Printf("Warning: could not set permissions on %s.private: %v", base, err)
	}

	kr, err := ReadKeyRecord(base + ".key")
	if err != nil {
		return nil, fmt.Errorf("error re-reading generated key %s: %v", filepath.Base(base), err)
	}
	if _, err := kr.ReadBindPrivateKey(); err != nil {
		return nil, err
	}
	return kr, nil
}

func typePhrase(kt KeyType) string {
	if kt == TypeKSK {
		return "key-signing"
	}
	return "zone-signing"
}

func (g *Generator) writeKeyFiles(base string, nkey *dns.DNSKEY, privkey crypto.PrivateKey,
	plan RotationPlan, created time.Time) error {

	timeFields := []struct {
		label string
		value time.Time
	}{
		{"Created", created},
		{"Publish", plan.Publish},
		{"Activate", plan.Activate},
		{"Inactive", plan.Inactive},
		{"Delete", plan.Delete},
	}

	pub := fmt.Sprintf("; This is a %s key, keyid %d, for %s\n", typePhrase(plan.Type), nkey.KeyTag(), plan.Zone)
	for _, f := range timeFields {
		if !f.value.IsZero() {
			pub += fmt.Sprintf("; %s: %s (%s)\n", f.label, FormatDNSTime(f.value),
				f.value.UTC().Format("Mon Jan _2 15:04:05 2006"))
		}
	}
	pub += nkey.String() + "\n"

	if err := os.WriteFile(base+".key", []byte(pub), 0644); err != nil {
		return fmt.Errorf("error writing public key file %s.key: %v", base, err)
	}

	priv := nkey.PrivateKeyString(privkey)
	for _, f := range timeFields {
		if !f.value.IsZero() {
			priv += fmt.Sprintf("%s: %s\n", f.label, FormatDNSTime(f.value))
		}
	}
	if err := os.WriteFile(base+".private", []byte(priv), 0600); err != nil {
		os.Remove(base + ".key")
		return fmt.Errorf("error writing private key file %s.private: %v", base, err)
	}
	return nil
}
