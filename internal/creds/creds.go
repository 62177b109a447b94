// Package creds provides SNMP credential records for v2c and v3.
package creds

import (
	"fmt"
	"slices"
)

// Version identifies the SNMP protocol version a credential applies to.
type Version int

const (
	// VersionV2c is SNMP v2c community-based authentication.
	VersionV2c Version = iota
	// VersionV3 is SNMP v3 user-based security.
	VersionV3
)

// Supported v3 authentication algorithms. The empty string means no
// authentication.
const (
	AuthNone = ""
	AuthMD5  = "md5"
	AuthSHA1 = "sha1"
)

// Supported v3 privacy algorithms. The empty string means no privacy.
const (
	PrivNone   = ""
	PrivDES    = "des"
	PrivAES128 = "aes-128"
)

var (
	supportedAuth = []string{AuthNone, AuthMD5, AuthSHA1}
	supportedPriv = []string{PrivNone, PrivDES, PrivAES128}
)

// Credential is an opaque credential for the transport collaborator. The
// set of implementations is closed: V2c and V3.
type Credential interface {
	// Version returns the SNMP protocol version the credential applies to.
	Version() Version

	// String renders the credential for logging. Passphrases are never
	// included.
	String() string
}

// V2c is an SNMP v2c community credential.
type V2c struct {
	Community string
}

// NewV2c creates a v2c community credential.
func NewV2c(community string) V2c {
	return V2c{Community: community}
}

// Version implements Credential.
func (V2c) Version() Version { return VersionV2c }

// String implements Credential.
func (c V2c) String() string {
	return fmt.Sprintf("SNMPv2c community: %s", c.Community)
}

// V3 is an SNMP v3 user-based credential.
type V3 struct {
	User           string
	Auth           string
	AuthPassphrase string
	Priv           string
	PrivPassphrase string
}

// NewV3 creates a v3 credential and validates it: the username must be
// non-empty, algorithms must come from the supported sets, and a non-none
// algorithm requires a non-empty passphrase.
func NewV3(user, auth, authPassphrase, priv, privPassphrase string) (V3, error) {
	cred := V3{
		User:           user,
		Auth:           auth,
		AuthPassphrase: authPassphrase,
		Priv:           priv,
		PrivPassphrase: privPassphrase,
	}

	if cred.User == "" {
		return V3{}, fmt.Errorf("username missing")
	}
	if !slices.Contains(supportedAuth, cred.Auth) {
		return V3{}, fmt.Errorf("unsupported auth algorithm %q (supported: %v)", cred.Auth, supportedAuth)
	}
	if !slices.Contains(supportedPriv, cred.Priv) {
		return V3{}, fmt.Errorf("unsupported priv algorithm %q (supported: %v)", cred.Priv, supportedPriv)
	}
	if cred.Auth != AuthNone && cred.AuthPassphrase == "" {
		return V3{}, fmt.Errorf("auth algorithm %s provided but no passphrase", cred.Auth)
	}
	if cred.Priv != PrivNone && cred.PrivPassphrase == "" {
		return V3{}, fmt.Errorf("priv algorithm %s provided but no passphrase", cred.Priv)
	}

	return cred, nil
}

// Version implements Credential.
func (V3) Version() Version { return VersionV3 }

// String implements Credential.
func (c V3) String() string {
	auth, priv := c.Auth, c.Priv
	if auth == AuthNone {
		auth = "none"
	}
	if priv == PrivNone {
		priv = "none"
	}
	return fmt.Sprintf("SNMPv3 user: %s auth: %s priv: %s", c.User, auth, priv)
}
