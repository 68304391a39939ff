/*******************************************************************************
 * Copyright (c) 2026 Genome Research Ltd.
 *
 * Author: Sendu Bala <sb10@sanger.ac.uk>
 *
 * Permission is hereby granted, free of charge, to any person obtaining
 * a copy of this software and associated documentation files (the
 * "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish,
 * distribute, sublicense, and/or sell copies of the Software, and to
 * permit persons to whom the Software is furnished to do so, subject to
 * the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
 * EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
 * MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY
 * CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT,
 * TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 ******************************************************************************/

// package ienv handles the iRODS client environment: the settings an
// iCommand reads to know where to connect and as whom, and their on-disk
// encodings.

package ienv

import (
	"fmt"
	"maps"
	"path"
	"sort"
	"strings"
)

// Setting names used by the harness.
const (
	KeyHost                  = "irods_host"
	KeyPort                  = "irods_port"
	KeyDefaultResource       = "irods_default_resource"
	KeyHome                  = "irods_home"
	KeyCwd                   = "irods_cwd"
	KeyUserName              = "irods_user_name"
	KeyZoneName              = "irods_zone_name"
	KeyNegotiation           = "irods_client_server_negotiation"
	KeyPolicy                = "irods_client_server_policy"
	KeySaltSize              = "irods_encryption_salt_size"
	KeyHashRounds            = "irods_encryption_num_hash_rounds"
	KeyAlgorithm             = "irods_encryption_algorithm"
	KeyHashScheme            = "irods_default_hash_scheme"
	KeyMatchHashPolicy       = "irods_match_hash_policy"
	KeyAuthScheme            = "irods_authentication_scheme"
	KeySSLVerifyServer       = "irods_ssl_verify_server"
	KeySSLCACertificateFile  = "irods_ssl_ca_certificate_file"
	KeySSLCertificateChain   = "irods_ssl_certificate_chain_file"
	KeySSLCertificateKeyFile = "irods_ssl_certificate_key_file"
	KeySSLDHParamsFile       = "irods_ssl_dh_params_file"
)

const (
	DefaultPort     = 1247
	DefaultResource = "demoResc"
	DefaultCACert   = "/etc/irods/server.crt"

	policyRefuse  = "CS_NEG_REFUSE"
	policyRequire = "CS_NEG_REQUIRE"
)

// legacyNames maps each modern setting name to its pre-4.1 .irodsEnv name.
var legacyNames = map[string]string{ //nolint:gochecknoglobals
	KeyHost:            "irodsHost",
	KeyPort:            "irodsPort",
	KeyDefaultResource: "irodsDefResource",
	KeyHome:            "irodsHome",
	KeyCwd:             "irodsCwd",
	KeyUserName:        "irodsUserName",
	KeyZoneName:        "irodsZone",
	KeyNegotiation:     "irodsClientServerNegotiation",
	KeyPolicy:          "irodsClientServerPolicy",
	KeySaltSize:        "irodsEncryptionSaltSize",
	KeyHashRounds:      "irodsEncryptionNumHashRounds",
	KeyAlgorithm:       "irodsEncryptionAlgorithm",
	KeyHashScheme:      "irodsDefaultHashScheme",
	KeyMatchHashPolicy: "irodsMatchHashPolicy",
}

var modernNames = reverse(legacyNames) //nolint:gochecknoglobals

func reverse(m map[string]string) map[string]string {
	r := make(map[string]string, len(m))

	for k, v := range m {
		r[v] = k
	}

	return r
}

// LegacyName returns the .irodsEnv name for the given modern setting name.
func LegacyName(key string) (string, bool) {
	name, ok := legacyNames[key]

	return name, ok
}

// ModernName returns the irods_environment.json name for the given legacy
// setting name.
func ModernName(legacy string) (string, bool) {
	name, ok := modernNames[legacy]

	return name, ok
}

// Config is an iRODS client environment, keyed on modern setting names.
// Values are strings, ints, bools or floats.
type Config map[string]any

// Clone returns an independent copy of c.
func (c Config) Clone() Config {
	return maps.Clone(c)
}

// Update sets every setting in other on c, overwriting existing values.
func (c Config) Update(other Config) {
	maps.Copy(c, other)
}

// Keys returns c's setting names in sorted order.
func (c Config) Keys() []string {
	keys := make([]string, 0, len(c))

	for k := range c {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// String returns the given setting as a string, with any surrounding single
// quotes removed. Missing settings give "".
func (c Config) String(key string) string {
	v, ok := c[key]
	if !ok || v == nil {
		return ""
	}

	return strings.Trim(fmt.Sprint(v), "'")
}

// UserName returns the irods_user_name setting.
func (c Config) UserName() string {
	return c.String(KeyUserName)
}

// ZoneName returns the irods_zone_name setting.
func (c Config) ZoneName() string {
	return c.String(KeyZoneName)
}

// DefaultResource returns the irods_default_resource setting.
func (c Config) DefaultResource() string {
	return c.String(KeyDefaultResource)
}

// HomeCollection returns /zone/home/user for the given user and zone.
func HomeCollection(zone, user string) string {
	return path.Join("/", zone, "home", user)
}

// EnvOptions alter the environment made by NewEnvironment.
type EnvOptions struct {
	Port            int
	DefaultResource string
	UseSSL          bool
	CACertificate   string
}

// NewEnvironment returns the environment a test user should use to connect to
// the given host and zone. Zero-valued options get defaults.
func NewEnvironment(user, host, zone string, opts EnvOptions) Config {
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}

	if opts.DefaultResource == "" {
		opts.DefaultResource = DefaultResource
	}

	home := HomeCollection(zone, user)

	cfg := Config{
		KeyHost:            host,
		KeyPort:            opts.Port,
		KeyDefaultResource: opts.DefaultResource,
		KeyHome:            home,
		KeyCwd:             home,
		KeyUserName:        user,
		KeyZoneName:        zone,
		KeyNegotiation:     "request_server_negotiation",
		KeyPolicy:          policyRefuse,
		KeySaltSize:        8,  //nolint:mnd
		KeyHashRounds:      16, //nolint:mnd
		KeyAlgorithm:       "AES-256-CBC",
		KeyHashScheme:      "SHA256",
	}

	if opts.UseSSL {
		if opts.CACertificate == "" {
			opts.CACertificate = DefaultCACert
		}

		cfg[KeyPolicy] = policyRequire
		cfg[KeySSLVerifyServer] = "cert"
		cfg[KeySSLCACertificateFile] = opts.CACertificate
	}

	return cfg
}

// SSLClientEnvironment returns the settings a client needs to require SSL
// with the given key, certificate chain and DH parameters. ca defaults to the
// chain file. Server verification is turned off, since the certificates are
// expected to be self-signed.
func SSLClientEnvironment(key, chain, dhparams, ca string) Config {
	if ca == "" {
		ca = chain
	}

	return Config{
		KeyNegotiation:           "request_server_negotiation",
		KeyPolicy:                policyRequire,
		KeySSLCertificateChain:   chain,
		KeySSLCertificateKeyFile: key,
		KeySSLDHParamsFile:       dhparams,
		KeySSLCACertificateFile:  ca,
		KeySSLVerifyServer:       "none",
	}
}
