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

// package config holds the harness configuration: where the iRODS server
// under test is, how to reach its administrator, and how to control it.

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/wtsi-hgi/itest/ienv"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigKey is the environment variable naming a config file.
	ConfigKey = "ITEST_CONFIG"

	envPrefix = "ITEST_"

	defaultAdminPassword = "rods"
	defaultIRODSDir      = "/var/lib/irods"
	serverConfigDir      = "/etc/irods"
	serverConfigFile     = "server_config.json"
	defaultAuthUser      = "irodsauthuser"
	defaultAuthPassword  = ";=iamnotasecret"
	defaultValidator     = "iRODS/scripts/python/validate_json.py"
)

var ErrUnknownFormat = errors.New("unknown config file format")

// Controller holds the command lines used to stop, start and restart the
// server under test. Empty Restart means stop then start.
type Controller struct {
	Start   string `json:"start"   toml:"start"   yaml:"start"`
	Stop    string `json:"stop"    toml:"stop"    yaml:"stop"`
	Restart string `json:"restart" toml:"restart" yaml:"restart"`
}

// Config is the harness configuration.
type Config struct {
	// ICATHostname is the host sessions connect to; defaults to this host.
	ICATHostname string `json:"icat_hostname" toml:"icat_hostname" yaml:"icat_hostname"`

	// AdminPassword is the password of the pre-existing administrator.
	AdminPassword string `json:"preexisting_admin_password" toml:"preexisting_admin_password" yaml:"preexisting_admin_password"` //nolint:lll

	UseSSL bool `json:"use_ssl" toml:"use_ssl" yaml:"use_ssl"`

	// AuthUser and AuthPassword are an OS account for PAM tests.
	AuthUser     string `json:"irods_authuser_name"     toml:"irods_authuser_name"     yaml:"irods_authuser_name"`
	AuthPassword string `json:"irods_authuser_password" toml:"irods_authuser_password" yaml:"irods_authuser_password"`

	// IRODSDir is the server's top level directory.
	IRODSDir string `json:"irods_dir" toml:"irods_dir" yaml:"irods_dir"`

	// ServerLogDir holds rodsLog* and reLog*; defaults to IRODSDir/server/log.
	ServerLogDir string `json:"server_log_dir" toml:"server_log_dir" yaml:"server_log_dir"`

	// ServerConfigDir holds server_config.json; defaults to /etc/irods if
	// that has a server_config.json, otherwise IRODSDir/config.
	ServerConfigDir string `json:"server_config_dir" toml:"server_config_dir" yaml:"server_config_dir"`

	// DiagnosticLog is where commands are logged; defaults to the newest
	// server log.
	DiagnosticLog string `json:"diagnostic_log" toml:"diagnostic_log" yaml:"diagnostic_log"`

	// ServiceAccountDir holds the service account's environment files;
	// defaults to ~/.irods.
	ServiceAccountDir string `json:"service_account_dir" toml:"service_account_dir" yaml:"service_account_dir"`

	Port            int    `json:"port"             toml:"port"             yaml:"port"`
	DefaultResource string `json:"default_resource" toml:"default_resource" yaml:"default_resource"`
	CACertificate   string `json:"ca_certificate"   toml:"ca_certificate"   yaml:"ca_certificate"`

	// Validator is the JSON validation script; relative paths are relative
	// to IRODSDir.
	Validator string `json:"validator" toml:"validator" yaml:"validator"`

	Controller Controller `json:"controller" toml:"controller" yaml:"controller"`
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	c := &Config{}
	c.fillDefaults()

	return c
}

// Load reads the config file at path, choosing the format by extension:
// .json, .toml, .yaml or .yml. Unset values get defaults.
func Load(path string) (*Config, error) {
	c, err := load(path)
	if err != nil {
		return nil, err
	}

	c.fillDefaults()

	return c, nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error opening itest config: %w", err)
	}

	c := &Config{}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, c)
	case ".toml":
		err = toml.Unmarshal(data, c)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}

	if err != nil {
		return nil, fmt.Errorf("error parsing itest config: %w", err)
	}

	return c, nil
}

// FromEnv loads the file named by ITEST_CONFIG, if set, then applies any
// ITEST_<FIELD> overrides, eg. ITEST_ICAT_HOSTNAME or ITEST_USE_SSL.
func FromEnv() (*Config, error) {
	c := &Config{}

	if path := os.Getenv(ConfigKey); path != "" {
		var err error

		c, err = load(path)
		if err != nil {
			return nil, err
		}
	}

	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	c.fillDefaults()

	return c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"ICAT_HOSTNAME":              &c.ICATHostname,
		"PREEXISTING_ADMIN_PASSWORD": &c.AdminPassword,
		"IRODS_AUTHUSER_NAME":        &c.AuthUser,
		"IRODS_AUTHUSER_PASSWORD":    &c.AuthPassword,
		"IRODS_DIR":                  &c.IRODSDir,
		"SERVER_LOG_DIR":             &c.ServerLogDir,
		"SERVER_CONFIG_DIR":          &c.ServerConfigDir,
		"DIAGNOSTIC_LOG":             &c.DiagnosticLog,
		"SERVICE_ACCOUNT_DIR":        &c.ServiceAccountDir,
		"DEFAULT_RESOURCE":           &c.DefaultResource,
		"CA_CERTIFICATE":             &c.CACertificate,
		"VALIDATOR":                  &c.Validator,
	}

	for key, field := range strs {
		if v, ok := lookup(envPrefix + key); ok {
			*field = v
		}
	}

	if v, ok := lookup(envPrefix + "USE_SSL"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("bad %sUSE_SSL: %w", envPrefix, err)
		}

		c.UseSSL = b
	}

	if v, ok := lookup(envPrefix + "PORT"); ok {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("bad %sPORT: %w", envPrefix, err)
		}

		c.Port = p
	}

	return nil
}

func (c *Config) fillDefaults() {
	if c.ICATHostname == "" {
		c.ICATHostname = Hostname()
	}

	setDefault(&c.AdminPassword, defaultAdminPassword)
	setDefault(&c.AuthUser, defaultAuthUser)
	setDefault(&c.AuthPassword, defaultAuthPassword)
	setDefault(&c.IRODSDir, defaultIRODSDir)
	setDefault(&c.ServerLogDir, filepath.Join(c.IRODSDir, "server", "log"))
	setDefault(&c.DefaultResource, ienv.DefaultResource)
	setDefault(&c.CACertificate, ienv.DefaultCACert)
	setDefault(&c.Validator, defaultValidator)

	if c.ServerConfigDir == "" {
		c.ServerConfigDir = filepath.Join(c.IRODSDir, "config")

		if _, err := os.Stat(filepath.Join(serverConfigDir, serverConfigFile)); err == nil {
			c.ServerConfigDir = serverConfigDir
		}
	}

	if c.ServiceAccountDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.ServiceAccountDir = filepath.Join(home, ".irods")
		}
	}

	if c.Port == 0 {
		c.Port = ienv.DefaultPort
	}

	setDefault(&c.Controller.Start, filepath.Join(c.IRODSDir, "iRODS", "irodsctl")+" graceful_start")
	setDefault(&c.Controller.Stop, "irods-grid shutdown --hosts "+c.ICATHostname)
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

// Hostname returns the name of this host, or "localhost" if it can't be
// determined.
func Hostname() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "localhost"
	}

	return host
}

// ValidatorPath returns the absolute path of the JSON validation script.
func (c *Config) ValidatorPath() string {
	if filepath.IsAbs(c.Validator) {
		return c.Validator
	}

	return filepath.Join(c.IRODSDir, c.Validator)
}

// EnvOptions returns the options for making session environments.
func (c *Config) EnvOptions() ienv.EnvOptions {
	return ienv.EnvOptions{
		Port:            c.Port,
		DefaultResource: c.DefaultResource,
		UseSSL:          c.UseSSL,
		CACertificate:   c.CACertificate,
	}
}

// ServiceAccount returns a provider of the service account's environment.
func (c *Config) ServiceAccount() *ienv.HomeProvider {
	return &ienv.HomeProvider{Dir: c.ServiceAccountDir}
}
