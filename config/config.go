/*Package config loads flipperctl's YAML configuration the way
cmd/multiserver's setupconfig/mkconf/printconf trio does: defaults are
populated from Default()'s Config struct via koanf's structs provider,
then overridden by whatever flipperctl.yml on disk provides.
*/
package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	yamlv2 "gopkg.in/yaml.v2"

	"github.com/nicholastmosher/flipper/usbtransport"
)

// FileName is the default config file name flipperctl looks for in the
// working directory.
const FileName = "flipperctl.yml"

// Config holds every tunable flipperctl exposes on the command line.
type Config struct {
	// VendorID is the USB vendor ID to scan for, as a 16-bit hex value.
	VendorID uint16 `koanf:"vendor_id" yaml:"vendor_id"`

	// DiscoveryTimeout bounds WaitForDevice's exponential backoff.
	DiscoveryTimeout time.Duration `koanf:"discovery_timeout" yaml:"discovery_timeout"`

	// TransportTimeout bounds every individual bulk transfer.
	TransportTimeout time.Duration `koanf:"transport_timeout" yaml:"transport_timeout"`

	// HTTPAddr is the address fmrhttp listens on, if enabled.
	HTTPAddr string `koanf:"http_addr" yaml:"http_addr"`

	// ATMEGAModules overrides the default module routing table.
	ATMEGAModules []string `koanf:"atmega_modules" yaml:"atmega_modules"`
}

// ATMEGAModuleSet builds the map carbon.New expects from ATMEGAModules.
func (c Config) ATMEGAModuleSet() map[string]bool {
	m := make(map[string]bool, len(c.ATMEGAModules))
	for _, name := range c.ATMEGAModules {
		m[name] = true
	}
	return m
}

// Default returns the baseline configuration used when no flipperctl.yml
// is present.
func Default() Config {
	return Config{
		VendorID:         uint16(usbtransport.DefaultVendorID),
		DiscoveryTimeout: 3 * time.Second,
		TransportTimeout: usbtransport.DefaultTimeout,
		HTTPAddr:         ":8080",
		ATMEGAModules:    []string{"led"},
	}
}

// Load populates k with Default()'s values, then overlays path if it
// exists. A missing file is not an error; any other read or parse error
// is returned.
func Load(k *koanf.Koanf, path string) error {
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return err
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !strings.Contains(err.Error(), "no such") {
			return err
		}
	}
	return nil
}

// Write renders cfg as YAML to path, for the mkconf command.
func Write(cfg Config, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteTo(cfg, f)
}

// WriteTo renders cfg as YAML to w, for the conf command's stdout dump.
func WriteTo(cfg Config, w io.Writer) error {
	return yamlv2.NewEncoder(w).Encode(cfg)
}
