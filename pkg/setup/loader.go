package setup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/kernel/walletcache/pkg/wallets"
)

// Definition is the declarative content of a setup file.
type Definition struct {
	Password    string     `yaml:"password" toml:"password" json:"password"`
	ProfileName string     `yaml:"profileName" toml:"profileName" json:"profileName"`
	SlowMo      float64    `yaml:"slowMo" toml:"slowMo" json:"slowMo"`
	Onboarding  Onboarding `yaml:"onboarding" toml:"onboarding" json:"onboarding"`
}

// Onboarding selects the onboarding flow of a setup file.
type Onboarding struct {
	Mode                 wallets.OnboardingMode `yaml:"mode" toml:"mode" json:"mode"`
	SecretRecoveryPhrase string                 `yaml:"secretRecoveryPhrase" toml:"secretRecoveryPhrase" json:"secretRecoveryPhrase"`
	PrivateKey           string                 `yaml:"privateKey" toml:"privateKey" json:"privateKey"`

	// Handler names a Go setup registered with Register.
	Handler string `yaml:"handler" toml:"handler" json:"handler"`
}

// Config returns the per-setup settings of the definition.
func (d Definition) Config() Config {
	return Config{ProfileName: d.ProfileName, SlowMo: d.SlowMo}
}

// Decode parses a setup file. ext is the file extension without the dot.
// Unknown keys are rejected so typos do not silently fall back to defaults.
func Decode(ext string, data []byte) (Definition, error) {
	var def Definition
	switch ext {
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil && !errors.Is(err, io.EOF) {
			return def, err
		}
	case "toml":
		md, err := toml.Decode(string(data), &def)
		if err != nil {
			return def, err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return def, fmt.Errorf("unknown key %q", undecoded[0].String())
		}
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&def); err != nil {
			return def, err
		}
	default:
		return def, fmt.Errorf("unsupported setup file format %q", ext)
	}
	return def, nil
}
