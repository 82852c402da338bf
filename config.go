package anoncreds

import (
	"strings"

	"github.com/go-errors/errors"
	"github.com/mitchellh/mapstructure"
	"github.com/privacybydesign/anoncreds/credkeys"
	"github.com/spf13/viper"
)

// MaxAccumulatorCapacity bounds the size of a revocation registry; its tails hold twice as
// many G2 points.
const MaxAccumulatorCapacity = 1 << 20

// Config holds the cryptographic parameters of credential definitions and presentations.
type Config struct {
	// ModulusBits is the size of the RSA modulus of issuer keys: 1024, 2048 or 4096.
	ModulusBits int `mapstructure:"modulusBits"`
	// AccumulatorCapacity is the number of indices of a revocation registry.
	AccumulatorCapacity uint32 `mapstructure:"accumulatorCapacity"`
	// PredicatePieceWidth is the number of bits of each piece of a predicate proof.
	PredicatePieceWidth uint `mapstructure:"predicatePieceWidth"`
}

func DefaultConfig() *Config {
	return &Config{
		ModulusBits:         2048,
		AccumulatorCapacity: 100,
		PredicatePieceWidth: 2,
	}
}

func (c *Config) Validate() error {
	if _, ok := credkeys.DefaultSystemParameters[c.ModulusBits]; !ok {
		return errors.Errorf("unsupported modulus size %d, supported are %v", c.ModulusBits, credkeys.DefaultKeyLengths)
	}
	if c.AccumulatorCapacity == 0 || c.AccumulatorCapacity > MaxAccumulatorCapacity {
		return errors.Errorf("accumulator capacity must lie in [1, %d]", MaxAccumulatorCapacity)
	}
	if c.PredicatePieceWidth == 0 || c.PredicatePieceWidth > 8 {
		return errors.New("predicate piece width must lie in [1, 8]")
	}
	return nil
}

// SystemParameters returns the system parameters for the configured modulus size.
func (c *Config) SystemParameters() (*credkeys.SystemParameters, error) {
	params, ok := credkeys.DefaultSystemParameters[c.ModulusBits]
	if !ok {
		return nil, errors.Errorf("unsupported modulus size %d", c.ModulusBits)
	}
	return params, nil
}

// ParseConfig decodes a configuration from a generic map, such as one parsed from JSON or
// YAML. Missing options keep their default value; unknown options are an error.
func ParseConfig(input map[string]interface{}) (*Config, error) {
	cfg := DefaultConfig()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           cfg,
	})
	if err != nil {
		return nil, err
	}
	if err = decoder.Decode(input); err != nil {
		return nil, errors.WrapPrefix(err, "failed to parse configuration", 0)
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads a configuration file in any format viper supports. Options can be
// overridden by environment variables such as ANONCREDS_MODULUSBITS.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("anoncreds")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	def := DefaultConfig()
	v.SetDefault("modulusBits", def.ModulusBits)
	v.SetDefault("accumulatorCapacity", def.AccumulatorCapacity)
	v.SetDefault("predicatePieceWidth", def.PredicatePieceWidth)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.WrapPrefix(err, "failed to read configuration", 0)
	}
	Logger.Debugf("using configuration file %s", v.ConfigFileUsed())

	cfg, err := ParseConfig(v.AllSettings())
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
