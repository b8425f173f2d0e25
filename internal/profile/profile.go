package profile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"neurite/internal/cable"
	"neurite/internal/hh"
	"neurite/internal/model"
)

// StimulusSpec describes a rectangular current injection: Amplitude nA into
// one compartment between Start and Stop milliseconds.
type StimulusSpec struct {
	Compartment int     `yaml:"compartment"`
	Amplitude   float64 `yaml:"amplitude"`
	Start       float64 `yaml:"start"`
	Stop        float64 `yaml:"stop"`
}

// Func lowers the spec to the engine's stimulus callback. A zero amplitude
// spec lowers to nil so the engine skips the callback entirely.
func (s StimulusSpec) Func() hh.Stimulus {
	if s.Amplitude == 0 {
		return nil
	}
	return func(compartment int, t float64) float64 {
		if compartment != s.Compartment {
			return 0
		}
		if t < s.Start || t >= s.Stop {
			return 0
		}
		return s.Amplitude
	}
}

// Profile bundles the caller-facing configuration surface for one
// simulation: membrane constants, discretization, integration, stimulus.
type Profile struct {
	Name             string       `yaml:"name"`
	Ra               float64      `yaml:"ra"`
	Cm               float64      `yaml:"cm"`
	Freq             float64      `yaml:"freq"`
	DLambda          float64      `yaml:"d_lambda"`
	Dt               float64      `yaml:"dt"`
	Duration         float64      `yaml:"duration"`
	Method           string       `yaml:"method"`
	Channel          string       `yaml:"channel"`
	RepairZeroRadius bool         `yaml:"repair_zero_radius"`
	SampleEvery      int          `yaml:"sample_every"`
	RecordGating     bool         `yaml:"record_gating"`
	Stimulus         StimulusSpec `yaml:"stimulus"`
}

// Default mirrors cable.DefaultParams plus a conservative integration setup.
func Default() Profile {
	return Profile{
		Name:     "default",
		Ra:       35.4,
		Cm:       1.0,
		Freq:     100.0,
		DLambda:  0.1,
		Dt:       0.0001,
		Duration: 5.0,
		Method:   "exponential",
		Channel:  "hh",
	}
}

func (p Profile) Validate() error {
	switch {
	case p.Ra <= 0:
		return fmt.Errorf("profile %s: ra must be positive", p.Name)
	case p.Cm <= 0:
		return fmt.Errorf("profile %s: cm must be positive", p.Name)
	case p.Freq <= 0:
		return fmt.Errorf("profile %s: freq must be positive", p.Name)
	case p.DLambda <= 0:
		return fmt.Errorf("profile %s: d_lambda must be positive", p.Name)
	case p.Dt <= 0:
		return fmt.Errorf("profile %s: dt must be positive", p.Name)
	case p.Duration < p.Dt:
		return fmt.Errorf("profile %s: duration must cover at least one step", p.Name)
	}
	if _, err := p.method(); err != nil {
		return err
	}
	if _, err := p.channel(); err != nil {
		return err
	}
	return nil
}

// CableParams lowers the profile to discretizer parameters.
func (p Profile) CableParams() cable.Params {
	return cable.Params{
		Membrane: model.Membrane{Ra: p.Ra, Cm: p.Cm},
		Freq:     p.Freq,
		DLambda:  p.DLambda,
	}
}

// EngineConfig lowers the profile to a dynamics engine configuration.
func (p Profile) EngineConfig() (hh.Config, error) {
	method, err := p.method()
	if err != nil {
		return hh.Config{}, err
	}
	ch, err := p.channel()
	if err != nil {
		return hh.Config{}, err
	}
	return hh.Config{
		Dt:           p.Dt,
		Duration:     p.Duration,
		Stimulus:     p.Stimulus.Func(),
		Method:       method,
		Channel:      &ch,
		SampleEvery:  p.SampleEvery,
		RecordGating: p.RecordGating,
	}, nil
}

func (p Profile) method() (hh.Method, error) {
	switch p.Method {
	case "", "exponential":
		return hh.MethodExponential, nil
	case "euler":
		return hh.MethodEuler, nil
	default:
		return 0, fmt.Errorf("profile %s: unknown method %q", p.Name, p.Method)
	}
}

func (p Profile) channel() (hh.Channel, error) {
	switch p.Channel {
	case "", "hh":
		return hh.DefaultChannel(), nil
	case "passive":
		def := hh.DefaultChannel()
		return hh.PassiveChannel(def.GL, def.EL), nil
	default:
		return hh.Channel{}, fmt.Errorf("profile %s: unknown channel %q", p.Name, p.Channel)
	}
}

type fileFormat struct {
	Profiles []Profile `yaml:"profiles"`
}

// Load reads a YAML profile file and returns its profiles keyed by name.
// Unset numeric fields inherit the defaults.
func Load(path string) (map[string]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML profile data.
func Parse(data []byte) (map[string]Profile, error) {
	var file fileFormat
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("profile: decode: %w", err)
	}

	profiles := make(map[string]Profile, len(file.Profiles))
	for _, p := range file.Profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("profile: every profile needs a name")
		}
		applyDefaults(&p)
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := profiles[p.Name]; dup {
			return nil, fmt.Errorf("profile: duplicate name %q", p.Name)
		}
		profiles[p.Name] = p
	}
	return profiles, nil
}

func applyDefaults(p *Profile) {
	def := Default()
	if p.Ra == 0 {
		p.Ra = def.Ra
	}
	if p.Cm == 0 {
		p.Cm = def.Cm
	}
	if p.Freq == 0 {
		p.Freq = def.Freq
	}
	if p.DLambda == 0 {
		p.DLambda = def.DLambda
	}
	if p.Dt == 0 {
		p.Dt = def.Dt
	}
	if p.Duration == 0 {
		p.Duration = def.Duration
	}
}
