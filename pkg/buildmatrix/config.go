package buildmatrix

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is an AppVeyor-style build-matrix configuration. Unknown top-level
// keys are rejected at parse time.
type Config struct {
	Environment Environment `yaml:"environment"`
	Platform    Platforms   `yaml:"platform"`
	Install     Commands    `yaml:"install"`
	Build       BuildPhase  `yaml:"build"`
	TestScript  Commands    `yaml:"test_script"`
}

// Environment holds the variables shared by every job and the build matrix.
type Environment struct {
	Global EnvMap   `yaml:"global"`
	Matrix []EnvMap `yaml:"matrix"`
}

// EnvVar is one environment variable of a job.
type EnvVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// EnvMap is an ordered set of environment variables. Order follows the
// config file so overlays stay predictable.
type EnvMap []EnvVar

func (m *EnvMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return errors.Errorf("line %d: expected a map of environment variables", node.Line)
	}

	out := make(EnvMap, 0, len(node.Content)/2)

	for i := 0; i < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]

		if key.Kind != yaml.ScalarNode || value.Kind != yaml.ScalarNode {
			return errors.Errorf("line %d: environment variables must be scalars", key.Line)
		}

		if _, ok := out.Get(key.Value); ok {
			return errors.Wrapf(ErrDuplicateVariable, "%s on line %d", key.Value, key.Line)
		}

		out = append(out, EnvVar{Name: key.Value, Value: value.Value})
	}

	*m = out

	return nil
}

// Get returns the value of name.
func (m EnvMap) Get(name string) (string, bool) {
	for _, v := range m {
		if v.Name == name {
			return v.Value, true
		}
	}

	return "", false
}

// merge returns a copy of m with overlay applied on top: existing variables
// keep their position but take the overlay value, new ones are appended.
func (m EnvMap) merge(overlay EnvMap) EnvMap {
	out := make(EnvMap, len(m), len(m)+len(overlay))
	copy(out, m)

	for _, v := range overlay {
		out = out.set(v.Name, v.Value)
	}

	return out
}

// set returns m with name set to value, replacing in place when present.
func (m EnvMap) set(name, value string) EnvMap {
	for i, v := range m {
		if v.Name == name {
			m[i].Value = value

			return m
		}
	}

	return append(m, EnvVar{Name: name, Value: value})
}

// Platforms lists the build platforms. The config may give one scalar or a
// list.
type Platforms []string

func (p *Platforms) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*p = Platforms{node.Value}

		return nil
	case yaml.SequenceNode:
		out := make(Platforms, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return errors.Errorf("line %d: platform entries must be scalars", item.Line)
			}

			out = append(out, item.Value)
		}

		*p = out

		return nil
	default:
		return errors.Errorf("line %d: platform must be a scalar or a list", node.Line)
	}
}

// Command is one shell invocation of a phase.
type Command struct {
	// Line is handed to the shell as-is.
	Line string `json:"line"`
	// Kind is the marker the entry was written with, "cmd" or "sh", empty
	// for plain strings. All kinds run through the platform shell.
	Kind string `json:"kind,omitempty"`
}

// Commands is an ordered list of commands. Entries are either literal
// strings or single-key cmd:/sh: maps.
type Commands []Command

func (c *Commands) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return errors.Errorf("line %d: expected a command list", node.Line)
	}

	out := make(Commands, 0, len(node.Content))
	for _, item := range node.Content {
		cmd, err := parseCommand(item)
		if err != nil {
			return err
		}

		out = append(out, cmd)
	}

	*c = out

	return nil
}

func parseCommand(node *yaml.Node) (Command, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if strings.TrimSpace(node.Value) == "" {
			return Command{}, errors.Wrapf(ErrEmptyCommand, "line %d", node.Line)
		}

		return Command{Line: node.Value}, nil
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return Command{}, errors.Errorf("line %d: command maps must have exactly one key", node.Line)
		}

		key, value := node.Content[0], node.Content[1]
		if key.Kind != yaml.ScalarNode || value.Kind != yaml.ScalarNode {
			return Command{}, errors.Errorf("line %d: command maps must map a marker to a string", key.Line)
		}

		if key.Value != "cmd" && key.Value != "sh" {
			return Command{}, errors.Errorf("line %d: unknown command marker %q", key.Line, key.Value)
		}

		if strings.TrimSpace(value.Value) == "" {
			return Command{}, errors.Wrapf(ErrEmptyCommand, "line %d", value.Line)
		}

		return Command{Line: value.Value, Kind: key.Value}, nil
	default:
		return Command{}, errors.Errorf("line %d: commands must be strings or cmd/sh maps", node.Line)
	}
}

// BuildPhase is either switched off or a list of build commands.
type BuildPhase struct {
	// Off skips the build phase entirely.
	Off bool
	// Commands run when the phase is not off.
	Commands Commands
}

func (b *BuildPhase) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		switch strings.ToLower(node.Value) {
		case "off", "false", "no", "none":
			b.Off = true

			return nil
		default:
			return errors.Errorf("line %d: build must be off or a command list", node.Line)
		}
	}

	var cmds Commands
	err := node.Decode(&cmds)
	if err != nil {
		return err
	}

	b.Commands = cmds

	return nil
}

// Parse reads a config from r and validates it.
func Parse(r io.Reader) (*Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	cfg := &Config{}

	err := dec.Decode(cfg)
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyConfig
	}
	if err != nil {
		return nil, errors.Wrap(err, "unable to decode config")
	}

	err = cfg.validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load reads the config file at path.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open config %s", path)
	}
	defer file.Close()

	cfg, err := Parse(file)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse config %s", path)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Install) == 0 && len(c.Build.Commands) == 0 && len(c.TestScript) == 0 {
		return errors.Wrap(ErrEmptyConfig, "no install, build or test_script commands")
	}

	for i, row := range c.Environment.Matrix {
		if len(row) == 0 {
			return errors.Wrapf(ErrEmptyMatrixRow, "row %d", i)
		}
	}

	for i, platform := range c.Platform {
		if strings.TrimSpace(platform) == "" {
			return errors.Wrapf(ErrEmptyPlatform, "entry %d", i)
		}
	}

	return nil
}
