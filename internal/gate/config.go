package gate

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes yaml strings like "30m" into a time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Config is the fixed, enumerated job configuration the dispatcher runs.
// Jobs are declared here, not discovered at runtime, so a run's outcome is
// auditable and reproducible.
type Config struct {
	JobTimeout Duration  `yaml:"job_timeout,omitempty"`
	Jobs       []JobSpec `yaml:"jobs"`
}

// ParseConfig parses YAML content into a validated Config.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig reads the gate definition file and returns a validated Config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

func (c *Config) validate() error {
	if len(c.Jobs) == 0 {
		return fmt.Errorf("no jobs configured")
	}
	seen := make(map[string]bool)
	for _, job := range c.Jobs {
		if job.Name == "" {
			return fmt.Errorf("job with empty name")
		}
		if seen[job.Name] {
			return fmt.Errorf("duplicate job name: %s", job.Name)
		}
		seen[job.Name] = true

		switch job.Environment.Profile {
		case ProfileDefault, ProfileRestricted:
		case "":
			return fmt.Errorf("job %s: missing environment profile", job.Name)
		default:
			return fmt.Errorf("job %s: unknown profile %q", job.Name, job.Environment.Profile)
		}

		if len(job.Steps) == 0 {
			return fmt.Errorf("job %s: no steps", job.Name)
		}
		for _, step := range job.Steps {
			if step.Run == "" {
				return fmt.Errorf("job %s: step %q has no command", job.Name, step.Name)
			}
		}
	}
	return nil
}

// DefaultConfig enumerates the shipped gates: style (format + lint), test,
// and a restricted-profile build. The style checks are cheap and
// deterministic, so they get their own job for fast feedback; test and build
// stay separate jobs because a change can break the restricted build while
// tests compiled under the richer profile still pass.
func DefaultConfig() *Config {
	return &Config{
		JobTimeout: Duration(30 * time.Minute),
		Jobs: []JobSpec{
			{
				Name: "style",
				Environment: EnvSpec{
					Channel:    "stable",
					Components: []string{"formatter", "linter"},
					Profile:    ProfileDefault,
				},
				Steps: []Step{
					{
						Name:     "format",
						Run:      `test -z "$(gofmt -l .)"`,
						FailKind: KindFormatViolation,
					},
					{
						Name:     "lint",
						Run:      "go vet ./...",
						FailKind: KindLintViolation,
					},
				},
			},
			{
				Name: "test",
				Environment: EnvSpec{
					Channel: "stable",
					Profile: ProfileDefault,
				},
				Steps: []Step{
					{
						Name:     "unit-tests",
						Run:      "go test ./...",
						FailKind: KindTestFailure,
					},
				},
			},
			{
				Name: "build",
				Environment: EnvSpec{
					Channel: "stable",
					Profile: ProfileRestricted,
				},
				Steps: []Step{
					{
						Name:     "restricted-build",
						Run:      "CGO_ENABLED=0 go build ./...",
						FailKind: KindBuildFailure,
					},
				},
			},
		},
	}
}
