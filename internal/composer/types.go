package composer

// Canonical service keys.
const (
	KeyImage         = "image"
	KeyHostname      = "hostname"
	KeyContainerName = "containerName"
	KeyEnvFiles      = "envFiles"
	KeyRestart       = "restart"
	KeyLogging       = "logging"
	KeyStdinOpen     = "stdinOpen"
	KeyTTY           = "tty"

	// KeyFragments lists the fragments a service merges in.
	KeyFragments = "fragments"
)

// keyAliases maps docker-compose spellings onto canonical keys.
var keyAliases = map[string]string{
	"container_name": KeyContainerName,
	"env_file":       KeyEnvFiles,
	"stdin_open":     KeyStdinOpen,
	"fragmentRefs":   KeyFragments,
}

// Fragment is a named, reusable block of service configuration.
type Fragment map[string]any

// ServiceOverride is the service-specific configuration. Its values take
// precedence over everything contributed by fragments.
type ServiceOverride struct {
	// Name is the service name.
	Name string

	// Fragments lists fragment names to merge, in order.
	Fragments []string

	// Values holds the service's own keys.
	Values map[string]any
}

// Document is a loaded composition input.
type Document struct {
	// Fragments maps fragment name to its contents.
	Fragments map[string]Fragment

	// FragmentOrder lists fragment names in declaration order.
	FragmentOrder []string

	// Services lists service overrides in declaration order.
	Services []ServiceOverride
}

// Logging is the log driver configuration of a resolved service.
type Logging struct {
	Driver  string            `yaml:"driver,omitempty" json:"driver,omitempty"`
	Options map[string]string `yaml:"options,omitempty" json:"options,omitempty"`
}

// ResolvedService is a fully merged, variable-substituted service descriptor.
type ResolvedService struct {
	// Name is the service name. It is not part of the merged mapping.
	Name string `yaml:"-" json:"-"`

	Image         string   `yaml:"image" json:"image"`
	Hostname      string   `yaml:"hostname,omitempty" json:"hostname,omitempty"`
	ContainerName string   `yaml:"containerName,omitempty" json:"containerName,omitempty"`
	EnvFiles      []string `yaml:"envFiles,omitempty" json:"envFiles,omitempty"`
	Restart       string   `yaml:"restart,omitempty" json:"restart,omitempty"`
	Logging       *Logging `yaml:"logging,omitempty" json:"logging,omitempty"`
	StdinOpen     bool     `yaml:"stdinOpen" json:"stdinOpen"`
	Tty           bool     `yaml:"tty" json:"tty"`
}
