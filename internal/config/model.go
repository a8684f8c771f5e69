package config

type Config struct {
	Listen      string `yaml:"listen"`
	NatsUrl     string `yaml:"natsUrl"`
	DataDir     string `yaml:"dataDir"`
	CatalogPath string `yaml:"catalogPath"`
	EngineHost  string `yaml:"engineHost,omitempty"`

	PortRange PortRange `yaml:"portRange"`

	Workers     int         `yaml:"workers"`
	CreateRetry CreateRetry `yaml:"createRetry"`

	Users []User `yaml:"users"`
}

type PortRange struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

type CreateRetry struct {
	Attempts       int `yaml:"attempts"`
	BackoffSeconds int `yaml:"backoffSeconds"`
}

// User entries seed the user store at boot. Authentication itself is
// handled upstream; the orchestrator only needs identity and quota.
type User struct {
	Id           string `yaml:"id"`
	Username     string `yaml:"username"`
	Role         string `yaml:"role"`
	MaxInstances int    `yaml:"maxInstances"`
}
