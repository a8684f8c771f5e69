package catalog

import "errors"

var ErrNotFound = errors.New("template not found")

// TemplateSpec is one catalog entry. The catalog is maintained by
// administrators and read-only to the orchestrator; an instance keeps
// whatever values were current when its create ran.
type TemplateSpec struct {
	Name          string            `yaml:"name" json:"name"`
	Image         string            `yaml:"image" json:"image"`
	Description   string            `yaml:"description,omitempty" json:"description,omitempty"`
	Ports         map[string]int    `yaml:"ports" json:"ports"`
	CpuLimit      float64           `yaml:"cpuLimit" json:"cpuLimit"`
	MemoryLimitMb int               `yaml:"memoryLimitMb" json:"memoryLimitMb"`
	Environment   map[string]string `yaml:"environment,omitempty" json:"environment,omitempty"`
	VolumeMounts  map[string]string `yaml:"volumeMounts,omitempty" json:"volumeMounts,omitempty"`
}

type catalogFile struct {
	Templates []TemplateSpec `yaml:"templates"`
}
