package ir

import "time"

const Version = "1.0"

// SeverityWarning is the only severity the analyzer emits.
const SeverityWarning = "WARNING"

type Run struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Source    string    `json:"source,omitempty"`
	IRVersion string    `json:"ir_version,omitempty"`

	Context  Context   `json:"context"`
	Files    []File    `json:"files"`
	Findings []Finding `json:"findings,omitempty"`
}

type Context struct {
	DisabledRules      []string `json:"disabled_rules,omitempty"`
	PluginManagerBases []string `json:"plugin_manager_bases,omitempty"`
	Baseline           string   `json:"baseline,omitempty"`
	BaselineIgnored    int      `json:"baseline_ignored,omitempty"`
	Waived             int      `json:"waived,omitempty"`
}

type File struct {
	Path      string  `json:"path"`
	Hash      string  `json:"hash,omitempty"`
	Namespace string  `json:"namespace,omitempty"`
	Classes   []Class `json:"classes,omitempty"`
}

type ClassKind string

const (
	KindClass     ClassKind = "class"
	KindInterface ClassKind = "interface"
	KindTrait     ClassKind = "trait"
)

type Class struct {
	Name       string    `json:"name"` // fully qualified, no leading backslash
	Kind       ClassKind `json:"kind"`
	Abstract   bool      `json:"abstract,omitempty"`
	Anonymous  bool      `json:"anonymous,omitempty"`
	Extends    string    `json:"extends,omitempty"`
	Implements []string  `json:"implements,omitempty"` // parent interfaces for KindInterface
	Line       int       `json:"line"`

	// Resolved by the host engine across all parsed files.
	Ancestors  []string `json:"ancestors,omitempty"`
	Interfaces []string `json:"interfaces,omitempty"`

	Methods []Method `json:"methods,omitempty"`
}

type Method struct {
	Name     string `json:"name"`
	Line     int    `json:"line"`
	Abstract bool   `json:"abstract,omitempty"`
	HasBody  bool   `json:"has_body"`
	Body     []Stmt `json:"-"`
}

// ClassDescriptor is the read-only view of a class's type relationships
// handed to rules.
type ClassDescriptor struct {
	Name        string
	Ancestors   []string
	Interfaces  []string
	IsInterface bool
	IsAnonymous bool
}

func (c *Class) Descriptor() *ClassDescriptor {
	return &ClassDescriptor{
		Name:        c.Name,
		Ancestors:   c.Ancestors,
		Interfaces:  c.Interfaces,
		IsInterface: c.Kind == KindInterface,
		IsAnonymous: c.Anonymous,
	}
}

type Finding struct {
	ID       string         `json:"id"`
	File     string         `json:"file"`
	Line     int            `json:"line,omitempty"`
	Class    string         `json:"class,omitempty"`
	Method   string         `json:"method,omitempty"`
	RuleID   string         `json:"rule_id"`
	Severity string         `json:"severity"`
	Message  string         `json:"message"`
	Evidence string         `json:"evidence,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
