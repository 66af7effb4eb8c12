package schemafile

// Document is one schema file. Fields is the ordered descriptor tree.
type Document struct {
	ID     string     `json:"id" yaml:"id"`
	Title  string     `json:"title,omitempty" yaml:"title,omitempty"`
	Fields []NodeSpec `json:"fields" yaml:"fields"`

	// Source is the file the document was read from.
	Source string `json:"-" yaml:"-"`
}

// NodeSpec is either a leaf (Name set) or a group (Group set).
type NodeSpec struct {
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Kind    string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Label   string `json:"label,omitempty" yaml:"label,omitempty"`
	Default any    `json:"default,omitempty" yaml:"default,omitempty"`

	// Rule strings, see package visibility/expr.
	Visible  string `json:"visible,omitempty" yaml:"visible,omitempty"`
	Disabled string `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Readonly string `json:"readonly,omitempty" yaml:"readonly,omitempty"`

	Validate  *ValidateSpec `json:"validate,omitempty" yaml:"validate,omitempty"`
	Transform []string      `json:"transform,omitempty" yaml:"transform,omitempty"`
	Debounce  *DebounceSpec `json:"debounce,omitempty" yaml:"debounce,omitempty"`
	Immediate bool          `json:"immediate,omitempty" yaml:"immediate,omitempty"`
	Adapter   string        `json:"adapter,omitempty" yaml:"adapter,omitempty"`

	Hints map[string]string `json:"hints,omitempty" yaml:"hints,omitempty"`

	Group     string     `json:"group,omitempty" yaml:"group,omitempty"`
	Container string     `json:"container,omitempty" yaml:"container,omitempty"`
	Children  []NodeSpec `json:"children,omitempty" yaml:"children,omitempty"`
}

// IsGroup reports whether the node is a layout.
func (n NodeSpec) IsGroup() bool {
	return n.Name == "" && (n.Group != "" || len(n.Children) > 0)
}

// ValidateSpec lists declarative validators. Checks run in field order and
// the first failure wins; Message, when set, replaces every default reason.
type ValidateSpec struct {
	Required  bool     `json:"required,omitempty" yaml:"required,omitempty"`
	Number    bool     `json:"number,omitempty" yaml:"number,omitempty"`
	Integer   bool     `json:"integer,omitempty" yaml:"integer,omitempty"`
	MinLength *int     `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Pattern   string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Min       *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Rule      string   `json:"rule,omitempty" yaml:"rule,omitempty"`
	Message   string   `json:"message,omitempty" yaml:"message,omitempty"`
}

// DebounceSpec mirrors schema.DebounceOptions in milliseconds.
type DebounceSpec struct {
	WaitMS    int   `json:"waitMs" yaml:"waitMs"`
	MaxWaitMS int   `json:"maxWaitMs,omitempty" yaml:"maxWaitMs,omitempty"`
	Leading   bool  `json:"leading,omitempty" yaml:"leading,omitempty"`
	Trailing  *bool `json:"trailing,omitempty" yaml:"trailing,omitempty"`
}
