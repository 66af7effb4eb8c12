package terminal

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formbind/pkg/adapter"
)

// Widget names the prompt a question is asked with.
type Widget string

const (
	WidgetText        Widget = "text"
	WidgetNumber      Widget = "number"
	WidgetToggle      Widget = "toggle"
	WidgetSelect      Widget = "select"
	WidgetMultiSelect Widget = "multiselect"
)

// Question is what the terminal adapters render for a leaf: the managed
// props plus the prompt to use.
type Question struct {
	adapter.Props
	Widget Widget
}

// Title is the label shown for the question.
func (q Question) Title() string {
	if strings.TrimSpace(q.Label) != "" {
		return q.Label
	}
	return q.Name
}

// Options splits the comma separated "options" hint.
func (q Question) Options() []string {
	raw := strings.TrimSpace(q.Hints["options"])
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func widgetAdapter(widget Widget) adapter.Adapter {
	return adapter.AdapterFunc(func(props adapter.Props) any {
		return Question{Props: props, Widget: widget}
	})
}

// Register binds a terminal adapter to every built-in adapter name and makes
// text prompts the fallback.
func Register(reg *adapter.Registry) error {
	if reg == nil {
		return fmt.Errorf("terminal: registry is nil")
	}
	bindings := []struct {
		name   string
		widget Widget
	}{
		{adapter.NameTextInput, WidgetText},
		{adapter.NameNumberInput, WidgetNumber},
		{adapter.NameToggle, WidgetToggle},
		{adapter.NameSelect, WidgetSelect},
		{adapter.NameMultiSelect, WidgetMultiSelect},
	}
	for _, b := range bindings {
		if err := reg.Register(b.name, widgetAdapter(b.widget)); err != nil {
			return err
		}
	}
	reg.SetFallback(widgetAdapter(WidgetText))
	return nil
}

// NewRegistry returns a registry with the terminal adapters installed.
func NewRegistry() *adapter.Registry {
	reg := adapter.NewRegistry()
	if err := Register(reg); err != nil {
		panic(err)
	}
	return reg
}

// Questions lists the questions in a rendered view in tree order.
func Questions(view any) []Question {
	var out []Question
	collect(view, &out)
	return out
}

func collect(node any, out *[]Question) {
	switch typed := node.(type) {
	case Question:
		*out = append(*out, typed)
	case adapter.Group:
		for _, child := range typed.Children {
			collect(child, out)
		}
	case []any:
		for _, child := range typed {
			collect(child, out)
		}
	}
}
