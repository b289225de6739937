package view

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/whisperbox/webapp/types"
)

// HTML marks a value as trusted markup. The renderer inserts it verbatim;
// every other value is escaped.
type HTML string

// Renderer loads templates and substitutes {{key}} tokens with values taken
// from a typed view model. Struct fields opt in with a `view:"key"` tag.
type Renderer struct {
	source TemplateSource
}

// NewRenderer constructs a renderer reading from source.
func NewRenderer(source TemplateSource) *Renderer {
	return &Renderer{source: source}
}

// Render returns the named template with every token replaced.
// Tokens without a matching model field are left untouched.
func (r *Renderer) Render(ctx context.Context, name string, model any) (string, error) {
	raw, err := r.load(ctx, name)
	if err != nil {
		return "", err
	}

	values, err := Values(model)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	if len(values) == 0 {
		return raw, nil
	}

	pairs := make([]string, 0, len(values)*2)
	for key, value := range values {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(raw), nil
}

// Fragment renders a partial template for embedding into another model.
func (r *Renderer) Fragment(ctx context.Context, name string, model any) (HTML, error) {
	out, err := r.Render(ctx, name, model)
	if err != nil {
		return "", err
	}
	return HTML(out), nil
}

func (r *Renderer) load(ctx context.Context, name string) (string, error) {
	rc, err := r.source.Open(ctx, name)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read template %s: %w", name, err)
	}
	return string(data), nil
}

// Values flattens a view model into its escaped substitution map.
func Values(model any) (map[string]string, error) {
	if model == nil {
		return nil, nil
	}

	v := reflect.ValueOf(model)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("view model must be a struct, got %s", v.Kind())
	}

	t := v.Type()
	values := make(map[string]string, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key := field.Tag.Get("view")
		if key == "" || key == "-" || !field.IsExported() {
			continue
		}
		values[key] = formatValue(v.Field(i).Interface())
	}
	return values, nil
}

func formatValue(value any) string {
	switch v := value.(type) {
	case HTML:
		return string(v)
	case string:
		return Escape(v)
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return Escape(v.Format(types.DisplayTimeLayout))
	case fmt.Stringer:
		return Escape(v.String())
	default:
		return Escape(fmt.Sprint(v))
	}
}
