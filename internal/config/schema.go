package config

import (
	_ "embed"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

// validateSchema checks the resolved document against the embedded schema.
func validateSchema(d *document) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	value := ctx.Encode(d.view())
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode configuration: %w", err)
	}

	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%s", strings.TrimSpace(cueerrors.Details(err, nil)))
	}
	return nil
}

// view renders the document as the plain map the schema describes.
func (d *document) view() map[string]any {
	out := map[string]any{}
	for _, key := range GlobalKeys {
		if listKeys[key] {
			out[key] = d.lists[key]
			continue
		}
		if v := d.scalars[key]; v != "" || slices.Contains(mandatoryKeys, key) {
			out[key] = v
		}
	}

	tests := map[string]*testDoc{}
	for idx, t := range d.tests {
		tests[strconv.Itoa(idx)] = t
	}
	out["tests"] = tests
	return out
}
