// Package manifest discovers and validates extension manifests. A scan
// walks the configured plugin roots, reads each subdirectory's
// manifest.json, and produces immutable descriptors; directories with
// invalid manifests are skipped and logged, never fatal.
package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/modulaur/modulaur/pkg/extension"
)

// FileName is the manifest file every extension directory must contain.
const FileName = "manifest.json"

//go:embed schema/manifest.schema.json
var schemaBytes []byte

var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
)

var idPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// getSchema compiles the embedded manifest schema once.
func getSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			compileErr = fmt.Errorf("unmarshaling schema JSON: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource("manifest.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile("manifest.schema.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compiling schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// Parse validates raw manifest.json bytes and builds a descriptor for
// the extension directory dir found under root. All returned errors are
// scan-classified: the caller skips the directory and moves on.
func Parse(data []byte, dir, root string) (*extension.Descriptor, error) {
	var d extension.Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, extension.NewScanError("malformed manifest JSON", err).
			WithCode(extension.ErrCodeParse).WithPath(dir)
	}

	if err := checkRequired(&d, dir); err != nil {
		return nil, err
	}

	if !idPattern.MatchString(d.ID) {
		return nil, extension.NewScanError(
			fmt.Sprintf("id %q is not kebab-case", d.ID), nil).
			WithCode(extension.ErrCodeBadID).WithPath(dir)
	}

	if _, err := semver.NewVersion(d.Version); err != nil {
		return nil, extension.NewScanError(
			fmt.Sprintf("version %q is not a semantic version", d.Version), err).
			WithCode(extension.ErrCodeBadVersion).WithExtension(d.ID).WithPath(dir)
	}

	if !d.Type.Valid() {
		return nil, extension.NewScanError(
			fmt.Sprintf("unknown extension type %q", d.Type), nil).
			WithCode(extension.ErrCodeParse).WithExtension(d.ID).WithPath(dir)
	}

	for _, p := range []string{d.Entry, d.CSS} {
		if p == "" {
			continue
		}
		if err := checkRelative(p, d.ID, dir); err != nil {
			return nil, err
		}
	}

	for _, c := range d.Components {
		if c.ID == "" || !c.Kind.Valid() {
			return nil, extension.NewScanError(
				fmt.Sprintf("invalid component declaration %q/%q", c.Kind, c.ID), nil).
				WithCode(extension.ErrCodeParse).WithExtension(d.ID).WithPath(dir)
		}
	}

	if err := validateSchema(data, d.ID, dir); err != nil {
		return nil, err
	}

	d.Dir = dir
	d.Root = root
	return &d, nil
}

func checkRequired(d *extension.Descriptor, dir string) error {
	missing := ""
	switch {
	case d.ID == "":
		missing = "id"
	case d.Name == "":
		missing = "name"
	case d.Version == "":
		missing = "version"
	case d.Type == "":
		missing = "type"
	case d.Entry == "":
		missing = "entry"
	}
	if missing == "" {
		return nil
	}
	return extension.NewScanError(
		fmt.Sprintf("manifest is missing required field %q", missing), nil).
		WithCode(extension.ErrCodeMissingField).WithExtension(d.ID).WithPath(dir)
}

// checkRelative rejects entry and css paths that would resolve outside
// the extension's own directory.
func checkRelative(p, id, dir string) error {
	if filepath.IsAbs(p) || strings.HasPrefix(filepath.ToSlash(filepath.Clean(p)), "../") {
		return extension.NewScanError(
			fmt.Sprintf("path %q escapes the extension directory", p), nil).
			WithCode(extension.ErrCodeBadPath).WithExtension(id).WithPath(dir)
	}
	return nil
}

func validateSchema(data []byte, id, dir string) error {
	schema, err := getSchema()
	if err != nil {
		return extension.NewConfigError("manifest schema failed to compile", err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return extension.NewScanError("malformed manifest JSON", err).
			WithCode(extension.ErrCodeParse).WithExtension(id).WithPath(dir)
	}

	if err := schema.Validate(inst); err != nil {
		return extension.NewScanError("manifest failed schema validation", err).
			WithCode(extension.ErrCodeParse).WithExtension(id).WithPath(dir)
	}
	return nil
}
