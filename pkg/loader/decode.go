package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"

	elerrors "github.com/vango-dev/elements/internal/errors"
)

// Format is a declaration document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHCL  Format = "hcl"
)

var extensions = map[string]Format{
	".json": FormatJSON,
	".yaml": FormatYAML,
	".yml":  FormatYAML,
	".hcl":  FormatHCL,
}

// FormatOf returns the format implied by the location's extension.
func FormatOf(location string) (Format, error) {
	ext := strings.ToLower(path.Ext(location))
	if f, ok := extensions[ext]; ok {
		return f, nil
	}
	return "", elerrors.New("E212").
		WithLocation(location, 0, 0).
		WithDetailf("unsupported extension %q", ext)
}

// Supported reports whether location has a document extension.
func Supported(location string) bool {
	_, err := FormatOf(location)
	return err == nil
}

// Decode decodes data read from location, choosing the format by
// extension.
func Decode(location string, data []byte) (*Document, error) {
	format, err := FormatOf(location)
	if err != nil {
		return nil, err
	}
	return DecodeFormat(format, location, data)
}

// DecodeFormat decodes data in the given format. location is only used
// for error reporting.
func DecodeFormat(format Format, location string, data []byte) (*Document, error) {
	var (
		doc *Document
		err error
	)
	switch format {
	case FormatJSON:
		doc, err = decodeJSON(location, data)
	case FormatYAML:
		doc, err = decodeYAML(location, data)
	case FormatHCL:
		doc, err = decodeHCL(location, data)
	default:
		return nil, elerrors.New("E212").WithDetailf("unknown format %q", format)
	}
	if err != nil {
		return nil, err
	}
	doc.Location = location
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *Document) validate() error {
	for i, e := range d.Elements {
		if e.Name == "" {
			return invalid(d.Location, 0, 0, "element %d has no name", i)
		}
	}
	for i, s := range d.Scripts {
		if s.Name == "" {
			return invalid(d.Location, 0, 0, "script %d has no name", i)
		}
	}
	return nil
}

func invalid(location string, line, col int, format string, args ...any) *elerrors.ElementError {
	return elerrors.New("E211").
		WithLocation(location, line, col).
		WithDetailf(format, args...)
}

func decodeJSON(location string, data []byte) (*Document, error) {
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		line, col := 0, 0
		var syntax *json.SyntaxError
		var typ *json.UnmarshalTypeError
		switch {
		case errors.As(err, &syntax):
			line, col = position(data, syntax.Offset)
		case errors.As(err, &typ):
			line, col = position(data, typ.Offset)
		}
		return nil, invalid(location, line, col, "%s", err.Error()).Wrap(err)
	}
	return &doc, nil
}

// position converts a byte offset into a 1-based line and column.
func position(data []byte, offset int64) (int, int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	before := data[:offset]
	line := bytes.Count(before, []byte("\n")) + 1
	col := int(offset) - bytes.LastIndexByte(before, '\n')
	return line, col
}

var yamlLine = regexp.MustCompile(`line (\d+)`)

func decodeYAML(location string, data []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		line := 0
		if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
			line, _ = strconv.Atoi(m[1])
		}
		return nil, invalid(location, line, 0, "%s", err.Error()).Wrap(err)
	}
	return &doc, nil
}

// hclDocument is the HCL schema of a declaration document.
type hclDocument struct {
	Elements []*hclElement `hcl:"element,block"`
	Scripts  []*hclScript  `hcl:"script,block"`
}

type hclElement struct {
	Name        string            `hcl:"name,label"`
	Extends     string            `hcl:"extends,optional"`
	Attributes  string            `hcl:"attributes,optional"`
	Publish     cty.Value         `hcl:"publish,optional"`
	Events      map[string]string `hcl:"events,optional"`
	Template    string            `hcl:"template,optional"`
	Sheets      []string          `hcl:"sheets,optional"`
	Styles      []string          `hcl:"styles,optional"`
	NoScript    bool              `hcl:"noscript,optional"`
	Constructor string            `hcl:"constructor,optional"`
	BaseURL     string            `hcl:"base_url,optional"`
}

type hclScript struct {
	Name    string    `hcl:"name,label"`
	Extends string    `hcl:"extends,optional"`
	Members cty.Value `hcl:"members,optional"`
}

func decodeHCL(location string, data []byte) (*Document, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, location)
	if diags.HasErrors() {
		return nil, hclError(location, diags)
	}

	var raw hclDocument
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, hclError(location, diags)
	}

	doc := &Document{}
	for _, e := range raw.Elements {
		publish, err := ctyMap(e.Publish)
		if err != nil {
			return nil, invalid(location, 0, 0, "element %q: publish: %v", e.Name, err)
		}
		doc.Elements = append(doc.Elements, ElementDecl{
			Name:        e.Name,
			Extends:     e.Extends,
			Attributes:  e.Attributes,
			Publish:     publish,
			Events:      e.Events,
			Template:    e.Template,
			Sheets:      e.Sheets,
			Styles:      e.Styles,
			NoScript:    e.NoScript,
			Constructor: e.Constructor,
			BaseURL:     e.BaseURL,
		})
	}
	for _, s := range raw.Scripts {
		members, err := ctyMap(s.Members)
		if err != nil {
			return nil, invalid(location, 0, 0, "script %q: members: %v", s.Name, err)
		}
		doc.Scripts = append(doc.Scripts, Script{
			Name:    s.Name,
			Extends: s.Extends,
			Members: members,
		})
	}
	return doc, nil
}

// hclError reports the first error diagnostic with its source position.
func hclError(location string, diags hcl.Diagnostics) error {
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		line, col := 0, 0
		if d.Subject != nil {
			line, col = d.Subject.Start.Line, d.Subject.Start.Column
		}
		return invalid(location, line, col, "%s: %s", d.Summary, d.Detail).Wrap(diags)
	}
	return invalid(location, 0, 0, "%s", diags.Error()).Wrap(diags)
}

// ctyMap converts an object or map value into plain Go values. A null or
// absent value yields nil.
func ctyMap(v cty.Value) (map[string]any, error) {
	if v.IsNull() {
		return nil, nil
	}
	native, err := ctyToNative(v)
	if err != nil {
		return nil, err
	}
	m, ok := native.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object, got %s", v.Type().FriendlyName())
	}
	return m, nil
}

// ctyToNative converts a cty.Value into strings, bools, ints (for whole
// numbers), float64s, slices, and maps.
func ctyToNative(v cty.Value) (any, error) {
	if !v.IsKnown() || v.IsNull() {
		return nil, nil
	}
	t := v.Type()
	switch {
	case t == cty.String:
		return v.AsString(), nil
	case t == cty.Bool:
		return v.True(), nil
	case t == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return int(i), nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	case t.IsListType() || t.IsTupleType() || t.IsSetType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			n, err := ctyToNative(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	case t.IsObjectType() || t.IsMapType():
		out := make(map[string]any, v.LengthInt())
		for k, ev := range v.AsValueMap() {
			n, err := ctyToNative(ev)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %s", t.FriendlyName())
	}
}
