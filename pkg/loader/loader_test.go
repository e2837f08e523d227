package loader

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	elerrors "github.com/vango-dev/elements/internal/errors"
	"github.com/vango-dev/elements/pkg/element"
	"github.com/vango-dev/elements/pkg/element/elementtest"
)

const jsonDoc = `{
  "elements": [
    {"name": "fancy-button", "extends": "button", "attributes": "label size",
     "publish": {"label": "ok", "pressed": false}, "events": {"click": "activate"},
     "sheets": ["fancy.css"], "noscript": true, "constructor": "FancyButton"}
  ],
  "scripts": [
    {"name": "fancy-button", "members": {"greeting": "hello"}}
  ]
}`

const yamlDoc = `elements:
  - name: fancy-button
    extends: button
    attributes: label size
    publish:
      label: ok
      pressed: false
    events:
      click: activate
    sheets: [fancy.css]
    noscript: true
    constructor: FancyButton
scripts:
  - name: fancy-button
    members:
      greeting: hello
`

const hclDoc = `element "fancy-button" {
  extends     = "button"
  attributes  = "label size"
  publish     = { label = "ok", pressed = false }
  events      = { click = "activate" }
  sheets      = ["fancy.css"]
  noscript    = true
  constructor = "FancyButton"
}

script "fancy-button" {
  members = { greeting = "hello" }
}
`

func TestDecode_FormatsAgree(t *testing.T) {
	want := &Document{
		Elements: []ElementDecl{{
			Name:        "fancy-button",
			Extends:     "button",
			Attributes:  "label size",
			Publish:     map[string]any{"label": "ok", "pressed": false},
			Events:      map[string]string{"click": "activate"},
			Sheets:      []string{"fancy.css"},
			NoScript:    true,
			Constructor: "FancyButton",
		}},
		Scripts: []Script{{
			Name:    "fancy-button",
			Members: map[string]any{"greeting": "hello"},
		}},
	}

	tests := []struct {
		location string
		data     string
	}{
		{"widgets.json", jsonDoc},
		{"widgets.yaml", yamlDoc},
		{"widgets.yml", yamlDoc},
		{"widgets.hcl", hclDoc},
	}
	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			doc, err := Decode(tt.location, []byte(tt.data))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if doc.Location != tt.location {
				t.Errorf("Location = %q", doc.Location)
			}
			doc.Location = ""
			if !reflect.DeepEqual(doc, want) {
				t.Errorf("Decode =\n%#v\nwant\n%#v", doc, want)
			}
		})
	}
}

func TestDecode_HCLValues(t *testing.T) {
	src := `script "x-values" {
  members = {
    count = 3
    ratio = 0.5
    tags  = ["a", "b"]
    nested = { on = true }
  }
}
`
	doc, err := Decode("values.hcl", []byte(src))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got := doc.Scripts[0].Members
	want := map[string]any{
		"count":  3,
		"ratio":  0.5,
		"tags":   []any{"a", "b"},
		"nested": map[string]any{"on": true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("members = %#v, want %#v", got, want)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name     string
		location string
		data     string
		code     string
		line     int
	}{
		{"json syntax", "a.json", "{\n  \"elements\": [\n  oops\n]}", "E211", 3},
		{"json unknown field", "a.json", `{"widgets": []}`, "E211", 0},
		{"json missing name", "a.json", `{"elements": [{"extends": "button"}]}`, "E211", 0},
		{"yaml syntax", "a.yaml", "elements:\n  - name: [x\n", "E211", 0},
		{"yaml unknown field", "a.yaml", "elements:\n  - nme: x-a\n", "E211", 2},
		{"hcl syntax", "a.hcl", "element \"x-a\" {\n  extends = \n}\n", "E211", 0},
		{"hcl unknown block", "a.hcl", "widget \"x-a\" {}\n", "E211", 1},
		{"script missing name", "a.yaml", "scripts:\n  - members: {a: 1}\n", "E211", 0},
		{"unsupported", "a.toml", "", "E212", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.location, []byte(tt.data))
			if !elerrors.HasCode(err, tt.code) {
				t.Fatalf("err = %v, want %s", err, tt.code)
			}
			if tt.line == 0 {
				return
			}
			var ee *elerrors.ElementError
			if !errors.As(err, &ee) || ee.Location == nil {
				t.Fatalf("err has no location: %v", err)
			}
			if ee.Location.Line != tt.line {
				t.Errorf("line = %d, want %d", ee.Location.Line, tt.line)
			}
		})
	}
}

func TestDecode_EmptyYAML(t *testing.T) {
	doc, err := Decode("empty.yaml", nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(doc.Names()) != 0 {
		t.Errorf("Names = %v, want none", doc.Names())
	}
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFileSource_List(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.json":         "{}",
		"b/c.yaml":       "",
		"b/d.hcl":        "",
		".hidden/e.json": "{}",
		"notes.txt":      "",
	})

	got, err := FileSource{Path: dir}.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.json"),
		filepath.Join(dir, "b", "c.yaml"),
		filepath.Join(dir, "b", "d.hcl"),
	}
	if !slices.Equal(got, want) {
		t.Errorf("List = %v, want %v", got, want)
	}

	if _, err := (FileSource{Path: filepath.Join(dir, "missing")}).List(context.Background()); !elerrors.HasCode(err, "E210") {
		t.Errorf("missing path err = %v, want E210", err)
	}
	if _, err := (FileSource{Path: filepath.Join(dir, "notes.txt")}).List(context.Background()); !elerrors.HasCode(err, "E212") {
		t.Errorf("unsupported file err = %v, want E212", err)
	}
}

func TestFileSource_BaseURL(t *testing.T) {
	got := FileSource{}.BaseURL("/srv/widgets/a.yaml")
	if got != "file:///srv/widgets/a.yaml" {
		t.Errorf("BaseURL = %q", got)
	}
}

func newLoaderEngine(t *testing.T, opts ...Option) (*Loader, *element.Engine) {
	t.Helper()
	eng := element.New(elementtest.NewPlatform("button"))
	return New(eng, opts...), eng
}

func TestLoad_ResolvesAcrossDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"fancy.hcl": `element "fancy-widget" {
  extends = "base-widget"
}
script "fancy-widget" {
  members = { label = "fancy" }
}
`,
		"base/base.yaml": `elements:
  - name: base-widget
    extends: button
scripts:
  - name: base-widget
    members:
      label: base
      size: 2
`,
	})

	ld, eng := newLoaderEngine(t, WithConcurrency(2))
	report, err := ld.Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(report.Documents) != 2 || len(report.Handles) != 2 {
		t.Fatalf("report = %d documents, %d handles", len(report.Documents), len(report.Handles))
	}
	for _, h := range report.Handles {
		if h.Status() != element.StatusRegistered {
			t.Errorf("%s status = %v", h.Name(), h.Status())
		}
	}

	p, ok := eng.Registered("fancy-widget")
	if !ok {
		t.Fatal("fancy-widget not registered")
	}
	if got := p.Chain(); !slices.Equal(got[:2], []string{"fancy-widget", "base-widget"}) {
		t.Errorf("Chain = %v", got)
	}
	if v, _ := p.Member("size"); v != 2 {
		t.Errorf("inherited size = %v, want 2", v)
	}

	base, _ := eng.Registered("base-widget")
	ref, err := base.ResolvePath("base.css")
	if err != nil {
		t.Fatal(err)
	}
	abs, _ := filepath.Abs(filepath.Join(dir, "base", "base.css"))
	if want := "file://" + filepath.ToSlash(abs); ref != want {
		t.Errorf("ResolvePath = %q, want %q", ref, want)
	}
	if !ld.Seen(filepath.Join(dir, "fancy.hcl")) {
		t.Error("fancy.hcl should be marked seen")
	}
}

func TestLoad_ContinuesPastBadDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"good.json": `{"elements": [{"name": "x-good", "noscript": true}]}`,
		"bad.json":  `{"elements": [`,
	})

	ld, eng := newLoaderEngine(t)
	report, err := ld.Load(context.Background(), dir, filepath.Join(dir, "missing"))
	if !elerrors.HasCode(err, "E211") {
		t.Errorf("err = %v, want E211", err)
	}
	if !elerrors.HasCode(err, "E210") {
		t.Errorf("err = %v, want E210 for the missing source", err)
	}
	if len(report.Documents) != 1 {
		t.Errorf("Documents = %v, want only good.json", report.Documents)
	}
	if _, ok := eng.Registered("x-good"); !ok {
		t.Error("x-good should register through its noscript fallback")
	}
}

func TestLoad_ReportsRegistrationErrors(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.yaml": "elements:\n  - name: NotValid\n",
	})

	ld, _ := newLoaderEngine(t)
	report, err := ld.Load(context.Background(), dir)
	if !elerrors.HasCode(err, "E204") {
		t.Errorf("err = %v, want E204", err)
	}
	if len(report.Documents) != 1 {
		t.Errorf("Documents = %v, the document itself was applied", report.Documents)
	}
}

type fakeS3 struct {
	objects map[string]string
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	out := &s3.ListObjectsV2Output{}
	for key := range f.objects {
		if strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
		}
	}
	return out, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestLoad_S3(t *testing.T) {
	client := &fakeS3{objects: map[string]string{
		"widgets/a.json":  `{"elements": [{"name": "s3-widget", "extends": "button"}]}`,
		"widgets/b.yaml":  "scripts:\n  - name: s3-widget\n",
		"widgets/readme":  "ignored",
		"other/c.json":    `{"elements": [{"name": "x-other"}]}`,
		"widgets/d.hcl":   "",
		"widgets/sub/.md": "",
	}}

	ld, eng := newLoaderEngine(t, WithS3Client(client))
	report, err := ld.Load(context.Background(), "s3://bucket/widgets/")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(report.Documents) != 3 {
		t.Errorf("Documents = %v, want three widgets/ documents", report.Documents)
	}
	p, ok := eng.Registered("s3-widget")
	if !ok {
		t.Fatal("s3-widget not registered")
	}
	if got := p.Declaration().BaseURL; got != "s3://bucket/widgets/a.json" {
		t.Errorf("BaseURL = %q", got)
	}
	if _, ok := eng.Lookup("x-other"); ok {
		t.Error("documents outside the prefix should not load")
	}
}

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		uri, bucket, key string
		ok               bool
	}{
		{"s3://bucket/widgets/a.json", "bucket", "widgets/a.json", true},
		{"s3://bucket", "bucket", "", true},
		{"s3:///key", "", "", false},
		{"https://bucket/key", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, key, err := ParseS3URI(tt.uri)
			if (err == nil) != tt.ok {
				t.Fatalf("err = %v, want ok=%v", err, tt.ok)
			}
			if bucket != tt.bucket || key != tt.key {
				t.Errorf("got %q %q", bucket, key)
			}
		})
	}
}

type fetchRecorder struct {
	mu     sync.Mutex
	starts []string
	errs   int
}

func (r *fetchRecorder) StartFetch(ctx context.Context, location string) (context.Context, func(error)) {
	r.mu.Lock()
	r.starts = append(r.starts, filepath.Base(location))
	r.mu.Unlock()
	return ctx, func(err error) {
		if err != nil {
			r.mu.Lock()
			r.errs++
			r.mu.Unlock()
		}
	}
}

func TestLoad_TracesFetches(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.json": `{}`,
		"b.json": `{`,
	})
	rec := &fetchRecorder{}
	ld, _ := newLoaderEngine(t, WithFetchTracer(rec))
	_, _ = ld.Load(context.Background(), dir)

	slices.Sort(rec.starts)
	if !slices.Equal(rec.starts, []string{"a.json", "b.json"}) {
		t.Errorf("starts = %v", rec.starts)
	}
	if rec.errs != 1 {
		t.Errorf("errs = %d, want 1", rec.errs)
	}
}

func TestWatcher_AppliesNewDocuments(t *testing.T) {
	dir := t.TempDir()
	ld, eng := newLoaderEngine(t)

	w, err := NewWatcher(ld, WatchConfig{Dirs: []string{dir}, Debounce: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	applied := make(chan Applied, 4)
	w.OnApply(func(a Applied) { applied <- a })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	writeFiles(t, dir, map[string]string{
		"late.yaml":  "elements:\n  - name: late-widget\n    noscript: true\n",
		"ignore.txt": "x",
	})

	select {
	case a := <-applied:
		if a.Err != nil {
			t.Fatalf("apply: %v", a.Err)
		}
		if filepath.Base(a.Location) != "late.yaml" {
			t.Errorf("Location = %q", a.Location)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("document was not applied")
	}
	if _, ok := eng.Registered("late-widget"); !ok {
		t.Error("late-widget not registered")
	}
}

func TestWatcher_KeepsAppliedDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.yaml": "elements:\n  - name: kept-widget\nscripts:\n  - name: kept-widget\n    members:\n      label: first\n",
	})
	ld, eng := newLoaderEngine(t)
	if _, err := ld.Load(context.Background(), dir); err != nil {
		t.Fatalf("Load: %v", err)
	}

	w, err := NewWatcher(ld, WatchConfig{Dirs: []string{dir}, Debounce: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	applied := make(chan Applied, 4)
	w.OnApply(func(a Applied) { applied <- a })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	writeFiles(t, dir, map[string]string{
		"a.yaml": "elements:\n  - name: kept-widget\nscripts:\n  - name: kept-widget\n    members:\n      label: second\n",
	})
	// Changes are applied in path order, so a re-applied a.yaml would
	// be reported before b.yaml.
	time.Sleep(100 * time.Millisecond)
	writeFiles(t, dir, map[string]string{
		"b.yaml": "elements:\n  - name: next-widget\n    noscript: true\n",
	})

	select {
	case a := <-applied:
		if filepath.Base(a.Location) != "b.yaml" {
			t.Fatalf("applied %q, want only b.yaml", a.Location)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("new document was not applied")
	}

	def, ok := eng.Lookup("kept-widget")
	if !ok {
		t.Fatal("kept-widget not defined")
	}
	if def.Members["label"] != "first" {
		t.Errorf("label = %v, want the first definition", def.Members["label"])
	}
	p, ok := eng.Registered("kept-widget")
	if !ok {
		t.Fatal("kept-widget not registered")
	}
	if v, _ := p.Member("label"); v != "first" {
		t.Errorf("prototype label = %v, want first", v)
	}
}

func TestNewWatcher_MissingDir(t *testing.T) {
	ld, _ := newLoaderEngine(t)
	_, err := NewWatcher(ld, WatchConfig{Dirs: []string{filepath.Join(t.TempDir(), "nope")}})
	if !elerrors.HasCode(err, "E210") {
		t.Errorf("err = %v, want E210", err)
	}
}
