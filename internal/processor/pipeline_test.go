package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/woozymasta/rotfarm/internal/geo"
	"github.com/woozymasta/rotfarm/internal/output"

	"github.com/tidwall/gjson"
)

func writeInput(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "rotational-farming.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	return path
}

func collectionJSON(features ...string) string {
	return `{"type":"FeatureCollection","name":"farms","features":[` + strings.Join(features, ",") + `]}`
}

func plotFeature(id string, landUse string, offset int) string {
	x, y := 680000+offset*200, 1520000+offset*200
	return fmt.Sprintf(
		`{"type":"Feature","properties":{"id":%q,"LU_DES_TH":%q,"RAI":%d},"geometry":{"type":"Polygon","coordinates":[[[%d,%d],[%d,%d],[%d,%d],[%d,%d],[%d,%d]]]}}`,
		id, landUse, offset+1, x, y, x+100, y, x+100, y+100, x, y+100, x, y)
}

func newTestPipeline(t *testing.T, opts Options) *Pipeline {
	t.Helper()

	p, err := New(opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p
}

func TestNew_ConfigurationError(t *testing.T) {
	_, err := New(Options{SourceCRS: "EPSG:99999", TargetCRS: DefaultTargetCRS})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if !errors.Is(err, geo.ErrUnsupportedCRS) {
		t.Fatalf("expected wrapped ErrUnsupportedCRS, got %v", err)
	}
}

func TestRun_EmptyCollection(t *testing.T) {
	in := writeInput(t, `{"type":"FeatureCollection","features":[]}`)
	out := filepath.Join(t.TempDir(), "minified_farms.json")

	res, err := newTestPipeline(t, Options{}).Run(context.Background(), in, out, output.FormatJSON)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res.Collection.Features) != 0 {
		t.Fatalf("expected 0 features, got %d", len(res.Collection.Features))
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	features := gjson.GetBytes(data, "features")
	if !features.IsArray() || len(features.Array()) != 0 {
		t.Fatalf("expected empty features array, got %s", data)
	}
}

func TestRun_MissingFeaturesKey(t *testing.T) {
	in := writeInput(t, `{"type":"FeatureCollection"}`)
	out := filepath.Join(t.TempDir(), "out.json")

	res, err := newTestPipeline(t, Options{}).Run(context.Background(), in, out, output.FormatJSON)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res.Collection.Features) != 0 {
		t.Fatalf("expected 0 features, got %d", len(res.Collection.Features))
	}
}

func TestRun_OutputFile(t *testing.T) {
	in := writeInput(t, collectionJSON(
		plotFeature("A", "นาร้าง", 0),
		plotFeature("B", "ข้าวโพด", 1),
		plotFeature("C", "Bush", 2),
	))
	out := filepath.Join(t.TempDir(), "nested", "minified_farms.json")

	res, err := newTestPipeline(t, Options{}).Run(context.Background(), in, out, output.FormatJSON)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Bytes == 0 {
		t.Error("expected written byte count")
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}

	if !strings.Contains(string(data), "\n  \"name\": \"farms\"") {
		t.Errorf("expected two-space indentation and foreign members kept:\n%s", data)
	}
	if !strings.Contains(string(data), "นาร้าง") {
		t.Errorf("expected literal Thai text in output")
	}

	statuses := gjson.GetBytes(data, "features.#.properties.status").Array()
	expected := []string{StatusCarbonSink, StatusActiveFarm, StatusCarbonSink}
	if len(statuses) != len(expected) {
		t.Fatalf("expected %d statuses, got %d", len(expected), len(statuses))
	}
	for i, s := range statuses {
		if s.String() != expected[i] {
			t.Errorf("feature %d: status %q, expected %q", i, s.String(), expected[i])
		}
	}

	for _, f := range gjson.GetBytes(data, "features").Array() {
		lat, lng := f.Get("properties.lat").Float(), f.Get("properties.lng").Float()
		if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			t.Errorf("centroid out of range: %v %v", lat, lng)
		}
	}
}

func TestRun_PassthroughTextUnescaped(t *testing.T) {
	feature := strings.Replace(plotFeature("A", "นาร้าง", 0), `"type":"Feature",`, `"type":"Feature","tag":"\u0e19\u0e32",`, 1)
	in := writeInput(t, `{"type":"FeatureCollection","name":"\u0e19\u0e32","features":[`+feature+`]}`)
	out := filepath.Join(t.TempDir(), "out.json")

	if _, err := newTestPipeline(t, Options{}).Run(context.Background(), in, out, output.FormatJSON); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}

	text := string(data)
	for _, expected := range []string{`"name": "นา"`, `"tag": "นา"`, `"crop_type": "นาร้าง"`} {
		if !strings.Contains(text, expected) {
			t.Errorf("expected %s in output:\n%s", expected, text)
		}
	}
	if strings.Contains(text, `\u0e`) {
		t.Errorf("escaped Thai text left in output:\n%s", text)
	}
}

func TestProcess_OrderPreserved(t *testing.T) {
	const n = 40

	features := make([]string, n)
	for i := range features {
		features[i] = plotFeature(fmt.Sprintf("F%02d", i), "Rice", i)
	}

	c, err := geo.ParseCollection([]byte(collectionJSON(features...)))
	if err != nil {
		t.Fatalf("ParseCollection failed: %v", err)
	}

	for _, workers := range []int{1, 8} {
		res, err := newTestPipeline(t, Options{Workers: workers}).Process(context.Background(), c)
		if err != nil {
			t.Fatalf("workers %d: Process failed: %v", workers, err)
		}
		if len(res.Collection.Features) != n {
			t.Fatalf("workers %d: expected %d features, got %d", workers, n, len(res.Collection.Features))
		}
		for i, f := range res.Collection.Features {
			expected := fmt.Sprintf("F%02d", i)
			if id := gjson.GetBytes(f, "properties.id").String(); id != expected {
				t.Fatalf("workers %d: position %d has id %s, expected %s", workers, i, id, expected)
			}
		}
	}
}

func TestRun_FailFast(t *testing.T) {
	broken := `{"type":"Feature","id":"BAD","properties":{},"geometry":{"type":"Point","coordinates":[1,2]}}`
	in := writeInput(t, collectionJSON(plotFeature("A", "Rice", 0), broken, plotFeature("C", "Rice", 2)))
	out := filepath.Join(t.TempDir(), "out.json")

	_, err := newTestPipeline(t, Options{}).Run(context.Background(), in, out, output.FormatJSON)
	if !errors.Is(err, ErrFeature) {
		t.Fatalf("expected ErrFeature, got %v", err)
	}

	var fe *FeatureError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FeatureError, got %T", err)
	}
	if fe.Index != 1 || fe.ID != "BAD" {
		t.Errorf("unexpected feature error %+v", fe)
	}

	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("output must not be written on failure")
	}
}

func TestRun_SkipInvalid(t *testing.T) {
	broken := `{"type":"Feature","properties":{"id":"BAD"},"geometry":null}`
	in := writeInput(t, collectionJSON(plotFeature("A", "Rice", 0), broken, plotFeature("C", "Rice", 2)))
	out := filepath.Join(t.TempDir(), "out.json")

	res, err := newTestPipeline(t, Options{SkipInvalid: true, Workers: 2}).Run(context.Background(), in, out, output.FormatJSON)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(res.Skipped) != 1 || res.Skipped[0].Index != 1 || res.Skipped[0].ID != "BAD" {
		t.Fatalf("unexpected skipped list %+v", res.Skipped)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	ids := gjson.GetBytes(data, "features.#.properties.id").Array()
	if len(ids) != 2 || ids[0].String() != "A" || ids[1].String() != "C" {
		t.Errorf("unexpected ids %v", ids)
	}
}

func TestRun_InputErrors(t *testing.T) {
	p := newTestPipeline(t, Options{})
	out := filepath.Join(t.TempDir(), "out.json")

	_, err := p.Run(context.Background(), filepath.Join(t.TempDir(), "missing.json"), out, output.FormatJSON)
	if !errors.Is(err, ErrIO) {
		t.Errorf("missing file: expected ErrIO, got %v", err)
	}

	for _, content := range []string{`{"features": [`, `[]`, `42`} {
		_, err := p.Run(context.Background(), writeInput(t, content), out, output.FormatJSON)
		if !errors.Is(err, ErrParse) {
			t.Errorf("%q: expected ErrParse, got %v", content, err)
		}
	}
}

func TestRun_Cancelled(t *testing.T) {
	in := writeInput(t, collectionJSON(plotFeature("A", "Rice", 0)))
	out := filepath.Join(t.TempDir(), "out.json")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newTestPipeline(t, Options{}).Run(ctx, in, out, output.FormatJSON); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSave_Unwritable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}

	// a regular file used as a directory
	if err := Save(filepath.Join(blocker, "out.json"), []byte("{}")); !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}
