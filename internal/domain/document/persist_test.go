package document

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"

	"github.com/kailas-cloud/annodoc/internal/domain"
	"github.com/kailas-cloud/annodoc/internal/domain/pageimage"
	"github.com/kailas-cloud/annodoc/internal/domain/symbols"
)

func pageImages(t *testing.T, n int) []*pageimage.Image {
	t.Helper()
	images := make([]*pageimage.Image, n)
	for i := range images {
		img := image.NewGray(image.Rect(0, 0, 2+i, 2))
		img.SetGray(0, 0, color.Gray{Y: uint8(i * 20)})
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			t.Fatalf("png.Encode: %v", err)
		}
		p, err := pageimage.FromBytes(buf.Bytes())
		if err != nil {
			t.Fatalf("FromBytes: %v", err)
		}
		images[i] = p
	}
	return images
}

func pagesText(n int) []string {
	pages := make([]string, n)
	for i := range pages {
		pages[i] = "page " + strconv.Itoa(i)
	}
	return pages
}

func TestSaveLoad_DirectoryLayout(t *testing.T) {
	const n = 12 // more than 10 pages to exercise numeric ordering
	images := pageImages(t, n)
	d := New(symbols.New(pagesText(n)...), images)
	if err := d.Annotate(Set("tokens", token(0, 4))); err != nil {
		t.Fatalf("Annotate: %v", err)
	}

	dir := t.TempDir()
	if err := d.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, JSONFileName)); err != nil {
		t.Fatalf("document.json missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "11.png")); err != nil {
		t.Fatalf("11.png missing: %v", err)
	}

	loaded, err := Load(dir, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := loaded.Images()
	if len(got) != n {
		t.Fatalf("expected %d images, got %d", n, len(got))
	}
	for i := range images {
		if !bytes.Equal(got[i].Bytes(), images[i].Bytes()) {
			t.Errorf("image %d differs after round trip", i)
		}
	}
	if !reflect.DeepEqual(loaded.Fields(), d.Fields()) {
		t.Errorf("Fields() = %v, want %v", loaded.Fields(), d.Fields())
	}
}

func TestSaveLoad_DirectoryJSONExcludesImages(t *testing.T) {
	d := New(symbols.New("a"), pageImages(t, 1))
	dir := t.TempDir()
	if err := d.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}
	body, err := os.ReadFile(filepath.Join(dir, JSONFileName))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if bytes.Contains(body, []byte(`"images"`)) {
		t.Error("document.json contains images")
	}
}

func TestSave_DirectoryRequired(t *testing.T) {
	d := New(symbols.New("a"), pageImages(t, 1))
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := d.Save(path); !errors.Is(err, domain.ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition, got %v", err)
	}
	if err := d.Save(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, domain.ErrPrecondition) {
		t.Fatalf("missing dir: expected ErrPrecondition, got %v", err)
	}
}

func TestSaveLoad_SingleFileWithoutImages(t *testing.T) {
	d := New(symbols.New("hello world", "second page"), pageImages(t, 2))
	if err := d.Annotate(Set("tokens", token(0, 5))); err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := d.Save(path, WithoutImages()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Images() != nil {
		t.Error("images populated from a json-only file")
	}
	if got, _ := loaded.GetField("tokens"); len(got) != 1 {
		t.Errorf("expected 1 token, got %d", len(got))
	}
}

func TestSaveLoad_ImagesInJSON(t *testing.T) {
	images := pageImages(t, 2)
	d := New(symbols.New("a", "b"), images)
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := d.Save(path, ImagesInJSON()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Images()) != 2 {
		t.Fatalf("expected 2 embedded images, got %d", len(loaded.Images()))
	}
	if !bytes.Equal(loaded.Images()[1].Bytes(), images[1].Bytes()) {
		t.Error("embedded image changed")
	}
}

func TestSave_SubsetOfFields(t *testing.T) {
	d := annotatedDoc(t)
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := d.Save(path, WithoutImages(), SaveFields(FieldSymbols, "sentences")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.HasField("tokens") {
		t.Error("tokens saved although not requested")
	}
	if !loaded.HasField("sentences") {
		t.Error("sentences missing")
	}
}

func TestSave_SubsetAlwaysKeepsSymbols(t *testing.T) {
	d := annotatedDoc(t)
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := d.Save(path, WithoutImages(), SaveFields("tokens")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Symbols().Text() != d.Symbols().Text() {
		t.Errorf("symbols = %q", loaded.Symbols().Text())
	}
	if !loaded.HasField("tokens") || loaded.HasField("sentences") {
		t.Errorf("Fields() = %v", loaded.Fields())
	}
}

func TestLoad_NotFound(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json"), nil); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := Load(t.TempDir(), nil); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("empty dir: expected ErrNotFound, got %v", err)
	}
}

func TestLoadPageImages_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	images := pageImages(t, 3)
	for i, img := range images {
		if err := img.Save(filepath.Join(dir, strconv.Itoa(i)+".png")); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "cover.png"), images[0].Bytes(), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := loadPageImages(dir)
	if err != nil {
		t.Fatalf("loadPageImages: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 images, got %d", len(got))
	}
	if !bytes.Equal(got[2].Bytes(), images[2].Bytes()) {
		t.Error("pages out of order")
	}
}
