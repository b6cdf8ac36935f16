package document

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strconv"

	"github.com/kailas-cloud/annodoc/internal/domain"
	"github.com/kailas-cloud/annodoc/internal/domain/annotation"
	"github.com/kailas-cloud/annodoc/internal/domain/pageimage"
)

// JSONFileName is the document body inside a directory layout.
const JSONFileName = "document.json"

var pageFileRegex = regexp.MustCompile(`^(\d+)` + regexp.QuoteMeta(pageimage.Extension) + `$`)

// SaveOption configures Save.
type SaveOption func(*saveConfig)

type saveConfig struct {
	fields       []string
	withImages   bool
	imagesInJSON bool
}

// SaveFields restricts the saved fields. Symbols are always written since
// Load cannot rebuild a document without them.
func SaveFields(names ...string) SaveOption {
	fields := make([]string, 0, len(names)+1)
	if !slices.Contains(names, FieldSymbols) {
		fields = append(fields, FieldSymbols)
	}
	fields = append(fields, names...)
	return func(c *saveConfig) {
		c.fields = fields
	}
}

// WithoutImages skips the page images.
func WithoutImages() SaveOption {
	return func(c *saveConfig) {
		c.withImages = false
	}
}

// ImagesInJSON embeds images as base64 in a single JSON file instead of
// writing them next to it.
func ImagesInJSON() SaveOption {
	return func(c *saveConfig) {
		c.imagesInJSON = true
	}
}

// Save persists the document. By default path must be an existing directory
// that receives document.json plus one {page}.png per image. With
// WithoutImages or ImagesInJSON, path is the JSON file to write.
func (d *Document) Save(path string, opts ...SaveOption) error {
	cfg := saveConfig{withImages: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	dirLayout := cfg.withImages && !cfg.imagesInJSON

	if dirLayout {
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("save with sidecar images needs an existing directory, got %s: %w",
				path, domain.ErrPrecondition)
		}
	}

	jsonOpts := []JSONOption{Fields(cfg.fields...)}
	if cfg.fields == nil {
		jsonOpts = nil
	}
	if cfg.withImages && cfg.imagesInJSON {
		jsonOpts = append(jsonOpts, WithImages())
	}
	body, err := d.EncodeJSON(jsonOpts...)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}

	jsonPath := path
	if dirLayout {
		jsonPath = filepath.Join(path, JSONFileName)
	}
	if err := os.WriteFile(jsonPath, body, 0o600); err != nil {
		return fmt.Errorf("save: write %s: %w", jsonPath, err)
	}

	if !dirLayout {
		return nil
	}
	for i, img := range d.images {
		if err := img.Save(filepath.Join(path, strconv.Itoa(i)+pageimage.Extension)); err != nil {
			return fmt.Errorf("save page %d: %w", i, err)
		}
	}
	return nil
}

// Load reads a document written by Save. A directory yields document.json
// plus its numbered page images in page order. A file yields the JSON body
// alone; its images are populated only when Save embedded them with
// ImagesInJSON, so a file saved any other way loads without images.
func Load(path string, reg *annotation.Registry, opts ...Option) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	jsonPath := path
	var images []*pageimage.Image
	if info.IsDir() {
		jsonPath = filepath.Join(path, JSONFileName)
		images, err = loadPageImages(path)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(filepath.Clean(jsonPath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", jsonPath, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("load %s: %w", jsonPath, err)
	}

	doc, err := Unmarshal(data, reg, opts...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", jsonPath, err)
	}
	if info.IsDir() {
		doc.SetImages(images)
	}
	return doc, nil
}

// loadPageImages reads {n}.png files sorted by n, so 10.png follows 9.png.
func loadPageImages(dir string) ([]*pageimage.Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	type pageFile struct {
		page int
		name string
	}
	var files []pageFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := pageFileRegex.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		files = append(files, pageFile{page: n, name: e.Name()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].page < files[j].page })

	if len(files) == 0 {
		return nil, nil
	}
	images := make([]*pageimage.Image, len(files))
	for i, f := range files {
		img, err := pageimage.Load(filepath.Join(dir, f.name))
		if err != nil {
			return nil, err
		}
		images[i] = img
	}
	return images, nil
}
