package document

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/kailas-cloud/annodoc/internal/domain"
	"github.com/kailas-cloud/annodoc/internal/domain/annotation"
	domdoc "github.com/kailas-cloud/annodoc/internal/domain/document"
)

const jsonExt = ".json"

// DirRepo keeps documents on the local filesystem under root. Each document
// is a directory {root}/{id} with document.json and numbered page images, or
// a single {root}/{id}.json with embedded images when imagesInJSON is set.
type DirRepo struct {
	root         string
	imagesInJSON bool
	reg          *annotation.Registry
}

// NewDirRepo creates a filesystem repository, creating root if needed.
func NewDirRepo(root string, imagesInJSON bool, reg *annotation.Registry) (*DirRepo, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", root, err)
	}
	return &DirRepo{root: root, imagesInJSON: imagesInJSON, reg: reg}, nil
}

// Save writes the document. Returns true if it did not exist before.
// The document is written to a staging path first and swapped in; the
// previous version is moved aside and restored if the swap fails.
func (r *DirRepo) Save(ctx context.Context, doc *domdoc.Document) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	target := r.path(doc.ID())
	_, statErr := os.Stat(target)
	created := errors.Is(statErr, fs.ErrNotExist)

	staging := filepath.Join(r.root, "."+doc.ID().String()+".tmp")
	if err := os.RemoveAll(staging); err != nil {
		return false, fmt.Errorf("clear staging %s: %w", staging, err)
	}

	if r.imagesInJSON {
		if err := doc.Save(staging, domdoc.ImagesInJSON()); err != nil {
			_ = os.RemoveAll(staging)
			return false, err
		}
	} else {
		if err := os.Mkdir(staging, 0o750); err != nil {
			return false, fmt.Errorf("create %s: %w", staging, err)
		}
		if err := doc.Save(staging); err != nil {
			_ = os.RemoveAll(staging)
			return false, err
		}
	}

	backup := filepath.Join(r.root, "."+doc.ID().String()+".old")
	if err := swapIn(staging, target, backup); err != nil {
		_ = os.RemoveAll(staging)
		return false, err
	}
	return created, nil
}

// swapIn replaces target with staging. An existing target is parked at
// backup until the rename succeeds and put back otherwise.
func swapIn(staging, target, backup string) error {
	if err := os.RemoveAll(backup); err != nil {
		return fmt.Errorf("clear backup %s: %w", backup, err)
	}
	hadTarget := true
	if err := os.Rename(target, backup); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("replace %s: %w", target, err)
		}
		hadTarget = false
	}
	if err := os.Rename(staging, target); err != nil {
		if hadTarget {
			if rerr := os.Rename(backup, target); rerr != nil {
				return fmt.Errorf("replace %s: %w (restore failed: %w)", target, err, rerr)
			}
		}
		return fmt.Errorf("replace %s: %w", target, err)
	}
	if hadTarget {
		_ = os.RemoveAll(backup)
	}
	return nil
}

// Get loads a document by ID.
func (r *DirRepo) Get(ctx context.Context, id uuid.UUID) (*domdoc.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := domdoc.Load(r.path(id), r.reg, domdoc.WithID(id))
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", id, err)
	}
	return doc, nil
}

// List returns summaries of all stored documents ordered by ID.
func (r *DirRepo) List(ctx context.Context) ([]domdoc.Summary, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.root, err)
	}

	var ids []uuid.UUID
	for _, e := range entries {
		name := e.Name()
		if r.imagesInJSON {
			if e.IsDir() || !strings.HasSuffix(name, jsonExt) {
				continue
			}
			name = strings.TrimSuffix(name, jsonExt)
		} else if !e.IsDir() {
			continue
		}
		id, err := uuid.Parse(name)
		if err != nil {
			continue // staging entries and foreign files
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	out := make([]domdoc.Summary, 0, len(ids))
	for _, id := range ids {
		doc, err := r.Get(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, doc.Summary())
	}
	return out, nil
}

// Delete removes a document.
func (r *DirRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := r.path(id)
	if _, err := os.Stat(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("stat %s: %w", target, err)
	}
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("delete %s: %w", target, err)
	}
	return nil
}

// Ping checks that the storage root is still a reachable directory.
func (r *DirRepo) Ping(context.Context) error {
	info, err := os.Stat(r.root)
	if err != nil {
		return fmt.Errorf("stat %s: %w", r.root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", r.root)
	}
	return nil
}

func (r *DirRepo) path(id uuid.UUID) string {
	if r.imagesInJSON {
		return filepath.Join(r.root, id.String()+jsonExt)
	}
	return filepath.Join(r.root, id.String())
}
