package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/annodoc/internal/db"
	"github.com/kailas-cloud/annodoc/internal/domain"
	"github.com/kailas-cloud/annodoc/internal/domain/annotation"
	domdoc "github.com/kailas-cloud/annodoc/internal/domain/document"
)

// store is the consumer interface for documents (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, keys ...string) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo keeps documents in Redis: the JSON body with embedded images under
// {prefix}doc:{id} and a summary hash under {prefix}meta:{id}.
type Repo struct {
	store  store
	prefix string
	reg    *annotation.Registry
	now    func() time.Time
}

// New creates a Redis document repository. reg decodes annotation fields on Get.
func New(s store, prefix string, reg *annotation.Registry) *Repo {
	return &Repo{store: s, prefix: prefix, reg: reg, now: time.Now}
}

// Save writes the document. Returns true if it did not exist before.
func (r *Repo) Save(ctx context.Context, doc *domdoc.Document) (bool, error) {
	data, err := doc.EncodeJSON(domdoc.WithImages())
	if err != nil {
		return false, fmt.Errorf("encode document: %w", err)
	}

	key := r.docKey(doc.ID())
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", key, err)
	}

	if err := r.store.Set(ctx, key, data); err != nil {
		return false, fmt.Errorf("set %s: %w", key, err)
	}

	sum := doc.Summary()
	fields, err := json.Marshal(sum.Fields)
	if err != nil {
		return false, fmt.Errorf("encode fields: %w", err)
	}
	meta := map[string]string{
		"id":         sum.ID.String(),
		"pages":      strconv.Itoa(sum.Pages),
		"images":     strconv.Itoa(sum.Images),
		"fields":     string(fields),
		"updated_at": strconv.FormatInt(r.now().UnixMilli(), 10),
	}
	metaKey := r.metaKey(doc.ID())
	if err := r.store.HSet(ctx, metaKey, meta); err != nil {
		return false, fmt.Errorf("hset %s: %w", metaKey, err)
	}

	return !exists, nil
}

// Get loads a document by ID. The loaded document keeps the stored identity.
func (r *Repo) Get(ctx context.Context, id uuid.UUID) (*domdoc.Document, error) {
	key := r.docKey(id)
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	doc, err := domdoc.Unmarshal(data, r.reg, domdoc.WithID(id))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return doc, nil
}

// List returns summaries of all stored documents ordered by ID.
func (r *Repo) List(ctx context.Context) ([]domdoc.Summary, error) {
	keys, err := r.store.Scan(ctx, r.prefix+"meta:*")
	if err != nil {
		return nil, fmt.Errorf("scan documents: %w", err)
	}
	sort.Strings(keys)

	metas, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("read summaries: %w", err)
	}

	out := make([]domdoc.Summary, 0, len(metas))
	for i, m := range metas {
		if len(m) == 0 {
			continue // deleted between SCAN and HGETALL
		}
		sum, err := parseSummary(m)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", keys[i], err)
		}
		out = append(out, sum)
	}
	return out, nil
}

// Delete removes a document and its summary.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := r.store.Del(ctx, r.docKey(id), r.metaKey(id))
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *Repo) docKey(id uuid.UUID) string {
	return r.prefix + "doc:" + id.String()
}

func (r *Repo) metaKey(id uuid.UUID) string {
	return r.prefix + "meta:" + id.String()
}

func parseSummary(m map[string]string) (domdoc.Summary, error) {
	id, err := uuid.Parse(m["id"])
	if err != nil {
		return domdoc.Summary{}, fmt.Errorf("id: %w", err)
	}
	pages, err := strconv.Atoi(m["pages"])
	if err != nil {
		return domdoc.Summary{}, fmt.Errorf("pages: %w", err)
	}
	images, _ := strconv.Atoi(m["images"])

	var fields []string
	if err := json.Unmarshal([]byte(m["fields"]), &fields); err != nil {
		return domdoc.Summary{}, fmt.Errorf("fields: %w", err)
	}
	return domdoc.Summary{ID: id, Pages: pages, Images: images, Fields: fields}, nil
}
