package document

import "github.com/google/uuid"

// Summary describes a stored document without its content.
type Summary struct {
	ID     uuid.UUID
	Pages  int
	Images int
	Fields []string
}

// Summary returns the document's listing view.
func (d *Document) Summary() Summary {
	return Summary{
		ID:     d.id,
		Pages:  d.PageCount(),
		Images: len(d.images),
		Fields: d.Fields(),
	}
}
