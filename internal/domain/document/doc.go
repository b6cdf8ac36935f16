// Package document is the annotation model of a page-oriented document.
//
// A [Document] owns a symbol stream and optional page images. Named fields
// of annotations are attached to it in two ways:
//
//   - [Document.Annotate] registers the field, binds every annotation to the
//     document (resolving its spans and filling the field's indexer) and
//     stores the sequence.
//   - [Document.Add] stores annotations that are already bound to this
//     document, e.g. when rebuilding from JSON.
//
// Fields are queried by position with [Document.Find], serialized with
// [Document.ToJSON] and persisted with [Document.Save] and [Load]:
//
//	doc := document.New(symbols.New("page one", "page two"), nil)
//	err := doc.Annotate(document.Set("tokens", tok1, tok2))
//	hits, err := doc.Find(query, "tokens")
//	err = doc.Save(dir)
//
// Field names must not be empty, start with "_", equal "fields", repeat an
// existing field, or shadow a Document member name.
package document
