// Package formutil provides helpers for form re-rendering with validation errors.
//
// When a form submission fails validation, the form should be re-rendered with:
// - The user's previously entered values (echoed back)
// - An error message explaining what went wrong
// - All the context data needed for the form (dropdowns, etc.)
//
// This package provides a Base struct that can be embedded in form data structs
// to handle the common fields, and helper functions to populate them.
//
// Example usage:
//
//	type newFacetData struct {
//		formutil.Base
//		FacetTitle  string
//		Description string
//	}
//
//	// In your handler:
//	data := newFacetData{
//		Base: formutil.NewBase(r, db, "Add Facet", "/staff/facets"),
//		FacetTitle: title,
//		Description: desc,
//	}
//	data.SetError("Title is required.")
//	templates.Render(w, r, "stafffacets/facet_new", data)
package formutil

import (
	"html/template"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/alquimista/website/internal/app/system/viewdata"
	"go.mongodb.org/mongo-driver/mongo"
)

// Base contains common fields for form pages that can be embedded in form data structs.
// It embeds viewdata.BaseVM for site settings and user context, and adds Error for form validation.
type Base struct {
	viewdata.BaseVM
	Error template.HTML
}

// NewBase creates a fully populated Base for a form page.
// This is the preferred way to create a Base for embedding in form view models.
func NewBase(r *http.Request, db *mongo.Database, title, backDefault string) Base {
	return Base{
		BaseVM: viewdata.NewBaseVM(r, db, title, backDefault),
	}
}

// SetError sets the error message on a Base struct.
// This is a convenience method for setting Error as template.HTML.
func (b *Base) SetError(msg string) {
	b.Error = template.HTML(msg)
}

// Record is one entry of an indexed record list submitted in a single form.
// Fields are posted as "<prefix>.<index>.<field>" (e.g. "pdf.0.name",
// "pdf.0.order", "pdf.1.delete") with an optional file part under
// "<prefix>.<index>.file".
type Record struct {
	Index  int
	Values map[string]string
	File   *multipart.FileHeader
}

// Value returns the named field of the record, trimmed.
func (rec Record) Value(field string) string {
	return strings.TrimSpace(rec.Values[field])
}

// Int returns the named field parsed as an integer, or def if absent or invalid.
func (rec Record) Int(field string, def int) int {
	n, err := strconv.Atoi(rec.Value(field))
	if err != nil {
		return def
	}
	return n
}

// Bool reports whether the named field was submitted with a truthy value
// ("1", "true", "on").
func (rec Record) Bool(field string) bool {
	switch strings.ToLower(rec.Value(field)) {
	case "1", "true", "on":
		return true
	}
	return false
}

// Records parses an indexed record list from a multipart form. The request's
// form must already be parsed (ParseMultipartForm or ParseForm). Records are
// returned in index order; gaps in the index sequence are allowed.
func Records(r *http.Request, prefix string) []Record {
	byIndex := make(map[int]*Record)

	record := func(idx int) *Record {
		rec, ok := byIndex[idx]
		if !ok {
			rec = &Record{Index: idx, Values: make(map[string]string)}
			byIndex[idx] = rec
		}
		return rec
	}

	for key, vals := range r.Form {
		idx, field, ok := splitRecordKey(key, prefix)
		if !ok || len(vals) == 0 {
			continue
		}
		record(idx).Values[field] = vals[0]
	}

	if r.MultipartForm != nil {
		for key, files := range r.MultipartForm.File {
			idx, field, ok := splitRecordKey(key, prefix)
			if !ok || field != "file" || len(files) == 0 {
				continue
			}
			record(idx).File = files[0]
		}
	}

	out := make([]Record, 0, len(byIndex))
	for _, rec := range byIndex {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// splitRecordKey breaks "<prefix>.<index>.<field>" into its index and field.
func splitRecordKey(key, prefix string) (idx int, field string, ok bool) {
	rest, found := strings.CutPrefix(key, prefix+".")
	if !found {
		return 0, "", false
	}
	idxStr, field, found := strings.Cut(rest, ".")
	if !found || field == "" {
		return 0, "", false
	}
	idx, err := strconv.Atoi(idxStr)
	if err != nil || idx < 0 {
		return 0, "", false
	}
	return idx, field, true
}
