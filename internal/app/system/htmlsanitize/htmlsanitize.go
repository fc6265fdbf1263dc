// Package htmlsanitize provides HTML sanitization for staff-entered rich text
// (facet and milestone descriptions, the site description block). It uses
// bluemonday to strip dangerous HTML while preserving safe formatting.
package htmlsanitize

import (
	"html/template"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// getPolicy returns the shared sanitization policy, creating it on first use.
func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		// UGC policy allows common formatting: bold, italic, lists, links.
		policy = bluemonday.UGCPolicy()

		// Extra inline formatting used in descriptions
		policy.AllowElements("u", "s", "sub", "sup", "mark")
	})
	return policy
}

// Sanitize cleans HTML input, removing potentially dangerous elements and
// attributes. Returns the sanitized HTML string.
func Sanitize(html string) string {
	if html == "" {
		return ""
	}
	return getPolicy().Sanitize(html)
}

// SanitizeToHTML sanitizes HTML input and returns it as template.HTML,
// which is safe to render directly in Go templates without escaping.
func SanitizeToHTML(html string) template.HTML {
	return template.HTML(Sanitize(html))
}

// IsPlainText checks if content appears to be plain text (no HTML tags).
func IsPlainText(content string) bool {
	if content == "" {
		return true
	}
	return !strings.Contains(content, "<") || !strings.Contains(content, ">")
}

// PlainTextToHTML converts plain text to minimal HTML: escapes entities,
// converts newlines to <br>, and wraps the result in a <p> tag.
func PlainTextToHTML(text string) string {
	if text == "" {
		return ""
	}
	escaped := template.HTMLEscapeString(text)
	escaped = strings.ReplaceAll(escaped, "\n", "<br>")
	return "<p>" + escaped + "</p>"
}

// PrepareForDisplay takes content (plain text or HTML) and returns sanitized
// template.HTML ready for rendering. Plain text is converted to HTML first.
func PrepareForDisplay(content string) template.HTML {
	if content == "" {
		return ""
	}
	if IsPlainText(content) {
		return template.HTML(PlainTextToHTML(content))
	}
	return SanitizeToHTML(content)
}
