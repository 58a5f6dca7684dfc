// Package template renders the placeholder dialect used by workflow
// actions ("{correspondent}", "{created_year}", ...) against a document
// context.
package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/docflow/docflow/pkg/models"
)

var placeholderPattern = regexp.MustCompile(`\{([a-z_][a-z0-9_]*)\}`)

// Render expands every {placeholder} in input from data. An unknown
// placeholder fails the whole render; callers decide whether that skips
// the action or only the field.
func Render(input string, data map[string]string) (string, error) {
	converted := placeholderPattern.ReplaceAllString(input, `{{.$1}}`)

	tmpl, err := template.New("action").Option("missingkey=error").Parse(converted)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", input, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", input, err)
	}

	return buf.String(), nil
}

// NameResolver maps entity IDs to display names.
type NameResolver interface {
	Name(id string) (string, bool)
}

// DocumentContext builds the placeholder data for one document. Entity
// names (correspondent, document type, owner) come from the resolver; a
// nil resolver leaves raw IDs, which keeps rendering usable in tests and
// in installs without a directory service.
func DocumentContext(doc *models.Document, resolve NameResolver) map[string]string {
	data := map[string]string{
		"doc_title":         doc.Title,
		"original_filename": doc.OriginalFilename,
		"created":           doc.CreatedAt.Format("2006-01-02"),
		"created_year":      strconv.Itoa(doc.CreatedAt.Year()),
		"created_month":     fmt.Sprintf("%02d", int(doc.CreatedAt.Month())),
		"created_day":       fmt.Sprintf("%02d", doc.CreatedAt.Day()),
		"added":             doc.AddedAt.Format("2006-01-02"),
		"added_year":        strconv.Itoa(doc.AddedAt.Year()),
	}

	data["correspondent"] = resolveRef(doc.CorrespondentID, resolve)
	data["document_type"] = resolveRef(doc.DocumentTypeID, resolve)
	data["owner"] = resolveRef(doc.OwnerID, resolve)

	return data
}

func resolveRef(id *string, resolve NameResolver) string {
	if id == nil {
		return ""
	}

	if resolve != nil {
		if name, ok := resolve.Name(*id); ok {
			return name
		}
	}

	return *id
}
