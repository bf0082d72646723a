// Package tomes turns ERP event snapshots into the XML documents and queue
// messages the MES consumes. Each translator returns the generated documents
// as bytes; the caller archives them and references the archive keys in the
// queue message.
package tomes

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const xmlHeader = "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n"

var (
	filenamePattern = regexp.MustCompile(`[^a-zA-Z0-9-_.]`)
	isoDatePattern  = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})T`)
)

// SanitizeFilename replaces every character that is unsafe in a Windows
// filename, since the MES writes the document under this name.
func SanitizeFilename(name string) string {
	return filenamePattern.ReplaceAllString(name, "_")
}

// shortDate reduces an ISO timestamp ("2021-05-21T00:00:00...") to the plain
// date the MES expects.
func shortDate(datetime string) (string, error) {
	m := isoDatePattern.FindStringSubmatch(datetime)
	if m == nil {
		return "", fmt.Errorf("unknown date format: %s", datetime)
	}
	return m[1], nil
}

// operationNumber parses a zero-padded operation string ("0010") into its
// numeric value.
func operationNumber(op string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(op))
	if err != nil {
		return 0, fmt.Errorf("operation %q is not numeric: %w", op, err)
	}
	return n, nil
}

// formatQuantity renders a float the way the MES expects decimal strings.
func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

// renderXML marshals a document with the MES's expected declaration.
func renderXML(v any) ([]byte, error) {
	body, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render XML: %w", err)
	}
	out := make([]byte, 0, len(xmlHeader)+len(body)+1)
	out = append(out, xmlHeader...)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}

// cdata wraps text that may contain XML-hostile characters, such as material
// descriptions.
type cdata struct {
	Value string `xml:",cdata"`
}
