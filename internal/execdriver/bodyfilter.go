package execdriver

import "strings"

// bodySniffWindow bounds how much of a response body is inspected when
// classifying it as HTML.
const bodySniffWindow = 512

// isHTMLBody reports whether body looks like an HTML document — a
// DOCTYPE or <html> tag in its first bytes — rather than the
// JSON/plaintext payload an invoked endpoint is expected to return.
func isHTMLBody(body []byte) bool {
	if len(body) == 0 {
		return false
	}
	n := len(body)
	if n > bodySniffWindow {
		n = bodySniffWindow
	}
	head := strings.ToLower(strings.TrimSpace(string(body[:n])))
	return strings.HasPrefix(head, "<!doctype") || strings.HasPrefix(head, "<html")
}

// filterBody returns nil for an empty or HTML-sniffed body (HTML
// responses are not persisted); otherwise the body is stored verbatim.
func filterBody(body []byte) *string {
	if len(body) == 0 || isHTMLBody(body) {
		return nil
	}
	s := string(body)
	return &s
}
