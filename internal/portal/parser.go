package portal

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Page is what the client needs from a portal HTML page.
type Page struct {
	// URL is the final URL of the page after redirects.
	URL string

	// Title is the page title from <title> tag.
	Title string

	// Text is the visible text, one block element per line and cells
	// separated by tabs, similar to a browser's innerText.
	Text string

	// Forms contains information about HTML forms.
	Forms []Form

	// Rows are the table rows that contain data cells.
	Rows []Row

	// Links contains every resolved href on the page.
	Links []string
}

// Form contains information about an HTML form.
type Form struct {
	Action string
	Method string
	Fields []FormField
}

// FormField represents a form input field.
type FormField struct {
	Name    string
	Type    string
	Value   string
	Checked bool
}

// Row is a table row with its cell texts and the links inside it.
type Row struct {
	Cells []string
	Links []Link
}

// Link is an anchor in a table row.
type Link struct {
	// Href is the attribute value as written in the page.
	Href string
	// URL is Href resolved against the page URL.
	URL string
}

// Lines returns the non-empty, trimmed lines of the visible text.
func (p *Page) Lines() []string {
	return splitLines(p.Text)
}

// FindForm returns the first form whose action contains s.
func (p *Page) FindForm(s string) (*Form, bool) {
	for i := range p.Forms {
		if strings.Contains(p.Forms[i].Action, s) {
			return &p.Forms[i], true
		}
	}
	return nil, false
}

// HasField reports whether the form has a field with the given name.
func (f *Form) HasField(name string) bool {
	for _, field := range f.Fields {
		if field.Name == name {
			return true
		}
	}
	return false
}

// Values returns the data a browser would submit for the form with the
// given overrides. Only the first named submit button is included.
func (f *Form) Values(overrides map[string]string) url.Values {
	v := url.Values{}
	submitted := false
	for _, field := range f.Fields {
		switch field.Type {
		case "submit", "image":
			if submitted {
				continue
			}
			submitted = true
		case "button", "reset", "file":
			continue
		case "checkbox", "radio":
			if !field.Checked {
				continue
			}
			if field.Value == "" {
				field.Value = "on"
			}
		}
		v.Add(field.Name, field.Value)
	}
	for name, value := range overrides {
		v.Set(name, value)
	}
	return v
}

// blockElements start a new line in the visible text.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "br": true,
	"dd": true, "div": true, "dl": true, "dt": true, "fieldset": true, "footer": true,
	"form": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true, "ol": true,
	"p": true, "section": true, "table": true, "tr": true, "ul": true,
}

// hiddenElements never contribute visible text.
var hiddenElements = map[string]bool{
	"head": true, "script": true, "style": true, "noscript": true, "template": true,
	"select": true, "textarea": true,
}

// Parse reads an HTML page. baseURL resolves relative form actions and links.
func Parse(r io.Reader, baseURL string) (*Page, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	page := &Page{URL: baseURL}
	var text strings.Builder
	writeText(&text, doc)
	page.Text = text.String()

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					page.Title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "a":
				if href := resolveURL(base, getAttr(n, "href")); href != "" {
					page.Links = append(page.Links, href)
				}
			case "form":
				form := Form{
					Action: resolveURL(base, getAttr(n, "action")),
					Method: strings.ToUpper(getAttr(n, "method")),
				}
				if form.Action == "" {
					form.Action = base.String()
				}
				if form.Method == "" {
					form.Method = "GET"
				}
				extractFormFields(n, &form)
				page.Forms = append(page.Forms, form)
			case "tr":
				if row, ok := parseRow(base, n); ok {
					page.Rows = append(page.Rows, row)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return page, nil
}

// writeText renders the visible text of n.
func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(collapseSpace(n.Data))
		return
	case html.ElementNode:
		if hiddenElements[n.Data] {
			return
		}
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteByte('\n')
	}
	if n.Type == html.ElementNode && (n.Data == "td" || n.Data == "th") {
		b.WriteByte('\t')
	}
}

// collapseSpace replaces runs of whitespace with a single space.
func collapseSpace(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" {
			return " "
		}
		return ""
	}
	out := strings.Join(fields, " ")
	if strings.TrimLeft(s, " \t\r\n") != s {
		out = " " + out
	}
	if strings.TrimRight(s, " \t\r\n") != s {
		out += " "
	}
	return out
}

// parseRow collects the data cells of a table row. Header-only rows are skipped.
func parseRow(base *url.URL, tr *html.Node) (Row, bool) {
	var row Row
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "td" {
			continue
		}
		var b strings.Builder
		writeText(&b, c)
		row.Cells = append(row.Cells, strings.Join(strings.Fields(b.String()), " "))
		collectLinks(base, c, &row.Links)
	}
	return row, len(row.Cells) > 0
}

func collectLinks(base *url.URL, n *html.Node, links *[]Link) {
	if n.Type == html.ElementNode && n.Data == "a" {
		raw := strings.TrimSpace(getAttr(n, "href"))
		if resolved := resolveURL(base, raw); resolved != "" {
			*links = append(*links, Link{Href: raw, URL: resolved})
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectLinks(base, c, links)
	}
}

// extractFormFields recursively extracts form fields from a form element.
func extractFormFields(n *html.Node, form *Form) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "input", "select", "textarea", "button":
			field := FormField{
				Name:  getAttr(n, "name"),
				Type:  strings.ToLower(getAttr(n, "type")),
				Value: getAttr(n, "value"),
			}
			_, field.Checked = lookupAttr(n, "checked")
			if field.Type == "" {
				switch n.Data {
				case "button":
					field.Type = "submit"
				case "input":
					field.Type = "text"
				default:
					field.Type = n.Data
				}
			}
			if n.Data == "select" {
				field.Value = selectedOption(n)
			}
			if field.Name != "" {
				form.Fields = append(form.Fields, field)
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractFormFields(c, form)
	}
}

// selectedOption returns the value of the selected option, or the first one.
func selectedOption(sel *html.Node) string {
	first, found := "", false
	var walk func(*html.Node) (string, bool)
	walk = func(n *html.Node) (string, bool) {
		if n.Type == html.ElementNode && n.Data == "option" {
			v, ok := lookupAttr(n, "value")
			if !ok && n.FirstChild != nil {
				v = strings.TrimSpace(n.FirstChild.Data)
			}
			if !found {
				first, found = v, true
			}
			if _, selected := lookupAttr(n, "selected"); selected {
				return v, true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if v, ok := walk(c); ok {
				return v, true
			}
		}
		return "", false
	}
	if v, ok := walk(sel); ok {
		return v
	}
	return first
}

// resolveURL resolves a relative URL against the base URL.
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}
