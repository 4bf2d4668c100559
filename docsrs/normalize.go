// Package docsrs implements the rendered-docs source adapter for
// latest-docs mode. It fetches the canonical rendered page for a package
// version, extracts the main article, and normalizes it into a single
// deterministic API.md artifact.
package docsrs

import (
	"bytes"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

// ArtifactName is the single file a rendered-docs fetch produces.
const ArtifactName = "API.md"

// maxIndexLinks caps the module-index list in the API Reference section.
const maxIndexLinks = 20

// articleSelectors locate the main article, most specific first. The
// rustdoc selectors come first; the generic ones cover other rendered-docs
// services.
var articleSelectors = []string{
	"#main-content",
	"div.rustdoc",
	"main",
	"article",
	"div[role=main]",
}

// strippedSelectors are removed from the article before conversion.
var strippedSelectors = []string{
	"nav", "script", "style", "header", "footer",
	".sidebar", ".nav-container", ".mobile-topbar", ".search-form",
	"#settings-menu", ".out-of-band", ".src", ".rightside",
}

// Normalizer converts a rendered HTML page into the API.md artifact.
type Normalizer struct {
	conv *converter.Converter
}

// NewNormalizer creates a Normalizer with the commonmark and table
// plugins, matching how the rest of the pipeline treats markdown.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Normalize produces the artifact markdown for a package version from the
// fetched page. The result is deterministic for identical inputs. The
// degraded flag is set when a mandatory section could not be produced, in
// which case the output is still well-formed but must not be reported as a
// rendered-docs success.
func (n *Normalizer) Normalize(name, version, pageURL, rawHTML string) (string, bool) {
	article, links := n.extractArticle(name, version, pageURL, rawHTML)

	markdown := ""
	if article != "" {
		if converted, err := n.conv.ConvertString(article); err == nil {
			markdown = strings.TrimSpace(converted)
		}
	}
	if markdown == "" {
		markdown = extractWithTrafilatura(rawHTML, n.conv)
	}

	// A preserved fenced code block is a mandatory section: content that
	// survives extraction without one is degraded, never padded to pass.
	degraded := markdown == "" || !strings.Contains(markdown, "```")

	var b strings.Builder
	fmt.Fprintf(&b, "# %s@%s\n\n", name, version)

	b.WriteString("## Overview\n\n")
	if markdown != "" {
		b.WriteString(markdown)
		b.WriteString("\n\n")
	} else {
		fmt.Fprintf(&b, "No rendered documentation could be extracted for `%s` `%s`.\n\n", name, version)
	}

	b.WriteString("## API Reference\n\n")
	fmt.Fprintf(&b, "- [crate page](%s)\n", pageURL)
	for _, link := range links {
		fmt.Fprintf(&b, "- [%s](%s)\n", link.text, link.href)
	}
	b.WriteString("\n")

	b.WriteString("---\n")
	fmt.Fprintf(&b, "Source: %s\n", pageURL)

	return b.String(), degraded
}

type indexLink struct {
	text string
	href string
}

// extractArticle returns the cleaned article HTML and the module-index
// links, both with relative URLs rewritten absolute against the page URL.
func (n *Normalizer) extractArticle(name, version, pageURL, rawHTML string) (string, []indexLink) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return "", nil
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return "", nil
	}

	for _, sel := range strippedSelectors {
		doc.Find(sel).Remove()
	}

	var article *goquery.Selection
	for _, sel := range articleSelectors {
		if found := doc.Find(sel).First(); found.Length() > 0 {
			article = found
			break
		}
	}
	if article == nil {
		return "", collectIndexLinks(doc.Selection, base, name, version)
	}

	// Rewrite relative links to absolute so the artifact is readable
	// outside the docs site.
	article.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if resolved := resolveHref(base, href); resolved != "" {
			sel.SetAttr("href", resolved)
		}
	})

	links := collectIndexLinks(article, base, name, version)

	htmlOut, err := goquery.OuterHtml(article)
	if err != nil {
		return "", links
	}
	return htmlOut, links
}

// collectIndexLinks gathers in-version module links (hrefs under
// /<name>/<version>/), deduplicated and sorted for determinism.
func collectIndexLinks(sel *goquery.Selection, base *url.URL, name, version string) []indexLink {
	marker := "/" + name + "/" + version + "/"
	seen := make(map[string]string)
	sel.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		resolved := resolveHref(base, href)
		if resolved == "" || !strings.Contains(resolved, marker) {
			return
		}
		if _, ok := seen[resolved]; !ok {
			text := strings.TrimSpace(a.Text())
			if text == "" {
				text = resolved
			}
			seen[resolved] = text
		}
	})

	hrefs := make([]string, 0, len(seen))
	for href := range seen {
		hrefs = append(hrefs, href)
	}
	sort.Strings(hrefs)
	if len(hrefs) > maxIndexLinks {
		hrefs = hrefs[:maxIndexLinks]
	}

	links := make([]indexLink, 0, len(hrefs))
	for _, href := range hrefs {
		links = append(links, indexLink{text: seen[href], href: href})
	}
	return links
}

func resolveHref(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""
	return resolved.String()
}

// extractWithTrafilatura is the fallback extractor for pages whose
// structure none of the selectors match.
func extractWithTrafilatura(rawHTML string, conv *converter.Converter) string {
	result, err := trafilatura.Extract(strings.NewReader(rawHTML), trafilatura.Options{
		EnableFallback: true,
	})
	if err != nil || result == nil || result.ContentNode == nil {
		return ""
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, result.ContentNode); err != nil {
		return ""
	}
	converted, err := conv.ConvertString(buf.String())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(converted)
}
