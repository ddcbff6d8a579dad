package services

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxChars bounds content handed back to the agent so a single page
// cannot flood its context window.
const DefaultMaxChars = 20_000

var (
	reNoise   = regexp.MustCompile(`(?is)<(script|style|noscript|iframe|nav|footer)[^>]*>.*?</(?:script|style|noscript|iframe|nav|footer)>`)
	reHeading = regexp.MustCompile(`(?is)<h([1-6])[^>]*>(.*?)</h[1-6]>`)
	reAnchor  = regexp.MustCompile(`(?is)<a[^>]+href="([^"]+)"[^>]*>(.*?)</a>`)
	reBreak   = regexp.MustCompile(`(?i)<(?:br|/p|/div|/li|/tr)[^>]*>`)
	reTag     = regexp.MustCompile(`(?s)<[^>]*>`)
)

// HTMLToMarkdown converts unlocked page HTML into lean Markdown-ish text:
// noise blocks stripped, headings and links preserved, everything else
// flattened and whitespace collapsed. Not a full parser; good enough for
// agent consumption.
func HTMLToMarkdown(html string) string {
	s := reNoise.ReplaceAllString(html, "")
	s = reHeading.ReplaceAllStringFunc(s, func(m string) string {
		parts := reHeading.FindStringSubmatch(m)
		level := int(parts[1][0] - '0')
		return "\n" + strings.Repeat("#", level) + " " + stripTags(parts[2]) + "\n"
	})
	s = reAnchor.ReplaceAllStringFunc(s, func(m string) string {
		parts := reAnchor.FindStringSubmatch(m)
		text := strings.TrimSpace(stripTags(parts[2]))
		if text == "" {
			return ""
		}
		return fmt.Sprintf("[%s](%s)", text, parts[1])
	})
	s = reBreak.ReplaceAllString(s, "\n")
	s = stripTags(s)
	s = unescapeEntities(s)

	var lines []string
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.Join(strings.Fields(line), " ")
		if trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return strings.Join(lines, "\n")
}

func stripTags(s string) string {
	return reTag.ReplaceAllString(s, " ")
}

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&nbsp;", " ",
)

func unescapeEntities(s string) string {
	return entityReplacer.Replace(s)
}

// Truncate caps content at max bytes, appending an explicit marker so the
// caller knows the original length. The cut backs off to a rune boundary so
// the result stays valid UTF-8.
func Truncate(content string, max int) string {
	if max <= 0 {
		max = DefaultMaxChars
	}
	if len(content) <= max {
		return content
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + fmt.Sprintf("\n\n... [content truncated, original length: %d chars]", len(content))
}
