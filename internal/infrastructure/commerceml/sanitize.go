package commerceml

import (
	"strings"

	"golang.org/x/net/html"
)

// allowedDescriptionTags are kept, without attributes, when cleaning
// product descriptions. Other tags are stripped and their text kept.
var allowedDescriptionTags = map[string]bool{
	"p": true, "br": true, "strong": true, "b": true, "em": true, "i": true,
	"ul": true, "ol": true, "li": true, "h2": true, "h3": true, "h4": true,
	"table": true, "tr": true, "td": true, "th": true,
}

// droppedContentTags lose their text as well as the tag itself.
var droppedContentTags = map[string]bool{"script": true, "style": true}

// CleanDescription decodes HTML entities in an ERP description and strips
// every tag outside the allow-list.
func CleanDescription(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	decoded := html.UnescapeString(raw)

	var b strings.Builder
	skipDepth := 0
	z := html.NewTokenizer(strings.NewReader(decoded))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or a tokenizer error; either way the rest is unusable.
			return strings.TrimSpace(b.String())
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Raw())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if droppedContentTags[tag] && tt == html.StartTagToken {
				skipDepth++
				continue
			}
			if skipDepth == 0 && allowedDescriptionTags[tag] {
				b.WriteString("<" + tag + ">")
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if droppedContentTags[tag] {
				if skipDepth > 0 {
					skipDepth--
				}
				continue
			}
			if skipDepth == 0 && allowedDescriptionTags[tag] && tag != "br" {
				b.WriteString("</" + tag + ">")
			}
		}
	}
}
