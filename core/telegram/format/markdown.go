package format

import "strings"

const mdV2Specials = "_*[]()~`>#+-=|{}.!\\"

// MDV2 escapes text for MarkdownV2.
func MDV2(text string) string {
	return escapeSet(text, mdV2Specials)
}

// Bold renders text as a bold MarkdownV2 entity.
func Bold(text string) string {
	return "*" + MDV2(text) + "*"
}

// Code renders text as an inline code MarkdownV2 entity. Inside code only
// '`' and '\' need escaping.
func Code(text string) string {
	return "`" + escapeSet(text, "`\\") + "`"
}

func escapeSet(text, specials string) string {
	if !strings.ContainsAny(text, specials) {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + 8)
	for _, r := range text {
		if strings.ContainsRune(specials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
