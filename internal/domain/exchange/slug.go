package exchange

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// AttributePrefix is prepended to slugs of variation attribute taxonomies.
const AttributePrefix = "pa_"

// maxSlugLength keeps taxonomy names within the store's column size.
const maxSlugLength = 28

var cyrillicToLatin = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "yo",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "j", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "h", 'ц': "c", 'ч': "ch", 'ш': "sh", 'щ': "shh", 'ъ': "",
	'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
	'і': "i", 'ї': "yi", 'є': "ye", 'ґ': "g",
}

var slugLower = cases.Lower(language.Russian)

// Slugify normalizes a foreign property name into an ASCII slug. Equal
// names always produce equal slugs, which makes attribute creation
// idempotent.
func Slugify(name string) string {
	lowered := slugLower.String(strings.TrimSpace(name))

	var b strings.Builder
	dash := false
	for _, r := range lowered {
		if latin, ok := cyrillicToLatin[r]; ok {
			b.WriteString(latin)
			dash = false
			continue
		}
		for _, d := range norm.NFKD.String(string(r)) {
			if unicode.Is(unicode.Mn, d) {
				continue
			}
			if d < unicode.MaxASCII && (unicode.IsLetter(d) || unicode.IsDigit(d)) {
				b.WriteRune(d)
				dash = false
				continue
			}
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	return slug
}

// AttributeTaxonomy returns the taxonomy name of a variation attribute.
func AttributeTaxonomy(name string) string {
	return AttributePrefix + Slugify(name)
}
