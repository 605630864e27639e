package moderation

import (
	"strings"
	"unicode"
)

/*
========================
 Normalización de texto
========================
*/

// leetMap traduce dígitos y símbolos usados para evadir los lexicones.
// Solo se aplica cuando el carácter está pegado a una letra, para no
// destruir números reales (edades, cantidades).
var leetMap = map[rune]rune{
	'0': 'o',
	'1': 'i',
	'3': 'e',
	'4': 'a',
	'5': 's',
	'7': 't',
	'@': 'a',
	'$': 's',
}

// emojiTokens decodifica emojis frecuentes a tokens de texto que los
// lexicones pueden matchear.
var emojiTokens = map[rune]string{
	'\U0001F346': " eggplant ",    // 🍆
	'\U0001F351': " peach ",       // 🍑
	'\U0001F4A6': " splash ",      // 💦
	'\U0001F51E': " adults only ", // 🔞
	'\U0001F60F': " smirk ",       // 😏
	'\U0001F975': " hot face ",    // 🥵
	'\U0001F48B': " kiss ",        // 💋
	'\U0001F476': " baby ",        // 👶
	'\U0001F525': " fire ",        // 🔥
}

var zeroWidthRunes = map[rune]struct{}{
	'\u200b': {}, // zero width space
	'\u200c': {}, // zero width non-joiner
	'\u200d': {}, // zero width joiner
	'\u2060': {}, // word joiner
	'\ufeff': {}, // BOM
	'\ufe0e': {}, // variation selector texto
	'\ufe0f': {}, // variation selector emoji
}

// Normalize prepara el mensaje para el matching de lexicones y devuelve
// los indicadores de normalización que se activaron. Primero elimina los
// caracteres de ancho cero (la adyacencia del leetspeak se calcula sobre
// el texto ya limpio) y después decodifica leet y emojis.
func Normalize(message string) (string, []string) {
	lower := strings.ToLower(message)

	var indicators []string

	cleaned := make([]rune, 0, len(lower))
	strippedZeroWidth := false
	for _, r := range lower {
		if _, ok := zeroWidthRunes[r]; ok {
			strippedZeroWidth = true
			continue
		}
		cleaned = append(cleaned, r)
	}

	var b strings.Builder
	b.Grow(len(cleaned))

	decodedEmoji := false
	decodedLeet := false
	for i, r := range cleaned {
		if tok, ok := emojiTokens[r]; ok {
			decodedEmoji = true
			b.WriteString(tok)
			continue
		}
		if mapped, ok := leetMap[r]; ok && adjacentLetter(cleaned, i) {
			decodedLeet = true
			b.WriteRune(mapped)
			continue
		}
		b.WriteRune(r)
	}

	if decodedLeet {
		indicators = append(indicators, "normalized:leetspeak")
	}
	if strippedZeroWidth {
		indicators = append(indicators, "normalized:zero_width")
	}
	if decodedEmoji {
		indicators = append(indicators, "normalized:emoji")
	}

	// Colapsa whitespace a espacios simples.
	collapsed := strings.Join(strings.Fields(b.String()), " ")
	return collapsed, indicators
}

func adjacentLetter(runes []rune, i int) bool {
	if i > 0 && unicode.IsLetter(runes[i-1]) {
		return true
	}
	if i+1 < len(runes) && unicode.IsLetter(runes[i+1]) {
		return true
	}
	return false
}
