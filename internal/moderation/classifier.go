package moderation

import (
	"strings"

	"persona-gateway/internal/domain"
)

/*
========================
 Clasificador de contenido
========================

Pipeline con corto circuito en orden de restrictividad: las reglas duras
(menores, no consentimiento) se evalúan primero, así el orden del
pipeline implementa a la vez el desempate hacia la etiqueta más
restrictiva. Función pura: sin I/O, determinista para el mismo input.
*/

const (
	hardRuleConfidence   = 1.0
	explicitBaseConf     = 0.85
	suggestiveBaseConf   = 0.70
	continuationConf     = 0.60
	clinicalConf         = 0.80
	safeDefaultConf      = 0.95
	perExtraMatchConf    = 0.03
	explicitMaxConf      = 0.97
	suggestiveMaxConf    = 0.85
	continuationMaxWords = 4
)

// Classify etiqueta un mensaje de usuario. prior es la ruta vigente de la
// conversación (o RouteUnset): solo alimenta la regla de continuación para
// mensajes cortos dentro de una sesión ya explícita.
func Classify(message string, prior domain.RouteState) domain.Classification {
	if strings.TrimSpace(message) == "" {
		return domain.Classification{Label: domain.LabelSafe, Confidence: 1.0}
	}

	// Las edades numéricas se buscan antes y después del leetspeak: el
	// decodificador puede manglar dígitos pegados a letras ("17yo").
	lower := strings.ToLower(message)
	agePreLeet := MinorAgePattern.MatchString(lower) || minorSelfAge(lower)

	norm, indicators := Normalize(message)
	words := strings.Fields(norm)

	minorStrong := matchTable(norm, words, MinorStrongIndicators, "minor")
	minorMatches := matchTable(norm, words, MinorIndicators, "minor")
	if agePreLeet || MinorAgePattern.MatchString(norm) || minorSelfAge(norm) {
		minorMatches = append(minorMatches, "minor:age_under_18")
	}

	strongNonConsent := matchTable(norm, words, StrongNonConsentIndicators, "nonconsent")
	nonConsentMatches := matchTable(norm, words, NonConsentIndicators, "nonconsent")
	contextMatches := matchTable(norm, words, SexualContextIndicators, "sexual_context")
	actMatches := matchTable(norm, words, ExplicitActIndicators, "explicit_act")
	anatomyMatches := matchTable(norm, words, AnatomicalIndicators, "anatomy")
	fetishMatches := matchTable(norm, words, FetishIndicators, "fetish")
	clinicalMatches := matchTable(norm, words, ClinicalIndicators, "clinical")
	suggestiveMatches := matchTable(norm, words, SuggestiveIndicators, "suggestive")
	roleplayMatches := matchTable(norm, words, RoleplayIndicators, "roleplay")

	sexualContext := len(contextMatches) > 0 || len(actMatches) > 0 ||
		len(anatomyMatches) > 0 || len(fetishMatches) > 0 || len(strongNonConsent) > 0

	// Regla dura 1: términos sexualizados de menores solos, o referencias a
	// menores en contexto sexual o de roleplay.
	if len(minorStrong) > 0 || (len(minorMatches) > 0 && (sexualContext || len(roleplayMatches) > 0)) {
		ind := indicators
		ind = append(ind, minorStrong...)
		ind = append(ind, minorMatches...)
		ind = append(ind, roleplayMatches...)
		ind = appendContext(ind, contextMatches, actMatches, anatomyMatches, fetishMatches)
		return domain.Classification{Label: domain.LabelMinorRisk, Confidence: hardRuleConfidence, Indicators: ind}
	}

	// Regla dura 2: no consentimiento en contexto sexual.
	if len(strongNonConsent) > 0 || (len(nonConsentMatches) > 0 && sexualContext) {
		ind := indicators
		ind = append(ind, strongNonConsent...)
		ind = append(ind, nonConsentMatches...)
		ind = appendContext(ind, contextMatches, actMatches, anatomyMatches, fetishMatches)
		return domain.Classification{Label: domain.LabelNonconsensual, Confidence: hardRuleConfidence, Indicators: ind}
	}

	// Supresión clínica: anatomía en contexto médico sin actos explícitos.
	if len(clinicalMatches) > 0 && len(anatomyMatches) > 0 &&
		len(actMatches) == 0 && len(fetishMatches) == 0 {
		ind := indicators
		ind = append(ind, "suppressed:clinical_context")
		ind = append(ind, clinicalMatches...)
		ind = append(ind, anatomyMatches...)
		return domain.Classification{Label: domain.LabelSafe, Confidence: clinicalConf, Indicators: ind}
	}

	// Explícito: fetiche pesa más que el explícito consensual.
	if len(fetishMatches) > 0 {
		ind := indicators
		ind = append(ind, fetishMatches...)
		ind = appendContext(ind, contextMatches, actMatches, anatomyMatches, nil)
		conf := scaleConfidence(explicitBaseConf, len(fetishMatches)+len(actMatches), explicitMaxConf)
		return domain.Classification{Label: domain.LabelExplicitFetish, Confidence: conf, Indicators: ind}
	}
	if len(actMatches) > 0 || len(anatomyMatches) > 0 || len(contextMatches) > 0 {
		ind := indicators
		ind = append(ind, actMatches...)
		ind = append(ind, anatomyMatches...)
		ind = append(ind, contextMatches...)
		total := len(actMatches) + len(anatomyMatches) + len(contextMatches)
		conf := scaleConfidence(explicitBaseConf, total, explicitMaxConf)
		return domain.Classification{Label: domain.LabelExplicitConsensualAdult, Confidence: conf, Indicators: ind}
	}

	// Continuación: "keep going" dentro de una sesión explícita hereda la
	// etiqueta de la ruta, con confianza reducida.
	if prior.IsExplicit() && len(words) <= continuationMaxWords {
		if cont := matchTable(norm, words, ContinuationIndicators, "continuation"); len(cont) > 0 {
			label := domain.LabelExplicitConsensualAdult
			if prior == domain.RouteFetish {
				label = domain.LabelExplicitFetish
			}
			ind := append(indicators, cont...)
			return domain.Classification{Label: label, Confidence: continuationConf, Indicators: ind}
		}
	}

	if len(suggestiveMatches) > 0 {
		ind := append(indicators, suggestiveMatches...)
		conf := scaleConfidence(suggestiveBaseConf, len(suggestiveMatches), suggestiveMaxConf)
		return domain.Classification{Label: domain.LabelSuggestive, Confidence: conf, Indicators: ind}
	}

	return domain.Classification{Label: domain.LabelSafe, Confidence: safeDefaultConf, Indicators: indicators}
}

/*
========================
 Matching de lexicones
========================
*/

// matchTable devuelve indicadores "categoria:termino" por cada término de
// la tabla presente en el texto. Términos de una sola palabra matchean por
// palabra exacta (o prefijo si el término tiene 6+ letras, para cubrir
// flexiones como "seduced" sin falsos positivos tipo "analysis"); frases
// por substring.
func matchTable(norm string, words []string, table []string, category string) []string {
	var out []string
	for _, term := range table {
		if matchTerm(norm, words, term) {
			out = append(out, category+":"+term)
		}
	}
	return out
}

func matchTerm(norm string, words []string, term string) bool {
	if strings.ContainsAny(term, " -/") {
		return strings.Contains(norm, term)
	}
	for _, w := range words {
		w = strings.Trim(w, ".,;:!?\"'()[]")
		if w == term {
			return true
		}
		if len(term) >= 6 && strings.HasPrefix(w, term) {
			return true
		}
	}
	return false
}

// minorSelfAge aplica MinorSelfPattern descartando medidas ("i'm 6 feet").
func minorSelfAge(text string) bool {
	locs := MinorSelfPattern.FindAllStringIndex(text, -1)
	for _, loc := range locs {
		rest := strings.TrimSpace(text[loc[1]:])
		excluded := false
		for _, unit := range minorSelfExclusions {
			if strings.HasPrefix(rest, unit) {
				excluded = true
				break
			}
		}
		if !excluded {
			return true
		}
	}
	return false
}

func scaleConfidence(base float64, matches int, max float64) float64 {
	conf := base
	if matches > 1 {
		conf += float64(matches-1) * perExtraMatchConf
	}
	if conf > max {
		conf = max
	}
	return conf
}

func appendContext(ind []string, groups ...[]string) []string {
	for _, g := range groups {
		ind = append(ind, g...)
	}
	return ind
}
