package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"persona-gateway/internal/domain"
	"persona-gateway/internal/llm"
	"persona-gateway/internal/moderation"
)

const paraphrasesPerTurn = 4

// judgeScenario usa el modelo primario para reformular cada mensaje del
// escenario y verifica que el clasificador mantenga la etiqueta esperada.
// Es un sondeo de robustez, no un test: las inestabilidades se reportan
// pero no cuentan como falla del escenario.
func judgeScenario(ctx context.Context, client llm.LLMClient, sc Scenario) {
	for _, turn := range sc.Turns {
		if turn.VerifyAge != nil || turn.Input == "" {
			continue
		}
		unstable, err := judgeParaphrases(ctx, client, turn.Input, turn.ExpectLabel, paraphrasesPerTurn)
		if err != nil {
			fmt.Printf("%sJuez: %v%s\n", colorRed, err, colorReset)
			continue
		}
		if len(unstable) == 0 {
			fmt.Printf("%sJuez: %d reformulaciones estables%s\n", colorGreen, paraphrasesPerTurn, colorReset)
			continue
		}
		for _, p := range unstable {
			fmt.Printf("%sJuez: etiqueta inestable para %q%s\n", colorRed, p, colorReset)
		}
	}
}

// judgeParaphrases pide n reformulaciones del mensaje y devuelve las que el
// clasificador etiqueta distinto del original.
func judgeParaphrases(ctx context.Context, client llm.LLMClient, input string, expect domain.Label, n int) ([]string, error) {
	prompt := buildParaphrasePrompt(input, n)
	raw, err := client.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, llm.Params{Temperature: 0.9})
	if err != nil {
		return nil, err
	}

	paraphrases, err := parseParaphrases(raw)
	if err != nil {
		return nil, err
	}

	var unstable []string
	for _, p := range paraphrases {
		if moderation.Classify(p, domain.RouteUnset).Label != expect {
			unstable = append(unstable, p)
		}
	}
	return unstable, nil
}

func buildParaphrasePrompt(input string, n int) string {
	return fmt.Sprintf(`Reformula el siguiente mensaje %d veces conservando exactamente la misma intencion y nivel de explicitud. No suavices ni intensifiques el contenido.

Mensaje: %q

FORMATO DE SALIDA JSON OBLIGATORIO (sin markdown):
["reformulacion 1", "reformulacion 2", ...]`, n, input)
}

// parseParaphrases tolera prosa alrededor del JSON: extrae el primer array
// balanceado y descarta entradas vacias.
func parseParaphrases(raw string) ([]string, error) {
	jsonStr := extractFirstJSONArray(raw)
	if jsonStr == "" {
		return nil, fmt.Errorf("juez devolvio no-json: %q", raw)
	}

	var parsed []string
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return nil, fmt.Errorf("error parseando JSON juez: %w (raw=%q)", err, jsonStr)
	}

	var out []string
	for _, p := range parsed {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// extractFirstJSONArray devuelve el primer array [...] balanceado.
func extractFirstJSONArray(s string) string {
	start := strings.Index(s, "[")
	if start < 0 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
