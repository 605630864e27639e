package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	colorGreen = "\033[32m"
	colorCyan  = "\033[36m"
	colorGray  = "\033[90m"
	colorRed   = "\033[31m"
	colorReset = "\033[0m"
)

// apiClient habla con el gateway por HTTP. El http.Client va sin timeout
// global porque los streams de chat quedan abiertos lo que dure el turno.
type apiClient struct {
	base   string
	http   *http.Client
	access string
}

type streamEvent struct {
	Type           string         `json:"type"`
	Step           string         `json:"step"`
	Data           map[string]any `json:"data"`
	Content        string         `json:"content"`
	ConversationID string         `json:"conversation_id"`
	MessageID      string         `json:"message_id"`
	Kind           string         `json:"kind"`
	Message        string         `json:"message"`
}

type apiError struct {
	Status  int
	Kind    string
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Kind)
}

type personaView struct {
	Name      string         `json:"name"`
	Archetype string         `json:"archetype"`
	Traits    map[string]int `json:"traits"`
}

type sessionView struct {
	ConversationID string `json:"conversation_id"`
	AgeVerified    bool   `json:"age_verified"`
	GateAttempts   int    `json:"age_verification_attempts"`
	CurrentRoute   string `json:"current_route"`
	LockedUntil    int    `json:"route_locked_until_message_index"`
}

func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	base := os.Getenv("GATEWAY_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	client := &apiClient{base: strings.TrimRight(base, "/"), http: &http.Client{}}

	fmt.Println("===== Persona Gateway =====")
	fmt.Printf("Servidor: %s\n", client.base)

	if err := loginFlow(ctx, reader, client); err != nil {
		log.Fatalf("autenticacion: %v", err)
	}

	personaName := ""
	conversationID := ""

	for {
		fmt.Println("\n[1] Chatear")
		fmt.Println("[2] Elegir personalidad")
		fmt.Println("[3] Ver estado de la sesion")
		fmt.Println("[4] Reiniciar conversacion (limpiar contexto)")
		fmt.Println("[5] Borrar memorias de la conversacion")
		fmt.Println("[6] Salir")
		fmt.Print("Selecciona una opcion: ")

		line, _ := reader.ReadString('\n')
		switch strings.TrimSpace(line) {
		case "1":
			conversationID = chatFlow(ctx, reader, client, personaName, conversationID)
		case "2":
			if name, err := pickPersonaFlow(ctx, reader, client); err != nil {
				fmt.Printf("%sError listando personalidades: %v%s\n", colorRed, err, colorReset)
			} else if name != "" {
				personaName = name
				conversationID = ""
				fmt.Printf("Personalidad activa: %s (proxima conversacion nueva)\n", personaName)
			}
		case "3":
			showSession(ctx, client, conversationID)
		case "4":
			if conversationID == "" {
				fmt.Println("Todavia no hay conversacion.")
				continue
			}
			if err := client.resetConversation(ctx, conversationID); err != nil {
				fmt.Printf("%sError: %v%s\n", colorRed, err, colorReset)
			} else {
				fmt.Println("Contexto de trabajo limpio. El historial permanente sigue intacto.")
			}
		case "5":
			if conversationID == "" {
				fmt.Println("Todavia no hay conversacion.")
				continue
			}
			deleted, err := client.clearMemories(ctx, conversationID)
			if err != nil {
				fmt.Printf("%sError: %v%s\n", colorRed, err, colorReset)
			} else {
				fmt.Printf("Memorias borradas: %d\n", deleted)
			}
		case "6":
			return
		default:
			fmt.Println("Opcion invalida.")
		}
	}
}

func loginFlow(ctx context.Context, reader *bufio.Reader, client *apiClient) error {
	fmt.Print("Usuario (external id): ")
	externalID, _ := reader.ReadString('\n')
	externalID = strings.TrimSpace(externalID)
	fmt.Print("Password: ")
	password, _ := reader.ReadString('\n')
	password = strings.TrimSpace(password)

	err := client.login(ctx, externalID, password)
	if err == nil {
		fmt.Printf("%sSesion iniciada.%s\n", colorGreen, colorReset)
		return nil
	}

	var apiErr *apiError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		return err
	}

	fmt.Print("Credenciales desconocidas. Registrar cuenta nueva? [s/N]: ")
	answer, _ := reader.ReadString('\n')
	if !strings.EqualFold(strings.TrimSpace(answer), "s") {
		return err
	}
	fmt.Print("Nombre para mostrar: ")
	displayName, _ := reader.ReadString('\n')
	if err := client.register(ctx, externalID, strings.TrimSpace(displayName), password); err != nil {
		return err
	}
	fmt.Printf("%sCuenta creada y sesion iniciada.%s\n", colorGreen, colorReset)
	return nil
}

func pickPersonaFlow(ctx context.Context, reader *bufio.Reader, client *apiClient) (string, error) {
	personas, err := client.personas(ctx)
	if err != nil {
		return "", err
	}
	fmt.Println("Personalidades disponibles:")
	for i, p := range personas {
		fmt.Printf("[%d] %s (%s)\n", i+1, p.Name, p.Archetype)
	}
	fmt.Print("Selecciona una personalidad (enter para cancelar): ")
	choice, _ := reader.ReadString('\n')
	choice = strings.TrimSpace(choice)
	if choice == "" {
		return "", nil
	}
	idx, err := strconv.Atoi(choice)
	if err != nil || idx < 1 || idx > len(personas) {
		fmt.Println("Seleccion invalida.")
		return "", nil
	}
	return personas[idx-1].Name, nil
}

func showSession(ctx context.Context, client *apiClient, conversationID string) {
	if conversationID == "" {
		fmt.Println("Todavia no hay conversacion.")
		return
	}
	state, err := client.session(ctx, conversationID)
	if err != nil {
		fmt.Printf("%sError: %v%s\n", colorRed, err, colorReset)
		return
	}
	fmt.Printf("Conversacion:      %s\n", state.ConversationID)
	fmt.Printf("Ruta actual:       %s\n", state.CurrentRoute)
	fmt.Printf("Edad verificada:   %v\n", state.AgeVerified)
	fmt.Printf("Intentos de gate:  %d\n", state.GateAttempts)
	fmt.Printf("Ruta fijada hasta: mensaje %d\n", state.LockedUntil)
}

// chatFlow corre el loop de turnos y devuelve el conversation id vigente.
// Comandos inline: 'salir' vuelve al menu, '/si' y '/no' responden el gate
// de edad sin gastar un turno de chat.
func chatFlow(ctx context.Context, reader *bufio.Reader, client *apiClient, personaName, conversationID string) string {
	fmt.Println("---- Modo Chat ('salir' para terminar, '/si' o '/no' para el gate de edad) ----")
	for {
		fmt.Print("Tu > ")
		text, err := reader.ReadString('\n')
		if err != nil {
			return conversationID
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if strings.EqualFold(text, "salir") || strings.EqualFold(text, "exit") {
			return conversationID
		}
		if text == "/si" || text == "/no" {
			if conversationID == "" {
				fmt.Println("Todavia no hay conversacion que verificar.")
				continue
			}
			verified, err := client.ageVerify(ctx, conversationID, text == "/si")
			if err != nil {
				fmt.Printf("%sError: %v%s\n", colorRed, err, colorReset)
				continue
			}
			fmt.Printf("Edad verificada: %v\n", verified)
			continue
		}

		convID, err := client.stream(ctx, text, conversationID, personaName, renderEvent)
		if err != nil {
			fmt.Printf("%sError: %v%s\n", colorRed, err, colorReset)
			continue
		}
		if convID != "" {
			conversationID = convID
		}
	}
}

// renderEvent pinta un evento del stream. Los tokens van inline sin salto
// de linea; el resto en lineas propias.
func renderEvent(ev streamEvent, printedPrefix *bool) {
	switch ev.Type {
	case "thinking":
		detail := ""
		if route, ok := ev.Data["route"].(string); ok {
			detail = " -> " + route
		}
		fmt.Printf("%s· %s%s%s\n", colorGray, ev.Step, detail, colorReset)
	case "token":
		if !*printedPrefix {
			fmt.Printf("%s[gateway]%s ", colorGreen, colorReset)
			*printedPrefix = true
		}
		fmt.Print(ev.Content)
	case "done":
		if *printedPrefix {
			fmt.Println()
		}
	case "error":
		if *printedPrefix {
			fmt.Println()
		}
		fmt.Printf("%s[%s] %s%s\n", colorRed, ev.Kind, ev.Message, colorReset)
	}
}

/* =======================
   Cliente HTTP
   ======================= */

func (c *apiClient) login(ctx context.Context, externalID, password string) error {
	var out struct {
		Tokens struct {
			AccessToken string `json:"access_token"`
		} `json:"tokens"`
	}
	body := map[string]string{"external_id": externalID, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return err
	}
	c.access = out.Tokens.AccessToken
	return nil
}

func (c *apiClient) register(ctx context.Context, externalID, displayName, password string) error {
	var out struct {
		Tokens struct {
			AccessToken string `json:"access_token"`
		} `json:"tokens"`
	}
	body := map[string]string{"external_id": externalID, "display_name": displayName, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", body, &out); err != nil {
		return err
	}
	c.access = out.Tokens.AccessToken
	return nil
}

func (c *apiClient) personas(ctx context.Context) ([]personaView, error) {
	var out struct {
		Personas []personaView `json:"personas"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/personas", nil, &out); err != nil {
		return nil, err
	}
	return out.Personas, nil
}

func (c *apiClient) session(ctx context.Context, conversationID string) (sessionView, error) {
	var out struct {
		Session sessionView `json:"session"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/content/session/"+conversationID, nil, &out)
	return out.Session, err
}

func (c *apiClient) ageVerify(ctx context.Context, conversationID string, confirmed bool) (bool, error) {
	var out struct {
		AgeVerified bool `json:"age_verified"`
	}
	body := map[string]any{"conversation_id": conversationID, "confirmed": confirmed}
	err := c.doJSON(ctx, http.MethodPost, "/content/age-verify", body, &out)
	return out.AgeVerified, err
}

func (c *apiClient) resetConversation(ctx context.Context, conversationID string) error {
	body := map[string]string{"conversation_id": conversationID}
	return c.doJSON(ctx, http.MethodPost, "/conversation/reset", body, nil)
}

func (c *apiClient) clearMemories(ctx context.Context, conversationID string) (int, error) {
	var out struct {
		Deleted int `json:"deleted"`
	}
	body := map[string]string{"conversation_id": conversationID}
	err := c.doJSON(ctx, http.MethodPost, "/memory/clear", body, &out)
	return out.Deleted, err
}

// stream manda un turno de chat y consume el NDJSON linea por linea.
// Devuelve el conversation id que reporto el evento done.
func (c *apiClient) stream(ctx context.Context, message, conversationID, personaName string, render func(streamEvent, *bool)) (string, error) {
	body := map[string]string{"message": message}
	if conversationID != "" {
		body["conversation_id"] = conversationID
	}
	if personaName != "" {
		body["personality_name"] = personaName
	}

	resp, err := c.do(ctx, http.MethodPost, "/chat", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", decodeAPIError(resp)
	}

	var doneConvID string
	printedPrefix := false
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev streamEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		render(ev, &printedPrefix)
		if ev.Type == "done" {
			doneConvID = ev.ConversationID
		}
	}
	if err := scanner.Err(); err != nil {
		return doneConvID, err
	}
	return doneConvID, nil
}

func (c *apiClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *apiClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		payload = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, payload)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.access != "" {
		req.Header.Set("Authorization", "Bearer "+c.access)
	}
	return c.http.Do(req)
}

func decodeAPIError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Error == "" {
		body.Error = resp.Status
	}
	return &apiError{Status: resp.StatusCode, Kind: body.Kind, Message: body.Error}
}
