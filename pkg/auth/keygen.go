// keygen.go
package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chzyer/readline"
)

const appName = "anytype-mcp"

type challengeResponse struct {
	ChallengeID string `json:"challenge_id"`
}

type apiKeyResponse struct {
	APIKey string `json:"api_key"`
}

// KeyGenerator drives the interactive API key provisioning flow against a
// running Anytype app: request a challenge, have the user read the 4-digit
// code the app displays, exchange the code for a key.
type KeyGenerator struct {
	baseURL string
	client  *http.Client
	out     io.Writer
}

// NewKeyGenerator creates a generator against the given API base URL.
func NewKeyGenerator(baseURL string, out io.Writer) *KeyGenerator {
	return &KeyGenerator{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		out:     out,
	}
}

// Run executes the full flow and returns the provisioned API key.
func (g *KeyGenerator) Run() (string, error) {
	fmt.Fprintln(g.out, "Requesting a pairing challenge from Anytype...")
	challengeID, err := g.requestChallenge()
	if err != nil {
		return "", fmt.Errorf("requesting challenge: %w (is the Anytype app running?)", err)
	}

	fmt.Fprintln(g.out, "Anytype should now display a 4-digit code.")
	code, err := g.promptCode()
	if err != nil {
		return "", err
	}

	key, err := g.exchangeCode(challengeID, code)
	if err != nil {
		return "", fmt.Errorf("exchanging code for key: %w", err)
	}

	g.printResult(key)
	return key, nil
}

func (g *KeyGenerator) requestChallenge() (string, error) {
	var resp challengeResponse
	if err := g.post("/v1/auth/challenges", map[string]string{"app_name": appName}, &resp); err != nil {
		return "", err
	}
	if resp.ChallengeID == "" {
		return "", fmt.Errorf("empty challenge id in response")
	}
	return resp.ChallengeID, nil
}

// promptCode reads the 4-digit pairing code from the terminal, retrying on
// malformed input.
func (g *KeyGenerator) promptCode() (string, error) {
	rl, err := readline.New("Enter the 4-digit code: ")
	if err != nil {
		return "", fmt.Errorf("opening terminal: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			return "", fmt.Errorf("reading code: %w", err)
		}
		code := strings.TrimSpace(line)
		if len(code) == 4 && strings.Trim(code, "0123456789") == "" {
			return code, nil
		}
		fmt.Fprintln(g.out, "The code is exactly 4 digits, try again.")
	}
}

func (g *KeyGenerator) exchangeCode(challengeID, code string) (string, error) {
	var resp apiKeyResponse
	payload := map[string]string{"challenge_id": challengeID, "code": code}
	if err := g.post("/v1/auth/api_keys", payload, &resp); err != nil {
		return "", err
	}
	if resp.APIKey == "" {
		return "", fmt.Errorf("empty api key in response")
	}
	return resp.APIKey, nil
}

func (g *KeyGenerator) post(path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := g.client.Post(g.baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(data))
	}
	return json.Unmarshal(data, out)
}

// printResult prints the key together with a ready-to-paste MCP client
// configuration snippet.
func (g *KeyGenerator) printResult(key string) {
	snippet := map[string]any{
		"mcpServers": map[string]any{
			"anytype": map[string]any{
				"command": "anytype-mcp",
				"args":    []string{"run"},
				"env": map[string]string{
					"OPENAPI_MCP_HEADERS": fmt.Sprintf(`{"Authorization":"Bearer %s","Anytype-Version":"2025-05-20"}`, key),
				},
			},
		},
	}
	rendered, _ := json.MarshalIndent(snippet, "", "  ")

	fmt.Fprintln(g.out)
	fmt.Fprintln(g.out, "API key provisioned:")
	fmt.Fprintln(g.out, "  "+key)
	fmt.Fprintln(g.out)
	fmt.Fprintln(g.out, "Add this to your MCP client configuration:")
	fmt.Fprintln(g.out, string(rendered))
	fmt.Fprintln(g.out)
	fmt.Fprintln(g.out, "Alternatively export ANYTYPE_API_KEY before starting the server.")
}
