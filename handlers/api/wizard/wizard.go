package wizard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"adruby-studio/core"
	"adruby-studio/handlers/auth"
	"adruby-studio/middleware"

	"github.com/go-chi/render"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

var (
	openaiAPIKey  string
	openaiBaseURL string
)

// Init reads the OpenAI configuration. Without an API key the wizard
// still works, falling back to canned copy.
func Init() {
	openaiAPIKey = os.Getenv("OPENAI_API_KEY")
	openaiBaseURL = os.Getenv("OPENAI_BASE_URL")
	if openaiBaseURL == "" {
		openaiBaseURL = "https://api.openai.com" // Default value
	}
	if openaiAPIKey == "" {
		log.Println("WARNING: OPENAI_API_KEY environment variable not set. Wizard will use fallback copy.")
	}
}

const copySystemPrompt = `You are an expert ad copywriter. Generate compelling, conversion-focused ad copy for the described product or service.

Return a JSON object with EXACTLY this structure:
{
    "headline": "A short, punchy headline (max 6 words)",
    "description": "A supporting line (max 12 words)",
    "cta": "Call-to-action button text (max 3 words)"
}

Be direct, use power words, create urgency. Return ONLY the JSON.`

type (
	generateRequest struct {
		Brief       string `json:"brief"`
		Name        string `json:"name"`
		Mood        string `json:"mood"`
		ProductURL  string `json:"productUrl"`
		BlueprintID string `json:"blueprintId"`
	}

	generatedCopy struct {
		Headline    string `json:"headline"`
		Description string `json:"description"`
		CTA         string `json:"cta"`
	}

	chatMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	chatCompletionRequest struct {
		Model    string        `json:"model"`
		Messages []chatMessage `json:"messages"`
	}

	chatCompletionResponse struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
)

// Canned copy used when the OpenAI call is unconfigured or fails.
var fallbackHeadlines = []string{
	"Transform Your World",
	"Unleash Your Potential",
	"The Future is Now",
	"Don't Wait — Act Now",
}

func fallbackCopy() generatedCopy {
	return generatedCopy{
		Headline:    fallbackHeadlines[int(time.Now().UnixNano())%len(fallbackHeadlines)],
		Description: "Join thousands who already trust us",
		CTA:         "Get Started",
	}
}

// generateCopy asks the chat-completions API for structured ad copy.
func generateCopy(ctx context.Context, brief string) (generatedCopy, error) {
	if openaiAPIKey == "" {
		return generatedCopy{}, fmt.Errorf("OpenAI API key is not configured")
	}

	body, err := json.Marshal(chatCompletionRequest{
		Model: "gpt-4o-mini",
		Messages: []chatMessage{
			{Role: "system", Content: copySystemPrompt},
			{Role: "user", Content: "Product/Service: " + brief},
		},
	})
	if err != nil {
		return generatedCopy{}, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", openaiBaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return generatedCopy{}, err
	}
	req.Header.Set("Authorization", "Bearer "+openaiAPIKey)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return generatedCopy{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return generatedCopy{}, fmt.Errorf("openai returned %d: %s", resp.StatusCode, data)
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return generatedCopy{}, err
	}
	if len(completion.Choices) == 0 {
		return generatedCopy{}, fmt.Errorf("openai returned no choices")
	}

	// Models occasionally wrap the JSON in a code fence.
	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.Trim(content, "`\n ")

	var out generatedCopy
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return generatedCopy{}, fmt.Errorf("parse generated copy: %w", err)
	}
	return out, nil
}

// buildDocument assembles the starter document the editor opens after
// the wizard: product image, headline, body and CTA button. A
// background layer is added later by the editor; the wizard has no
// image source for one.
func buildDocument(req generateRequest, copy generatedCopy) *core.Document {
	headlineSize := 80.0
	name := req.Name
	if name == "" {
		name = copy.Headline
	}

	layers := []core.Layer{}
	if req.ProductURL != "" {
		layers = append(layers, core.Layer{
			ID:     "prod_" + ulid.Make().String(),
			Kind:   core.LayerImage,
			Name:   "Product",
			Z:      10,
			Role:   core.RoleProduct,
			Source: req.ProductURL,
		})
	}
	layers = append(layers, core.Layer{
		ID:       "txt_" + ulid.Make().String(),
		Kind:     core.LayerText,
		Name:     "Headline",
		Z:        20,
		Text:     copy.Headline,
		FontSize: &headlineSize,
	})
	if copy.Description != "" {
		bodySize := 36.0
		layers = append(layers, core.Layer{
			ID:       "txt_" + ulid.Make().String(),
			Kind:     core.LayerText,
			Name:     "Body",
			Z:        21,
			Text:     copy.Description,
			FontSize: &bodySize,
		})
	}
	layers = append(layers, core.Layer{
		ID:   "cta_" + ulid.Make().String(),
		Kind: core.LayerCTA,
		Name: "CTA Button",
		Z:    30,
		Text: copy.CTA,
	})

	return &core.Document{
		Name:        name,
		Mood:        req.Mood,
		BlueprintID: req.BlueprintID,
		Layers:      layers,
	}
}

// HandleGenerate produces a starter document from a short brief. Copy
// comes from OpenAI when configured, canned fallbacks otherwise; the
// wizard never fails outright for copy reasons.
func HandleGenerate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := r.Context().Value(middleware.ClaimsContextKey).(*auth.AppClaims)
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "User claims not found"})
			return
		}

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid JSON in request body"})
			return
		}
		if strings.TrimSpace(req.Brief) == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Brief is required"})
			return
		}

		adCopy, err := generateCopy(r.Context(), req.Brief)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":  err,
				"userID": claims.Subject,
			}).Warn("Copy generation failed, using fallback")
			adCopy = fallbackCopy()
		}

		doc := buildDocument(req, adCopy)
		render.JSON(w, r, map[string]*core.Document{"document": doc})
	}
}
