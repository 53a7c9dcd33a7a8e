package extraction

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/vcms/internal/model"
	"github.com/sells-group/vcms/internal/resilience"
	"github.com/sells-group/vcms/pkg/anthropic"
)

const systemPrompt = `You read photographs of business cards and return the printed details as JSON.

Respond with a single JSON object and nothing else:
{
  "status": "Validated" | "Ambiguous" | "Failed",
  "notes": "short explanation of any uncertainty",
  "contact": {
    "first_name": "", "last_name": "", "title": "",
    "email": "", "emails": [],
    "phone_primary": "", "phones": [{"label": "", "number": ""}]
  },
  "company": {
    "company_name": "", "website_domain": "",
    "primary_industry_category": "", "industry_synonyms": [],
    "full_address": "", "social_linkedin": ""
  }
}

Use "Validated" only when the person's first name and the company name are clearly legible.
Use "Ambiguous" when the card is readable but a field is uncertain.
Use "Failed" when the image is not a business card or nothing can be read.
Never invent values that are not printed on the card.`

const userPrompt = "Extract the contact and company details from this business card."

// ClaudeExtractor reads business cards with an Anthropic vision model.
type ClaudeExtractor struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewClaudeExtractor creates a ClaudeExtractor.
func NewClaudeExtractor(client anthropic.Client, model string, maxTokens int64) *ClaudeExtractor {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &ClaudeExtractor{client: client, model: model, maxTokens: maxTokens}
}

// Extract implements Service.
func (e *ClaudeExtractor) Extract(ctx context.Context, imageURL string) (*model.ExtractionCandidate, error) {
	if strings.TrimSpace(imageURL) == "" {
		return nil, eris.New("extraction: empty image url")
	}

	temp := 0.0
	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       e.model,
		MaxTokens:   e.maxTokens,
		System:      systemPrompt,
		Temperature: &temp,
		Messages: []anthropic.Message{{
			Role:      "user",
			Content:   userPrompt,
			ImageURLs: []string{imageURL},
		}},
	})
	if err != nil {
		if code := anthropic.StatusCode(err); resilience.IsTransientHTTPStatus(code) {
			return nil, resilience.NewTransientError(err, code)
		}
		return nil, eris.Wrap(err, "extraction: claude request")
	}
	resp.Usage.LogCost(e.model, "extraction")

	return parseCandidate(resp.Text())
}

// parseCandidate decodes a model response into a candidate. A Validated
// answer missing a required field is downgraded to Ambiguous.
func parseCandidate(text string) (*model.ExtractionCandidate, error) {
	raw := cleanJSON(text)
	if raw == "" {
		return nil, eris.Wrap(ErrUnreadable, "empty response")
	}

	var c model.ExtractionCandidate
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, eris.Wrapf(ErrUnreadable, "decode candidate: %v", err)
	}
	if !c.Status.Valid() {
		return nil, eris.Wrapf(ErrUnreadable, "unknown status %q", c.Status)
	}

	if c.Status == model.ExtractionValidated {
		var missing []string
		if strings.TrimSpace(c.Contact.FirstName) == "" {
			missing = append(missing, "first_name")
		}
		if strings.TrimSpace(c.Company.CompanyName) == "" {
			missing = append(missing, "company_name")
		}
		if len(missing) > 0 {
			zap.L().Debug("extraction: downgrading incomplete candidate",
				zap.Strings("missing", missing))
			c.Status = model.ExtractionAmbiguous
			c.Notes = strings.TrimSpace(c.Notes + " missing " + strings.Join(missing, ", "))
		}
	}
	return &c, nil
}

// cleanJSON strips markdown fences and surrounding prose from a JSON answer.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return strings.TrimSpace(text[start : end+1])
}
