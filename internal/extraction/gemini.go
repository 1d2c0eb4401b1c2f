package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// fieldsSchema constrains the model output to the four receipt fields. The
// schema enforces presence of the keys; the prompt tells the model to use
// null wherever it cannot extract a value.
var fieldsSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"vendor":      {Type: genai.TypeString, Description: "The name of the vendor or shop."},
		"date":        {Type: genai.TypeString, Description: "The date of the transaction in YYYY-MM-DD format."},
		"total":       {Type: genai.TypeNumber, Description: "The final total amount of the receipt."},
		"description": {Type: genai.TypeString, Description: "A brief summary of the services performed or items purchased."},
	},
	Required: []string{"vendor", "date", "total", "description"},
}

// Direct calls the Gemini API with a caller-supplied credential.
type Direct struct {
	apiKey string
	model  string
}

// NewDirect creates a Direct extractor. The client is created per call so a
// fresh credential (for example one supplied with a proxy request) never
// outlives the request that carried it.
func NewDirect(apiKey, model string) (*Direct, error) {
	if apiKey == "" {
		return nil, &Error{Message: MsgMissingCredential}
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Direct{apiKey: apiKey, model: model}, nil
}

// Analyze sends the receipt image to Gemini and parses the structured result.
func (d *Direct) Analyze(ctx context.Context, imageData []byte, contentType string) (*Fields, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	pngData, _, err := PrepareImage(imageData, contentType)
	if err != nil {
		return nil, &Error{Message: MsgGeneric, Err: err}
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(d.apiKey))
	if err != nil {
		return nil, &Error{Message: MsgGeneric, Err: fmt.Errorf("creating gemini client: %w", err)}
	}
	defer client.Close()

	model := client.GenerativeModel(d.model)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = fieldsSchema

	resp, err := model.GenerateContent(ctx,
		genai.ImageData("png", pngData),
		genai.Text(receiptPrompt),
	)
	if err != nil {
		return nil, classifyProviderErr(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, &Error{Message: MsgGeneric, Err: fmt.Errorf("empty response from gemini")}
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	return ParseFields(text.String())
}
