// Package prompt assembles retrieved fragments into a grounded generation request.
package prompt

import (
	"fmt"
	"strings"

	"github.com/upb/catalog-rag/models"
	"github.com/upb/catalog-rag/services/providers"
)

// ImageContextHeader introduces the image block. Its wording tells the model the images are already visible to the user.
const ImageContextHeader = "The following images have been retrieved and are displayed to the user:"

const blockSeparator = "\n\n"

// BuildContext renders text fragments as labelled blocks in rank order, followed by a
// single block describing the retrieved images when there are any.
func BuildContext(text, images []models.ScoredFragment) string {
	blocks := make([]string, 0, len(text)+1)

	for _, f := range text {
		blocks = append(blocks, fmt.Sprintf("[Source: %s, Page: %s]\n%s",
			orDefault(f.SourceDocument, "Unknown"), pageLabel(f.PageNumber), f.Content))
	}

	if len(images) > 0 {
		lines := make([]string, 0, len(images)+1)
		lines = append(lines, ImageContextHeader)
		for _, img := range images {
			lines = append(lines, fmt.Sprintf("[Visual Source: %s, Page: %s] - Description: %s",
				orDefault(img.SourceDocument, "Unknown"), pageLabel(img.PageNumber), orDefault(img.Content, "Product Image")))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}

	return strings.Join(blocks, blockSeparator)
}

// NotAvailableAnswer is both the refusal phrase the model is told to use and the no-evidence answer
const NotAvailableAnswer = "This information is not available in the uploaded catalogues."

// SystemPrompt holds the grounding rules sent with every generation request
const SystemPrompt = "You are a production-grade RAG assistant for furniture catalogues.\n" +
	"STRICT RULES:\n" +
	"1. Answer ONLY using the provided Context.\n" +
	"2. The Context includes both text chunks and descriptions of retrieved images.\n" +
	"3. If the user asks for a picture or image and relevant visual sources are in the context, explicitly mention that you are showing those images from the specific page.\n" +
	"4. If the exact answer is not in the Context, say exactly: '" + NotAvailableAnswer + "'\n" +
	"5. Do NOT hallucinate.\n" +
	"6. Include citations using the format [Source Name, Page X].\n" +
	"7. Treat model numbers and specifications as high priority."

// UserPrompt wraps the context and the question
func UserPrompt(context, query string) string {
	return "Context:\n" + context + "\n\nQuestion:\n" + query + "\n\nAnswer:"
}

// Messages builds the system and user messages for one grounded generation call
func Messages(context, query string) []providers.Message {
	return []providers.Message{
		{Role: providers.RoleSystem, Content: SystemPrompt},
		{Role: providers.RoleUser, Content: UserPrompt(context, query)},
	}
}

func pageLabel(page int) string {
	if page <= 0 {
		return "?"
	}
	return fmt.Sprint(page)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
