package chat

import (
	"strings"
	"time"
)

// DefaultSystemPrompt is sent with every turn unless chat.system_prompt
// overrides it. "{{date}}" is replaced with the current date.
const DefaultSystemPrompt = `You are Tabi, a travel assistant. Today is {{date}}.

You can search flights, hotels, points of interest, restaurants and weather with the tools provided.

Rules:
- Always call a tool to answer questions about flights, hotels, places to visit, restaurants or weather. Never invent prices, schedules, ratings, addresses or forecasts.
- Earlier replies may contain widget blocks such as [FLIGHT_WIDGET]...[/FLIGHT_WIDGET]. They hold real search results; never write widget blocks yourself.
- Show between 3 and 6 results or more whenever the data allows it.
- When the user states a budget, pass it as maxPrice and never suggest options above it.
- Use IATA airport codes for flight origin and destination and YYYY-MM-DD for dates. Resolve relative dates such as "next Friday" against today's date.
- If a required detail is missing (for example the departure date of a flight), ask the user for it instead of guessing.
- Keep plain-text answers short and friendly.`

// SystemInstruction renders the prompt template for now and appends the
// reply-language hint when one is given.
func SystemInstruction(template string, now time.Time, language string) string {
	if strings.TrimSpace(template) == "" {
		template = DefaultSystemPrompt
	}
	prompt := strings.ReplaceAll(template, "{{date}}", now.Format("Monday, 2 January 2006"))

	if lang := strings.TrimSpace(language); lang != "" {
		prompt += "\n\nReply in the user's language: " + lang + "."
	}
	return prompt
}
