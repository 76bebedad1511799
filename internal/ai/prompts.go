package ai

import (
	"fmt"
	"strings"

	"github.com/aawaaz/incident-server/internal/models"
)

const postShapeInstructions = `Respond with ONLY a raw JSON object. Do not wrap it in markdown code fences and do not add any commentary.
The object must have exactly these four string fields, all non-empty:
  "title":    a short, factual headline for the incident
  "category": one of: %s
  "location": where the incident happened, as precisely as the report allows
  "content":  2-4 sentences describing what happened, followed by any safety advice

Example:
{
  "title": "Purse snatching reported near Central Park",
  "category": "Public Safety",
  "location": "Central Park, east entrance",
  "content": "Two suspects in black jackets took a woman's purse at around 5pm and fled on foot. Avoid the area after dark and report any suspicious activity."
}`

func categoryList() string {
	names := make([]string, len(models.Categories))
	for i, c := range models.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func generatePrompt(raw models.RawReport) string {
	return fmt.Sprintf(`Convert this incident report into a structured public post.

Reported title: %s
Reported category: %s
Reported location: %s
Incident description: %s

`+postShapeInstructions,
		raw.Title, raw.Category, raw.Location, raw.Description, categoryList())
}

func relevancePrompt(text string) string {
	return fmt.Sprintf(`You screen submissions for an incident-reporting platform. Decide whether the text below
describes a crime, misconduct, safety hazard or similar incident worth reporting.

Text: %s

Respond with ONLY a raw JSON object, no markdown code fences and no commentary, in exactly this form:
{"isRelevant": "yes"} or {"isRelevant": "no"}`, text)
}

func transcribePrompt() string {
	return `Transcribe the attached audio into clean, readable English, then restructure the transcript into an incident post.
If the speaker does not name a location, use "Unspecified".

` + fmt.Sprintf(postShapeInstructions, categoryList())
}
