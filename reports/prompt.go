package reports

import (
	"fmt"
	"strings"

	"eventtts/models"
)

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func buildPrompt(ev *models.EventView, stats *models.EventStats, in *models.ReportInput) string {
	category := "Uncategorized"
	if ev.Category != nil {
		category = ev.Category.Name
	}
	location := ev.Location
	if ev.IsOnline {
		location = "Online"
	}
	capacity := "Not limited"
	if stats.CapacityMode == models.CapacityFinite {
		capacity = fmt.Sprint(stats.TotalCapacity)
	}
	photos := "Not provided."
	if len(in.Photos) > 0 {
		photos = strings.Join(in.Photos, ", ")
	}

	var b strings.Builder
	b.WriteString(`Analyze the following event data and organizer notes.
Generate a structured JSON object representing a professional event report.
The JSON object must follow this exact schema:
{
  "title": "string",
  "sections": [
    { "heading": "string", "content": ["string", "string"] }
  ]
}
Do not include any markdown or formatting in the JSON values.
Calculate the profit or loss from the financial data and include it in the "Financial Summary" section.

Event details:
`)
	fmt.Fprintf(&b, "- Event Title: %s\n", ev.Title)
	fmt.Fprintf(&b, "- Event Category: %s\n", category)
	fmt.Fprintf(&b, "- Event Description: %s\n", ev.Description)
	fmt.Fprintf(&b, "- Start Date & Time: %s\n", ev.StartDate.Format("Mon, 02 Jan 2006 15:04 MST"))
	fmt.Fprintf(&b, "- Location: %s\n", location)
	fmt.Fprintf(&b, "- Total Seating Capacity: %s\n", capacity)
	fmt.Fprintf(&b, "- Actual Attendance (Tickets Sold): %d\n", stats.TicketsSold)
	fmt.Fprintf(&b, "- Total Revenue from Tickets: %.2f INR\n", stats.TotalRevenue)

	b.WriteString("\nOrganizer notes:\n")
	fmt.Fprintf(&b, "- Prepared By: %s\n", in.PreparedBy)
	fmt.Fprintf(&b, "- Event Purpose: %s\n", in.EventPurpose)
	fmt.Fprintf(&b, "- Key Highlights: %s\n", orDefault(in.KeyHighlights, "Not provided."))
	fmt.Fprintf(&b, "- Major Outcomes: %s\n", orDefault(in.MajorOutcomes, "Not provided."))
	fmt.Fprintf(&b, "- Budgeted Cost: %.2f INR\n", in.Budget)
	fmt.Fprintf(&b, "- Actual Expenditure: %.2f INR\n", in.ActualExpenditure)
	fmt.Fprintf(&b, "- Sponsorships/Funding Received: %s INR\n", orDefault(in.Sponsorship, "0"))
	fmt.Fprintf(&b, "- Photos: %s\n", photos)

	b.WriteString(`
Create sections for "Executive Summary", "Event Performance", "Financial Summary", and "Key Learnings".
`)
	return b.String()
}
