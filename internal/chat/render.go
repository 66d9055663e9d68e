package chat

import (
	"html"
	"strings"
	"time"
)

// RenderHTML escapes a reply for display, turns newlines into <br> and the
// booking marker into a link. Without a booking URL the marker is dropped.
func RenderHTML(reply, bookingURL string) string {
	escaped := html.EscapeString(reply)
	escaped = strings.ReplaceAll(escaped, "\n", "<br>")

	link := ""
	if bookingURL != "" {
		link = `<a href="` + html.EscapeString(bookingURL) + `" target="_blank" rel="noopener">Book your consultation</a>`
	}
	// The marker contains no characters html.EscapeString rewrites.
	rendered := strings.ReplaceAll(escaped, BookingMarker, link)
	return strings.TrimRight(rendered, " ")
}

// HasBookingLink reports whether a reply carries the booking marker.
func HasBookingLink(reply string) bool {
	return strings.Contains(reply, BookingMarker)
}

// MessageView is a message ready for the page: the raw text plus its HTML.
type MessageView struct {
	ID        int       `json:"id"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	HTML      string    `json:"html"`
	Products  []string  `json:"products,omitempty"`
	Booking   bool      `json:"booking,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// View renders m for display.
func View(m Message, bookingURL string) MessageView {
	return MessageView{
		ID:        m.ID,
		Sender:    m.Sender,
		Text:      m.Text,
		HTML:      RenderHTML(m.Text, bookingURL),
		Products:  m.Products,
		Booking:   HasBookingLink(m.Text),
		Timestamp: m.Timestamp,
	}
}

// ViewAll renders every message in order.
func ViewAll(messages []Message, bookingURL string) []MessageView {
	out := make([]MessageView, 0, len(messages))
	for _, m := range messages {
		out = append(out, View(m, bookingURL))
	}
	return out
}
