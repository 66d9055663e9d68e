package chat

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/hairloss-doctor/pkg/logging"
)

var responderTracer = otel.Tracer("hairloss/chat-responder")

// BookingMarker is replaced by the host with a link to the booking page.
const BookingMarker = "[BOOK_APPOINTMENT]"

const (
	minInputRunes          = 2
	nudgeMinCategories     = 2
	nudgeMinMessages       = 4
	defaultAppointmentHour = 10
)

// Context is the per-session conversation state. It is a value: every turn
// returns a new Context and never modifies the one passed in.
type Context struct {
	SymptomsDiscussed    []Category `json:"symptoms_discussed"`
	MessageCount         int        `json:"message_count"`
	AppointmentSuggested bool       `json:"appointment_suggested"`
}

// HasDiscussed reports whether c is among the discussed categories.
func (c Context) HasDiscussed(cat Category) bool {
	for _, s := range c.SymptomsDiscussed {
		if s == cat {
			return true
		}
	}
	return false
}

func (c Context) withTurn(cat Category) Context {
	next := Context{
		SymptomsDiscussed:    append([]Category(nil), c.SymptomsDiscussed...),
		MessageCount:         c.MessageCount + 1,
		AppointmentSuggested: c.AppointmentSuggested,
	}
	if !c.HasDiscussed(cat) {
		next.SymptomsDiscussed = append(next.SymptomsDiscussed, cat)
	}
	return next
}

// Response is the outcome of one user turn.
type Response struct {
	Reply    string   `json:"reply"`
	Products []string `json:"products"`
	Category Category `json:"category"`
	Context  Context  `json:"context"`
	// Nudged is true on the single turn that carried the appointment prompt.
	Nudged bool `json:"appointment_suggested"`
}

type template struct {
	intro    string
	followUp string
}

var templates = map[Category]template{
	CategoryBaldness: {
		intro:    "What you're describing sounds like male pattern baldness (androgenetic alopecia). It is very common and it responds best to a combined treatment plan.",
		followUp: "How long have you been noticing the change, and does anyone in your family have similar hair loss?",
	},
	CategoryHairline: {
		intro:    "A receding hairline is often one of the earliest signs of pattern hair loss, and early treatment gives you the best chance of keeping what you have.",
		followUp: "How far back has your hairline moved, and is it more noticeable at the temples?",
	},
	CategoryCrown: {
		intro:    "Thinning at the crown is a classic pattern and is easy to miss until it becomes visible in photos.",
		followUp: "Have you noticed more scalp showing at the crown over the last year?",
	},
	CategoryDiffuse: {
		intro:    "Overall thinning and extra shedding can have several causes, including stress, diet and hormones.",
		followUp: "Have you had any recent changes in stress, diet, medication or health?",
	},
	CategoryDandruff: {
		intro:    "Flaking and an itchy scalp usually point to scalp inflammation, which can make hair loss worse if it isn't treated.",
		followUp: "Is the flaking constant, or does it come and go?",
	},
	CategoryOily: {
		intro:    "An oily scalp can clog follicles and irritate the skin around them, so balancing sebum helps your other treatments work.",
		followUp: "How often do you wash your hair right now?",
	},
}

const (
	clarifyReply = "Could you tell me a bit more about what you're noticing with your hair or scalp?"
	genericReply = "Thanks for sharing. To point you to the right treatment, could you describe where you're noticing thinning (hairline, crown or all over) or any scalp symptoms like itching, flaking or oiliness?"
)

// Responder turns free text into canned replies and product suggestions.
type Responder struct {
	logger *logging.Logger
	now    func() time.Time
	loc    *time.Location
	hour   int
}

// ResponderOption configures a Responder.
type ResponderOption func(*Responder)

// WithClock overrides the time source used for appointment dates.
func WithClock(now func() time.Time) ResponderOption {
	return func(r *Responder) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLocation sets the clinic timezone for appointment dates.
func WithLocation(loc *time.Location) ResponderOption {
	return func(r *Responder) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// WithAppointmentHour sets the hour of the suggested slot.
func WithAppointmentHour(hour int) ResponderOption {
	return func(r *Responder) {
		if hour >= 0 && hour < 24 {
			r.hour = hour
		}
	}
}

// NewResponder creates a responder.
func NewResponder(logger *logging.Logger, opts ...ResponderOption) *Responder {
	if logger == nil {
		logger = logging.Default()
	}
	r := &Responder{
		logger: logger,
		now:    time.Now,
		loc:    time.UTC,
		hour:   defaultAppointmentHour,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultResponder = NewResponder(nil)

// ClassifyAndRespond answers input with the default responder (UTC, 10 AM slot).
func ClassifyAndRespond(input string, conv Context) Response {
	return defaultResponder.ClassifyAndRespond(context.Background(), input, conv)
}

// ClassifyAndRespond produces the reply for one user turn. It never fails:
// unmatched or empty input falls back to a clarifying or generic prompt.
func (r *Responder) ClassifyAndRespond(ctx context.Context, input string, conv Context) Response {
	_, span := responderTracer.Start(ctx, "chat.respond")
	defer span.End()

	category, matched := Classify(input)
	next := conv.withTurn(category)

	var reply strings.Builder
	var products []string
	switch {
	case matched:
		tpl := templates[category]
		reply.WriteString(tpl.intro)
		if bucket, ok := BucketFor(category); ok {
			products = Products(bucket)
			reply.WriteString("\n\nHere's what I'd recommend:")
			for _, p := range products {
				reply.WriteString("\n• ")
				reply.WriteString(p)
			}
		}
		reply.WriteString("\n\n")
		reply.WriteString(tpl.followUp)
	case utf8.RuneCountInString(strings.TrimSpace(input)) < minInputRunes:
		reply.WriteString(clarifyReply)
	default:
		reply.WriteString(genericReply)
	}

	nudged := false
	if !next.AppointmentSuggested && (len(next.SymptomsDiscussed) >= nudgeMinCategories || next.MessageCount >= nudgeMinMessages) {
		reply.WriteString("\n\n")
		reply.WriteString(r.appointmentPrompt())
		next.AppointmentSuggested = true
		nudged = true
	}

	span.SetAttributes(
		attribute.String("chat.category", string(category)),
		attribute.Bool("chat.matched", matched),
		attribute.Int("chat.message_count", next.MessageCount),
		attribute.Bool("chat.nudged", nudged),
	)
	r.logger.Debug("chat reply selected",
		"category", category,
		"matched", matched,
		"message_count", next.MessageCount,
		"nudged", nudged,
	)

	if products == nil {
		products = []string{}
	}
	return Response{
		Reply:    reply.String(),
		Products: products,
		Category: category,
		Context:  next,
		Nudged:   nudged,
	}
}

// NextAppointment returns tomorrow's slot in the clinic timezone.
func (r *Responder) NextAppointment() time.Time {
	local := r.now().In(r.loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, r.hour, 0, 0, 0, r.loc)
}

func (r *Responder) appointmentPrompt() string {
	slot := r.NextAppointment()
	return fmt.Sprintf(
		"Based on what you've told me, a free consultation with one of our hair restoration specialists would be the best next step. We have an opening tomorrow, %s. Would you like to book it? %s",
		slot.Format("Monday, January 2 at 3:04 PM"),
		BookingMarker,
	)
}
