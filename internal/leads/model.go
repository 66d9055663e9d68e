package leads

import (
	"net/mail"
	"strings"
	"time"
)

// Source records which part of the page produced a consultation request.
type Source string

const (
	SourceWeb           Source = "web"
	SourceChat          Source = "chat"
	SourcePhoto         Source = "photo"
	SourceQuestionnaire Source = "questionnaire"
)

func (s Source) valid() bool {
	switch s {
	case SourceWeb, SourceChat, SourcePhoto, SourceQuestionnaire:
		return true
	}
	return false
}

// Lead is a consultation request from the landing page
type Lead struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Message       string    `json:"message,omitempty"`
	Source        Source    `json:"source"`
	HairLossType  string    `json:"hair_loss_type,omitempty"`
	PreferredTime string    `json:"preferred_time,omitempty"`
	ChatSessionID string    `json:"chat_session_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreateLeadRequest represents the request body for creating a lead
type CreateLeadRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Message       string `json:"message"`
	Source        Source `json:"source"`
	HairLossType  string `json:"hair_loss_type"`
	PreferredTime string `json:"preferred_time"`
	ChatSessionID string `json:"chat_session_id"`
}

// Normalize trims fields and defaults the source to web.
func (r *CreateLeadRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	r.Message = strings.TrimSpace(r.Message)
	r.HairLossType = strings.TrimSpace(r.HairLossType)
	r.PreferredTime = strings.TrimSpace(r.PreferredTime)
	r.ChatSessionID = strings.TrimSpace(r.ChatSessionID)
	r.Source = Source(strings.ToLower(strings.TrimSpace(string(r.Source))))
	if r.Source == "" {
		r.Source = SourceWeb
	}
}

// Validate validates the create lead request
func (r *CreateLeadRequest) Validate() error {
	if r.Name == "" {
		return ErrInvalidName
	}
	if r.Email == "" && r.Phone == "" {
		return ErrMissingContact
	}
	if r.Email != "" {
		if _, err := mail.ParseAddress(r.Email); err != nil {
			return ErrInvalidEmail
		}
	}
	if !r.Source.valid() {
		return ErrInvalidSource
	}
	return nil
}

// ListFilter pages through leads newest first.
type ListFilter struct {
	Source Source
	Limit  int
	Offset int
}
