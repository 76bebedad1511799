// Package models defines the data structures used across the application.
// Report and Comment are the decrypted domain view; the store layer seals the
// sensitive fields before anything reaches the database.
package models

import (
	"time"
)

// Category is one of the fixed report categories.
type Category string

const (
	CategoryWorkplace     Category = "Workplace Issues"
	CategoryFinancial     Category = "Financial Misconduct"
	CategoryEnvironmental Category = "Environmental Concerns"
	CategoryPublicSafety  Category = "Public Safety"
	CategoryEthical       Category = "Ethical Violations"
	CategoryOther         Category = "Other"
)

// Categories lists every accepted category in display order.
var Categories = []Category{
	CategoryWorkplace,
	CategoryFinancial,
	CategoryEnvironmental,
	CategoryPublicSafety,
	CategoryEthical,
	CategoryOther,
}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Status is the report lifecycle state. The only transition is
// submitted -> escalated.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusEscalated Status = "escalated"
)

// MediaKind classifies an uploaded media reference.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Media is a reference to an already-uploaded object.
type Media struct {
	Reference string    `json:"reference" bson:"reference"`
	Kind      MediaKind `json:"kind" bson:"kind"`
}

// VoteDirection selects which counter a vote increments.
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

// Report is a submitted incident. Title, Content, Location, AuthorDisplayName
// and AuthorContact are encrypted at rest.
type Report struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Content           string    `json:"content"`
	Category          Category  `json:"category"`
	Location          string    `json:"location"`
	AuthorID          string    `json:"authorId"`
	AuthorDisplayName string    `json:"authorDisplayName"`
	AuthorContact     string    `json:"authorContact"`
	Media             []Media   `json:"media"`
	Status            Status    `json:"status"`
	Upvotes           int64     `json:"upvotes"`
	Downvotes         int64     `json:"downvotes"`
	CreatedAt         time.Time `json:"createdAt"`
}

// ReportSubmission is the request body for filing a new report.
type ReportSubmission struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category Category `json:"category"`
	Location string   `json:"location"`
	Media    []Media  `json:"media"`
	// Source is "text" (default) or "audio". Audio submissions skip the
	// relevance gate only with a valid Receipt from the transcription endpoint.
	Source  string `json:"source,omitempty"`
	Receipt string `json:"receipt,omitempty"`
}

const (
	SourceText  = "text"
	SourceAudio = "audio"
)

// FeedPost is the anonymized public projection of a Report. It never carries
// the author id or contact.
type FeedPost struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Content           string    `json:"content"`
	Category          Category  `json:"category"`
	Location          string    `json:"location"`
	Media             []Media   `json:"media"`
	Upvotes           int64     `json:"upvotes"`
	Downvotes         int64     `json:"downvotes"`
	Status            Status    `json:"status"`
	CreatedAt         time.Time `json:"createdAt"`
	AuthorDisplayName string    `json:"authorDisplayName"`
	IsScammer         bool      `json:"isScammer"`
}

// VoteResult is returned by the voting endpoints.
type VoteResult struct {
	ID        string `json:"id"`
	Upvotes   int64  `json:"upvotes"`
	Downvotes int64  `json:"downvotes"`
}

// Comment is an append-only remark on a report. Text, AuthorDisplayName and
// AuthorContact are encrypted at rest.
type Comment struct {
	ID                string    `json:"id"`
	ReportID          string    `json:"reportId"`
	AuthorID          string    `json:"authorId"`
	AuthorDisplayName string    `json:"authorDisplayName"`
	AuthorContact     string    `json:"authorContact"`
	Text              string    `json:"text"`
	CreatedAt         time.Time `json:"createdAt"`
}

// CommentSubmission is the request body for adding a comment.
type CommentSubmission struct {
	Text string `json:"text"`
}

// CommentView is the public projection of a Comment.
type CommentView struct {
	ID                string    `json:"id"`
	ReportID          string    `json:"reportId"`
	AuthorDisplayName string    `json:"authorDisplayName"`
	Text              string    `json:"text"`
	CreatedAt         time.Time `json:"createdAt"`
}

// RawReport is the unstructured input handed to the post generator.
type RawReport struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Location    string `json:"location"`
}

// GeneratedPost is the four-field structure produced by the model.
type GeneratedPost struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Location string `json:"location"`
	Content  string `json:"content"`
}

// Transcription is the transcription endpoint response: the generated post
// plus a receipt attesting its content came from uploaded audio.
type Transcription struct {
	GeneratedPost
	Receipt string `json:"receipt"`
}

// Relevance is the classifier verdict.
type Relevance struct {
	IsRelevant bool `json:"isRelevant"`
}

// RelevanceRequest is the request body for the relevance endpoint.
type RelevanceRequest struct {
	Text string `json:"text"`
}

// Identity is the already-verified caller supplied by the auth layer.
type Identity struct {
	AuthorID    string
	Email       string
	DisplayName string
}

// ActivityType enumerates report lifecycle events.
type ActivityType string

const (
	ActivitySubmitted ActivityType = "submitted"
	ActivityEscalated ActivityType = "escalated"
	ActivityCommented ActivityType = "commented"
)

// ActivityLog records a lifecycle event on a report for its author's dashboard.
type ActivityLog struct {
	ID                string       `json:"id"`
	ReportID          string       `json:"reportId"`
	ActivityType      ActivityType `json:"activityType"`
	ActionDescription string       `json:"actionDescription"`
	CreatedAt         time.Time    `json:"createdAt"`
}

// Notification is the job handed to the authority notifier on escalation.
type Notification struct {
	Destination string `json:"destination"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	ReportID    string `json:"reportId"`
}

// HealthStatus represents the server health check response
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime,omitempty"`
	Storage string `json:"storage,omitempty"`
}
