package moderation

import "time"

type (
	// ContentKind tells which payload of a ContentEvent is populated.
	ContentKind string

	// Tier is the filtering strictness applied to a user's content,
	// derived from their trust score.
	Tier string

	// Severity grades a single rule hit.
	Severity string
)

const (
	ContentKindText     ContentKind = "text"
	ContentKindImage    ContentKind = "image"
	ContentKindDocument ContentKind = "document"

	TierTrusted Tier = "trusted"
	TierNormal  Tier = "normal"
	TierStrict  Tier = "strict"

	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
)

// ContentEvent is one inbound message from the transport, stripped down to
// what the engine needs to decide on it.
type ContentEvent struct {
	UserID    int64
	ChatID    int64
	MessageID int
	Timestamp time.Time
	Kind      ContentKind
	Text      string
	ImageData []byte
	Caption   string
}

// RuleHit is one matched rule category in a classification verdict.
type RuleHit struct {
	Type     string
	Severity Severity
}

// Verdict is the outcome of classifying a single content event.
type Verdict struct {
	IsSafe     bool
	Violations []RuleHit
	Tier       Tier
}

// Action is an abstract moderation effect for the transport to carry out.
// Exactly one of the pointer fields is set.
type Action struct {
	Delete *DeleteMessage
	Ban    *BanUser
	Notice *Notice
	Report *Report
}

type DeleteMessage struct {
	ChatID    int64
	MessageID int
}

type BanUser struct {
	ChatID int64
	UserID int64
}

// Notice is a message to the group; Report is a direct message to one admin.
type Notice struct {
	ChatID int64
	Text   string
}

type Report struct {
	AdminID int64
	Text    string
}

func DeleteAction(chatID int64, messageID int) Action {
	return Action{Delete: &DeleteMessage{ChatID: chatID, MessageID: messageID}}
}

func BanAction(chatID, userID int64) Action {
	return Action{Ban: &BanUser{ChatID: chatID, UserID: userID}}
}

func NoticeAction(chatID int64, text string) Action {
	return Action{Notice: &Notice{ChatID: chatID, Text: text}}
}

func ReportAction(adminID int64, text string) Action {
	return Action{Report: &Report{AdminID: adminID, Text: text}}
}
