package core

import (
	"fmt"
	"strings"
	"time"
)

// Message is a single fetched email message. Messages are produced by the
// mailbox reader and never mutated afterwards.
type Message struct {
	ID         string
	Subject    string
	Sender     string
	SenderName string
	ReceivedAt time.Time
	Content    string
}

// Conversation is an ordered set of messages sharing a normalized subject.
type Conversation struct {
	Subject  string
	Messages []Message
	// Topic is a short model-generated summary of what the thread is about.
	// Empty until classification has run.
	Topic string
}

// Append adds a message to the conversation, preserving receipt order.
func (c *Conversation) Append(msg Message) {
	c.Messages = append(c.Messages, msg)
}

// Participants returns the distinct sender addresses in receipt order,
// excluding the operator's own address.
func (c *Conversation) Participants(operator string) []string {
	seen := make(map[string]bool, len(c.Messages))
	var participants []string
	for _, msg := range c.Messages {
		addr := strings.ToLower(strings.TrimSpace(msg.Sender))
		if addr == "" || strings.EqualFold(addr, operator) {
			continue
		}
		if !seen[addr] {
			seen[addr] = true
			participants = append(participants, addr)
		}
	}
	return participants
}

// Text renders the conversation as "Sender: content" lines, the form all
// prompts consume.
func (c *Conversation) Text() string {
	var b strings.Builder
	for _, msg := range c.Messages {
		name := msg.SenderName
		if name == "" {
			name = msg.Sender
		}
		fmt.Fprintf(&b, "%s: %s\n", name, msg.Content)
	}
	return b.String()
}

// FollowupCandidate is a conversation the oracle judged to need a follow-up.
// The draft is attached later by the composer and may be absent if drafting
// failed for this candidate.
type FollowupCandidate struct {
	Conversation *Conversation
	Rationale    string
	Participants []string
	Draft        *Draft
}

// Draft is a composed follow-up email awaiting operator review or dispatch.
// Only the reviser mutates a draft, and it must keep Recipients intact.
type Draft struct {
	Subject    string
	Body       string
	Recipients []string
}

// ActionItem is the composer's intermediate extraction result. It only feeds
// the drafting prompt and is discarded once the draft exists.
type ActionItem struct {
	Action            string  `json:"action"`
	ResponsiblePerson string  `json:"responsible_person"`
	Deadline          *string `json:"deadline"`
}
