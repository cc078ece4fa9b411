package relay

import (
	"bytes"
	"context"
	"encoding/base64"
	"mime"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"
)

type EmailRequest struct {
	To            string `json:"to"`
	Subject       string `json:"subject"`
	Body          string `json:"body"`
	CandidateID   string `json:"candidateId"`
	CandidateName string `json:"candidateName"`
	UserID        string `json:"userId"`
	UserName      string `json:"userName"`
}

type EmailResult struct {
	MessageID string `json:"messageId"`
}

type Gmail struct {
	tokens   *GoogleTokens
	from     string
	endpoint string
}

func NewGmail(tokens *GoogleTokens, from, endpoint string) *Gmail {
	return &Gmail{tokens: tokens, from: from, endpoint: endpoint}
}

// header values must not carry line breaks into the message
func headerValue(s string) string {
	return strings.NewReplacer("\r", "", "\n", " ").Replace(strings.TrimSpace(s))
}

// BuildMessage renders a plain-text RFC 2822 message.
func BuildMessage(from, to, subject, body string) []byte {
	var b bytes.Buffer
	b.WriteString("To: " + headerValue(to) + "\r\n")
	if from != "" {
		b.WriteString("From: " + headerValue(from) + "\r\n")
	}
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", headerValue(subject)) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.Bytes()
}

// Send delivers one message through the Gmail API as the authorised user.
func (g *Gmail) Send(ctx context.Context, req EmailRequest) (res *EmailResult, err error) {
	defer func(start time.Time) { observe(FuncSendEmail, start, err) }(time.Now())

	if req.To == "" || req.Subject == "" || req.Body == "" {
		return nil, fail(FuncSendEmail, "Missing required fields: to, subject, body", nil)
	}
	client, err := g.tokens.Client(ctx, FuncSendEmail, req.UserID)
	if err != nil {
		return nil, err
	}
	svc, err := gmail.NewService(ctx, serviceOptions(client, g.endpoint)...)
	if err != nil {
		return nil, fail(FuncSendEmail, "could not create Gmail client", err)
	}

	raw := base64.RawURLEncoding.EncodeToString(BuildMessage(g.from, req.To, req.Subject, req.Body))
	msg, err := svc.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return nil, fail(FuncSendEmail, "Gmail API error", err)
	}
	return &EmailResult{MessageID: msg.Id}, nil
}
