package agent

import "context"

// ChatPort is the narrow slice of the chat dispatcher (C5) that the
// ask_user and report_status browser tools need: ask a free-text
// question and block for the reply, or push a status line with no
// reply expected. Implemented by internal/channels/telegram.
type ChatPort interface {
	AskFreeText(ctx context.Context, question string) (string, error)
	SendInfo(ctx context.Context, message string) error
}
