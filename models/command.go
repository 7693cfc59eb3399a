package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// CommandKind маркирует команду, распознанную на границе транспорта.
// Дальше по коду строки callback_data не разбираются повторно.
type CommandKind string

const (
	CommandUnknown           CommandKind = "unknown"
	CommandStart             CommandKind = "start"
	CommandApply             CommandKind = "apply"
	CommandCancel            CommandKind = "cancel"
	CommandStatus            CommandKind = "status"
	CommandBracket           CommandKind = "bracket"
	CommandMyGroup           CommandKind = "my_group"
	CommandCheckSubscription CommandKind = "check_subscription"
	CommandApprove           CommandKind = "approve"
	CommandReject            CommandKind = "reject"
)

var ErrUnknownCallback = errors.New("unknown callback data")

// Command is a chat update decoded into a typed action. Moderation commands
// carry the id of the application they act on.
type Command struct {
	Kind          CommandKind
	ApplicationID int
}

// ParseCallback decodes inline-keyboard callback data into a Command.
// Moderation callbacks use the format "approve_<id>" / "reject_<id>".
func ParseCallback(data string) (Command, error) {
	switch data {
	case "check_subscription":
		return Command{Kind: CommandCheckSubscription}, nil
	}

	kind, idStr, found := strings.Cut(data, "_")
	if found && (kind == "approve" || kind == "reject") {
		id, err := strconv.Atoi(idStr)
		if err != nil || id <= 0 {
			return Command{}, fmt.Errorf("%w: bad application id in %q", ErrUnknownCallback, data)
		}
		if kind == "approve" {
			return Command{Kind: CommandApprove, ApplicationID: id}, nil
		}
		return Command{Kind: CommandReject, ApplicationID: id}, nil
	}

	return Command{}, fmt.Errorf("%w: %q", ErrUnknownCallback, data)
}

// ParseSlashCommand maps the leading "/команда" of a chat message to a
// CommandKind. Упоминание бота ("/start@MyBot") отбрасывается; обычный текст
// даёт CommandUnknown.
func ParseSlashCommand(text string) CommandKind {
	cmd, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	switch cmd {
	case "/start":
		return CommandStart
	case "/apply":
		return CommandApply
	case "/cancel":
		return CommandCancel
	case "/status":
		return CommandStatus
	case "/bracket":
		return CommandBracket
	case "/mygroup":
		return CommandMyGroup
	}
	return CommandUnknown
}

// ModerationCallback encodes the approve/reject action pair for a new
// application, the inverse of ParseCallback.
func ModerationCallback(kind CommandKind, applicationID int) string {
	return fmt.Sprintf("%s_%d", kind, applicationID)
}
