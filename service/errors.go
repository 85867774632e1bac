package service

import "errors"

// Domain-rule violations. Handlers convert these into user-facing denial
// messages; none of them is worth a stack trace.
var (
	ErrEmptyGroupName   = errors.New("group name is empty")
	ErrGroupNameTooLong = errors.New("group name is too long")
	ErrAlreadyInGroup   = errors.New("user already belongs to a group")
	ErrNotInGroup       = errors.New("user is not in any group")
	ErrNotAdmin         = errors.New("user is not a group admin")
	ErrUnknownUser      = errors.New("user has never interacted with the bot")
	ErrAlreadyMember    = errors.New("user is already a member of the group")
	ErrDuplicateEntry   = errors.New("film is already on the group watchlist")
	ErrFilmUnavailable  = errors.New("film details could not be loaded")
	ErrEntryNotFound    = errors.New("watchlist entry not found")
)
