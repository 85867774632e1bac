package service

import (
	"errors"
	"log/slog"
	"strings"

	"git.skobk.in/skobkin/telegram-watchlist-bot/storage"
)

const maxGroupNameLen = 255

// Membership covers users, groups and who belongs where.
type Membership struct {
	storage *storage.Storage
}

func NewMembership(s *storage.Storage) *Membership {
	return &Membership{storage: s}
}

// UserInfo carries the name fields observed on an inbound update. Empty
// fields are treated as not provided and never overwrite stored values.
type UserInfo struct {
	Username  string
	FirstName string
	LastName  string
	Phone     string
}

// GetOrCreateUser resolves a user by external id, creating the row on first
// contact and refreshing provided name fields on later ones. Concurrent calls
// for the same id are not serialized; last writer wins on name fields.
func (m *Membership) GetOrCreateUser(telegramID int64, info UserInfo) (*storage.User, error) {
	user, err := m.storage.FindUserByTelegramID(telegramID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	if user == nil {
		user = &storage.User{
			TelegramID: telegramID,
			Username:   info.Username,
			FirstName:  info.FirstName,
			LastName:   info.LastName,
			Phone:      info.Phone,
		}
		if err := m.storage.CreateUser(user); err != nil {
			// Lost a creation race, the other row is the user now.
			if errors.Is(err, storage.ErrAlreadyExists) {
				return m.storage.FindUserByTelegramID(telegramID)
			}
			return nil, err
		}
		slog.Info("service: New user registered", "telegram_id", telegramID, "username", info.Username)
		return user, nil
	}

	changed := false
	if info.Username != "" && info.Username != user.Username {
		user.Username = info.Username
		changed = true
	}
	if info.FirstName != "" && info.FirstName != user.FirstName {
		user.FirstName = info.FirstName
		changed = true
	}
	if info.LastName != "" && info.LastName != user.LastName {
		user.LastName = info.LastName
		changed = true
	}
	if info.Phone != "" && info.Phone != user.Phone {
		user.Phone = info.Phone
		changed = true
	}
	if changed {
		if err := m.storage.UpdateUser(user); err != nil {
			return nil, err
		}
	}

	return user, nil
}

// CreateGroup validates the name, refuses creators who already belong to a
// group, and creates the group together with its admin membership.
func (m *Membership) CreateGroup(name string, creator *storage.User) (*storage.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyGroupName
	}
	if len(name) > maxGroupNameLen {
		return nil, ErrGroupNameTooLong
	}

	existing, err := m.GroupForUser(creator)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyInGroup
	}

	group, err := m.storage.CreateGroupWithAdmin(name, creator.ID)
	if err != nil {
		return nil, err
	}

	slog.Info("service: Group created", "group_id", group.ID, "name", name, "admin_user_id", creator.ID)
	return group, nil
}

// GroupForUser returns the user's group or nil. With memberships ordered by
// join time the one-group convention picks the oldest if more than one row
// somehow exists.
func (m *Membership) GroupForUser(user *storage.User) (*storage.Group, error) {
	groups, err := m.storage.FindGroupsForUser(user.ID)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, nil
	}
	return &groups[0], nil
}

// IsAdmin reports whether the user holds the admin role in the group.
func (m *Membership) IsAdmin(group *storage.Group, user *storage.User) (bool, error) {
	return m.storage.IsGroupAdmin(group.ID, user.ID)
}

// AddMemberResult is what the caller needs to compose notifications after a
// successful contact-based add.
type AddMemberResult struct {
	Group     *storage.Group
	NewMember *storage.User
}

// AddMemberByContact adds the user behind a shared contact to the actor's
// group. The actor must be in a group and be its admin; the target must have
// interacted with the bot before and must not already be a member.
func (m *Membership) AddMemberByContact(actor *storage.User, targetTelegramID int64) (*AddMemberResult, error) {
	group, err := m.GroupForUser(actor)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrNotInGroup
	}

	isAdmin, err := m.IsAdmin(group, actor)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, ErrNotAdmin
	}

	target, err := m.storage.FindUserByTelegramID(targetTelegramID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUnknownUser
		}
		return nil, err
	}

	// One group per person: a target who already belongs somewhere is refused,
	// whether it is this group or another one.
	targetGroup, err := m.GroupForUser(target)
	if err != nil {
		return nil, err
	}
	if targetGroup != nil {
		if targetGroup.ID == group.ID {
			return nil, ErrAlreadyMember
		}
		return nil, ErrAlreadyInGroup
	}

	_, err = m.storage.AddGroupMember(group.ID, target.ID, storage.RoleMember)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, ErrAlreadyMember
		}
		return nil, err
	}

	slog.Info("service: Member added to group", "group_id", group.ID,
		"user_id", target.ID, "added_by", actor.ID)

	return &AddMemberResult{Group: group, NewMember: target}, nil
}

// GroupMembers returns the group's members with user rows loaded, for
// notification fan-out.
func (m *Membership) GroupMembers(group *storage.Group) ([]storage.GroupMember, error) {
	return m.storage.GetGroupMembers(group.ID)
}
