package storage

import (
	"errors"
	"log/slog"

	"gorm.io/gorm"
)

// CreateGroupWithAdmin creates the group row and its admin membership in one
// transaction so a failure leaves no partial state behind.
func (s *Storage) CreateGroupWithAdmin(name string, adminUserID uint) (*Group, error) {
	group := &Group{
		Name:        name,
		AdminUserID: adminUserID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return err
		}
		member := &GroupMember{
			GroupID: group.ID,
			UserID:  adminUserID,
			Role:    RoleAdmin,
		}
		return tx.Create(member).Error
	})
	if err != nil {
		slog.Error("storage: Failed to create group", "error", err, "name", name, "admin_user_id", adminUserID)
		return nil, translate(err)
	}

	return group, nil
}

// FindGroupByID returns the group or ErrNotFound.
func (s *Storage) FindGroupByID(id uint) (*Group, error) {
	var group Group
	result := s.db.First(&group, id)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	return &group, nil
}

// FindGroupsForUser returns every group the user belongs to, oldest
// membership first. Callers supporting the one-group convention take the
// first element.
func (s *Storage) FindGroupsForUser(userID uint) ([]Group, error) {
	var groups []Group
	result := s.db.
		Joins("JOIN group_members ON group_members.group_id = groups.id").
		Where("group_members.user_id = ? AND group_members.deleted_at IS NULL", userID).
		Order("group_members.created_at ASC").
		Find(&groups)
	if result.Error != nil {
		slog.Error("storage: Failed to find groups for user", "error", result.Error, "user_id", userID)
		return nil, translate(result.Error)
	}
	return groups, nil
}

// AddGroupMember inserts a membership row. Returns ErrAlreadyExists when the
// (group, user) pair is already present.
func (s *Storage) AddGroupMember(groupID, userID uint, role string) (*GroupMember, error) {
	member := &GroupMember{
		GroupID: groupID,
		UserID:  userID,
		Role:    role,
	}

	result := s.db.Create(member)
	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			slog.Error("storage: Failed to add group member", "error", result.Error,
				"group_id", groupID, "user_id", userID, "role", role)
		}
		return nil, translate(result.Error)
	}
	return member, nil
}

// IsGroupAdmin reports whether the user holds the admin role in the group.
func (s *Storage) IsGroupAdmin(groupID, userID uint) (bool, error) {
	var count int64
	result := s.db.Model(&GroupMember{}).
		Where("group_id = ? AND user_id = ? AND role = ?", groupID, userID, RoleAdmin).
		Count(&count)
	if result.Error != nil {
		slog.Error("storage: Failed to check admin role", "error", result.Error,
			"group_id", groupID, "user_id", userID)
		return false, translate(result.Error)
	}
	return count > 0, nil
}

// GetGroupMembers returns the group's members with user rows preloaded.
func (s *Storage) GetGroupMembers(groupID uint) ([]GroupMember, error) {
	var members []GroupMember
	result := s.db.Preload("User").Where("group_id = ?", groupID).Find(&members)
	if result.Error != nil {
		slog.Error("storage: Failed to get group members", "error", result.Error, "group_id", groupID)
		return nil, translate(result.Error)
	}
	return members, nil
}
