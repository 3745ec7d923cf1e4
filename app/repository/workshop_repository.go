package repository

import (
	"github.com/SocialOwlHQ/SocialOwl/app/models"
	"gorm.io/gorm"
)

// workshopRepository implements the WorkshopRepository interface
type workshopRepository struct {
	db *gorm.DB
}

// NewWorkshopRepository creates a new workshop repository instance
func NewWorkshopRepository(db *gorm.DB) WorkshopRepository {
	return &workshopRepository{db: db}
}

// Create stores a new workshop including any nested groups
func (r *workshopRepository) Create(workshop *models.Workshop) error {
	return r.db.Create(workshop).Error
}

// GetActiveByID retrieves an active workshop with its groups preloaded
func (r *workshopRepository) GetActiveByID(id uint) (*models.Workshop, error) {
	var workshop models.Workshop
	err := r.db.Preload("Groups").Where("id = ? AND is_active = ?", id, true).First(&workshop).Error
	if err != nil {
		return nil, err
	}
	return &workshop, nil
}

// GetGroup retrieves a group by its ID
func (r *workshopRepository) GetGroup(groupID uint) (*models.Group, error) {
	var group models.Group
	err := r.db.First(&group, groupID).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// CreateGroup stores a new group
func (r *workshopRepository) CreateGroup(group *models.Group) error {
	return r.db.Create(group).Error
}

// CountActiveParticipants returns the number of active participants in a group
func (r *workshopRepository) CountActiveParticipants(groupID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Participant{}).
		Where("group_id = ? AND is_active = ?", groupID, true).
		Count(&count).Error
	return count, err
}

// GroupParticipantCounts returns active participant counts per group for a
// whole workshop in one query
func (r *workshopRepository) GroupParticipantCounts(workshopID uint) (map[uint]int64, error) {
	type row struct {
		GroupID uint
		Total   int64
	}
	var rows []row
	err := r.db.Model(&models.Participant{}).
		Select("participants.group_id AS group_id, COUNT(*) AS total").
		Joins("JOIN `groups` g ON g.id = participants.group_id").
		Where("g.workshop_id = ? AND participants.is_active = ?", workshopID, true).
		Group("participants.group_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.GroupID] = r.Total
	}
	return counts, nil
}

// FindActiveParticipantByName finds an active participant with the exact
// given name anywhere in the workshop. Matching is case-sensitive.
func (r *workshopRepository) FindActiveParticipantByName(workshopID uint, name string) (*models.Participant, error) {
	var participant models.Participant
	err := r.db.
		Joins("JOIN `groups` g ON g.id = participants.group_id").
		Where("g.workshop_id = ? AND BINARY participants.name = ? AND participants.is_active = ?", workshopID, name, true).
		First(&participant).Error
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

// CreateParticipant stores a new participant
func (r *workshopRepository) CreateParticipant(participant *models.Participant) error {
	return r.db.Create(participant).Error
}

// DeactivateParticipant marks a participant inactive, freeing their seat
func (r *workshopRepository) DeactivateParticipant(participantID uint) error {
	return r.db.Model(&models.Participant{}).Where("id = ?", participantID).
		Update("is_active", false).Error
}
