package workshop

import (
	"context"
	"errors"
	"math/rand"
	"strings"

	"gorm.io/gorm"

	"github.com/SocialOwlHQ/SocialOwl/app/models"
	"github.com/SocialOwlHQ/SocialOwl/app/repository"
)

// Sentinel errors of the workshop join flow.
var (
	// ErrWorkshopNotFound means the workshop does not exist or is inactive.
	ErrWorkshopNotFound = errors.New("workshop not found or inactive")

	// ErrInvalidAccessCode means the workshop requires an access code and
	// the provided one does not match.
	ErrInvalidAccessCode = errors.New("invalid access code")

	// ErrGroupNotFound means the chosen group does not belong to the workshop.
	ErrGroupNotFound = errors.New("group not found")

	// ErrGroupFull means the chosen group has no free seat.
	ErrGroupFull = errors.New("group is full")

	// ErrAllGroupsFull means no group in the workshop has a free seat.
	ErrAllGroupsFull = errors.New("all groups are full")

	// ErrDuplicateName means an active participant with that exact name
	// already exists somewhere in the workshop.
	ErrDuplicateName = errors.New("name already taken in this workshop")

	// ErrAssignmentRequired means the workshop only accepts participants
	// placed by the organizer.
	ErrAssignmentRequired = errors.New("workshop requires organizer assignment")
)

// randIntn is swapped out in tests for deterministic group picks.
var randIntn = rand.Intn

// Service places participants into workshop groups.
type Service struct {
	repo repository.WorkshopRepository
}

// NewService creates a workshop service from an injected repository.
func NewService(repo repository.WorkshopRepository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a workshop service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(repository.NewWorkshopRepository(db))
}

// JoinInput carries a join request. UserID is zero for guests.
type JoinInput struct {
	WorkshopID       uint   `json:"workshop_id" validate:"required"`
	AccessCode       string `json:"access_code"`
	Name             string `json:"name" validate:"required,min=1,max=150"`
	Email            string `json:"email"`
	PreferredGroupID uint   `json:"preferred_group_id"`
	UserID           uint   `json:"-"`
}

// JoinResult describes where a participant landed.
type JoinResult struct {
	ParticipantID uint   `json:"participant_id"`
	GroupID       uint   `json:"group_id"`
	GroupName     string `json:"group_name"`
	GroupColor    string `json:"group_color,omitempty"`
}

// Join places a participant into a group according to the workshop's join
// mode. CHOICE honors the preferred group, RANDOM picks any group with a
// free seat, ASSIGNED rejects self-service joins entirely.
func (s *Service) Join(ctx context.Context, in JoinInput) (*JoinResult, error) {
	_ = ctx
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrDuplicateName
	}

	workshop, err := s.loadWorkshop(in.WorkshopID, in.AccessCode)
	if err != nil {
		return nil, err
	}

	counts, err := s.repo.GroupParticipantCounts(workshop.ID)
	if err != nil {
		return nil, err
	}

	var target *models.Group
	switch workshop.JoinMode {
	case models.JoinModeChoice:
		target, err = pickChosenGroup(workshop, counts, in.PreferredGroupID)
	case models.JoinModeRandom:
		target, err = pickRandomGroup(workshop, counts)
	case models.JoinModeAssigned:
		err = ErrAssignmentRequired
	default:
		err = ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}

	// Names are first-write-wins across the whole workshop.
	if _, err := s.repo.FindActiveParticipantByName(workshop.ID, name); err == nil {
		return nil, ErrDuplicateName
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	participant := &models.Participant{
		GroupID:  target.ID,
		Name:     name,
		Email:    strings.TrimSpace(in.Email),
		IsActive: true,
	}
	if in.UserID != 0 {
		participant.UserID = &in.UserID
	}
	if err := s.repo.CreateParticipant(participant); err != nil {
		return nil, err
	}

	return &JoinResult{
		ParticipantID: participant.ID,
		GroupID:       target.ID,
		GroupName:     target.Name,
		GroupColor:    target.Color,
	}, nil
}

// GroupAvailability is the joiner-facing view of one group.
type GroupAvailability struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color,omitempty"`
	MaxSize   int    `json:"max_size"`
	FreeSeats int    `json:"free_seats"`
}

// JoinInfo describes whether and how a workshop can be joined.
type JoinInfo struct {
	WorkshopID         uint                `json:"workshop_id"`
	Name               string              `json:"name"`
	JoinMode           string              `json:"join_mode"`
	RequiresAccessCode bool                `json:"requires_access_code"`
	Groups             []GroupAvailability `json:"groups,omitempty"`
}

// Info returns the join options for a workshop. Group details are only
// revealed when the join mode lets participants pick a group themselves,
// and only once a required access code checks out.
func (s *Service) Info(ctx context.Context, workshopID uint, accessCode string) (*JoinInfo, error) {
	_ = ctx
	workshop, err := s.repo.GetActiveByID(workshopID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkshopNotFound
		}
		return nil, err
	}

	info := &JoinInfo{
		WorkshopID:         workshop.ID,
		Name:               workshop.Name,
		JoinMode:           workshop.JoinMode,
		RequiresAccessCode: workshop.AccessCode != "",
	}
	if info.RequiresAccessCode && strings.TrimSpace(accessCode) != strings.TrimSpace(workshop.AccessCode) {
		return info, nil
	}
	if workshop.JoinMode != models.JoinModeChoice {
		return info, nil
	}

	counts, err := s.repo.GroupParticipantCounts(workshop.ID)
	if err != nil {
		return nil, err
	}
	for _, group := range workshop.Groups {
		free := group.MaxSize - int(counts[group.ID])
		if free < 0 {
			free = 0
		}
		info.Groups = append(info.Groups, GroupAvailability{
			ID:        group.ID,
			Name:      group.Name,
			Color:     group.Color,
			MaxSize:   group.MaxSize,
			FreeSeats: free,
		})
	}
	return info, nil
}

// Assign places a participant into a specific group on behalf of the
// organizer. Capacity and duplicate-name rules still apply; the join mode
// does not.
func (s *Service) Assign(ctx context.Context, workshopID, groupID uint, name, email string) (*JoinResult, error) {
	_ = ctx
	name = strings.TrimSpace(name)

	workshop, err := s.repo.GetActiveByID(workshopID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkshopNotFound
		}
		return nil, err
	}

	var target *models.Group
	for i := range workshop.Groups {
		if workshop.Groups[i].ID == groupID {
			target = &workshop.Groups[i]
			break
		}
	}
	if target == nil {
		return nil, ErrGroupNotFound
	}

	count, err := s.repo.CountActiveParticipants(target.ID)
	if err != nil {
		return nil, err
	}
	if int(count) >= target.MaxSize {
		return nil, ErrGroupFull
	}

	if _, err := s.repo.FindActiveParticipantByName(workshop.ID, name); err == nil {
		return nil, ErrDuplicateName
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	participant := &models.Participant{
		GroupID:  target.ID,
		Name:     name,
		Email:    strings.TrimSpace(email),
		IsActive: true,
	}
	if err := s.repo.CreateParticipant(participant); err != nil {
		return nil, err
	}

	return &JoinResult{
		ParticipantID: participant.ID,
		GroupID:       target.ID,
		GroupName:     target.Name,
		GroupColor:    target.Color,
	}, nil
}

// CreateInput carries a new workshop with its groups.
type CreateInput struct {
	OwnerUserID uint         `json:"-"`
	Name        string       `json:"name" validate:"required,min=1,max=150"`
	Description string       `json:"description"`
	JoinMode    string       `json:"join_mode" validate:"oneof=CHOICE RANDOM ASSIGNED"`
	AccessCode  string       `json:"access_code"`
	Groups      []GroupInput `json:"groups" validate:"required,min=1,dive"`
}

// GroupInput carries one group definition.
type GroupInput struct {
	Name    string `json:"name" validate:"required,min=1,max=100"`
	Color   string `json:"color"`
	MaxSize int    `json:"max_size" validate:"min=1,max=100"`
}

// Create stores a workshop with its groups. Group sizes default to 4.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Workshop, error) {
	_ = ctx
	workshop := &models.Workshop{
		OwnerUserID: in.OwnerUserID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		JoinMode:    in.JoinMode,
		AccessCode:  strings.TrimSpace(in.AccessCode),
		IsActive:    true,
	}
	for _, g := range in.Groups {
		size := g.MaxSize
		if size <= 0 {
			size = 4
		}
		workshop.Groups = append(workshop.Groups, models.Group{
			Name:    strings.TrimSpace(g.Name),
			Color:   g.Color,
			MaxSize: size,
		})
	}
	if err := s.repo.Create(workshop); err != nil {
		return nil, err
	}
	return workshop, nil
}

func (s *Service) loadWorkshop(id uint, accessCode string) (*models.Workshop, error) {
	workshop, err := s.repo.GetActiveByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkshopNotFound
		}
		return nil, err
	}
	if workshop.AccessCode != "" && strings.TrimSpace(accessCode) != strings.TrimSpace(workshop.AccessCode) {
		return nil, ErrInvalidAccessCode
	}
	return workshop, nil
}

func pickChosenGroup(workshop *models.Workshop, counts map[uint]int64, preferredID uint) (*models.Group, error) {
	if preferredID == 0 {
		return nil, ErrGroupNotFound
	}
	for i := range workshop.Groups {
		group := &workshop.Groups[i]
		if group.ID != preferredID {
			continue
		}
		if int(counts[group.ID]) >= group.MaxSize {
			return nil, ErrGroupFull
		}
		return group, nil
	}
	return nil, ErrGroupNotFound
}

func pickRandomGroup(workshop *models.Workshop, counts map[uint]int64) (*models.Group, error) {
	var available []*models.Group
	for i := range workshop.Groups {
		group := &workshop.Groups[i]
		if int(counts[group.ID]) < group.MaxSize {
			available = append(available, group)
		}
	}
	if len(available) == 0 {
		return nil, ErrAllGroupsFull
	}
	return available[randIntn(len(available))], nil
}
