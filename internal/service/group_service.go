package service

import (
	"context"
	"fmt"

	"github.com/silicity/silicity-server/internal/domain"
	"github.com/silicity/silicity-server/internal/repository"
	"github.com/silicity/silicity-server/pkg/events"
	"github.com/silicity/silicity-server/pkg/logger"
)

type GroupService interface {
	Create(ctx context.Context, userID int64, req *domain.CreateGroupRequest) (*domain.Group, error)
	ListOpen(ctx context.Context) ([]domain.Group, error)
	Join(ctx context.Context, groupID, userID int64) (*domain.Group, error)
	Leave(ctx context.Context, groupID, userID int64) error
	Messages(ctx context.Context, groupID, userID int64) ([]domain.EnrichedMessage, error)
	Graduate(ctx context.Context, groupID, userID int64) (*domain.Group, error)
}

type groupService struct {
	groupRepo   repository.GroupRepository
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	bus         events.Publisher
}

func NewGroupService(
	groupRepo repository.GroupRepository,
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	bus events.Publisher,
) GroupService {
	return &groupService{
		groupRepo:   groupRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		bus:         bus,
	}
}

func (s *groupService) Create(ctx context.Context, userID int64, req *domain.CreateGroupRequest) (*domain.Group, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, domain.Validation(err.Error())
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, domain.NotFound("User not found")
	}

	group, err := s.groupRepo.Create(ctx, &domain.Group{
		Name:        req.Name,
		Topic:       req.Topic,
		Description: req.Description,
		Members:     []int64{userID}, // the creator is the first member
		AdminID:     &userID,
		Status:      domain.GroupOpen,
		Visibility:  domain.VisibilityPublic,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	s.publish(ctx, events.GroupCreated, events.GroupEvent{GroupID: group.ID, UserID: userID, Name: group.Name})
	s.publish(ctx, events.AdminAlert, events.AdminAlertEvent{
		Title: "New study group created",
		Body:  fmt.Sprintf("%s created the study group %q.", user.Name, group.Name),
		Details: map[string]string{
			"topic":   group.Topic,
			"creator": user.Email,
		},
	})

	return group, nil
}

func (s *groupService) ListOpen(ctx context.Context) ([]domain.Group, error) {
	groups, err := s.groupRepo.ListOpenPublic(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

func (s *groupService) Join(ctx context.Context, groupID, userID int64) (*domain.Group, error) {
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to find group: %w", err)
	}
	if group == nil {
		return nil, domain.NotFound("Group not found")
	}

	if group.Status == domain.GroupClosed {
		return nil, domain.Conflict("This group is closed")
	}
	if group.IsMember(userID) {
		return nil, domain.Conflict("You are already a member of this group")
	}
	if len(group.Members) >= domain.GroupCapacity {
		return nil, domain.Conflict("This group is full")
	}

	if err := s.groupRepo.AddMember(ctx, groupID, userID); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}
	group.Members = append(group.Members, userID)

	s.publish(ctx, events.GroupMemberJoined, events.GroupEvent{GroupID: groupID, UserID: userID})

	return group, nil
}

// Leave is idempotent: leaving a group you are not in succeeds quietly.
func (s *groupService) Leave(ctx context.Context, groupID, userID int64) error {
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to find group: %w", err)
	}
	if group == nil {
		return domain.NotFound("Group not found")
	}

	if err := s.groupRepo.RemoveMember(ctx, groupID, userID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	s.publish(ctx, events.GroupMemberLeft, events.GroupEvent{GroupID: groupID, UserID: userID})

	return nil
}

func (s *groupService) Messages(ctx context.Context, groupID, userID int64) ([]domain.EnrichedMessage, error) {
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to find group: %w", err)
	}
	if group == nil {
		return nil, domain.NotFound("Group not found")
	}

	if !group.Authorizes(userID) {
		return nil, domain.Authorization("You don't have access to this chat")
	}

	messages, err := s.messageRepo.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// Graduate opens a project team to the community as a public study group.
func (s *groupService) Graduate(ctx context.Context, groupID, userID int64) (*domain.Group, error) {
	group, err := s.groupRepo.FindByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to find group: %w", err)
	}
	if group == nil {
		return nil, domain.NotFound("Group not found")
	}

	if !group.IsProjectTeam {
		return nil, domain.State("This group is not a project team")
	}
	if !group.Authorizes(userID) {
		return nil, domain.Authorization("Only team members can do this")
	}

	if err := s.groupRepo.SetStatusVisibility(ctx, groupID, domain.GroupOpen, domain.VisibilityPublic); err != nil {
		return nil, fmt.Errorf("failed to graduate group: %w", err)
	}
	group.Status = domain.GroupOpen
	group.Visibility = domain.VisibilityPublic
	// IsProjectTeam stays true: the group keeps its project badge.

	s.publish(ctx, events.GroupGraduated, events.GroupEvent{GroupID: groupID, UserID: userID, Name: group.Name})

	return group, nil
}

func (s *groupService) publish(ctx context.Context, subject string, data interface{}) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, subject, data); err != nil {
		logger.WarnContext(ctx, "failed to publish event", "subject", subject, "error", err)
	}
}
