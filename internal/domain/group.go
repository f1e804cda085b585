package domain

import (
	"fmt"
	"strings"
	"time"
)

// GroupCapacity is the hard bound on roster size.
const GroupCapacity = 20

// Group statuses
const (
	GroupOpen   = "open"
	GroupClosed = "closed"
)

// Group visibility
const (
	VisibilityPublic = "public"
	VisibilityHidden = "hidden"
)

type Group struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Topic         string    `json:"topic"`
	Description   string    `json:"description"`
	Members       []int64   `json:"members"`
	AdminID       *int64    `json:"admin_id,omitempty"`
	Status        string    `json:"status"`
	Visibility    string    `json:"visibility"`
	IsProjectTeam bool      `json:"is_project_team"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Authorizes is the single membership predicate consulted everywhere a user
// acts on a group: HTTP join and history, realtime channel join, and every
// realtime send. Keeping one implementation stops the checks from drifting.
func (g *Group) Authorizes(userID int64) bool {
	if g.AdminID != nil && *g.AdminID == userID {
		return true
	}
	return g.IsMember(userID)
}

func (g *Group) IsMember(userID int64) bool {
	for _, id := range g.Members {
		if id == userID {
			return true
		}
	}
	return false
}

type CreateGroupRequest struct {
	Name        string `json:"name"`
	Topic       string `json:"topic"`
	Description string `json:"description"`
}

func (r *CreateGroupRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if r.Topic == "" {
		return fmt.Errorf("topic is required")
	}
	return nil
}

func (r *CreateGroupRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Topic = strings.TrimSpace(r.Topic)
	r.Description = strings.TrimSpace(r.Description)
}
