package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeLeadCreated      = "lead.created"
	EventTypeLeadStageChanged = "lead.stage_changed"
	EventTypeLeadAssigned     = "lead.assigned"
)

type LeadCreatedEvent struct {
	BaseEvent
	LeadID      int64  `json:"lead_id"`
	Company     string `json:"company"`
	StageID     int    `json:"stage_id"`
	CreatedByID int64  `json:"created_by_id"`
}

func NewLeadCreatedEvent(leadID int64, company string, stageID int, createdByID int64) *LeadCreatedEvent {
	return &LeadCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeLeadCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"lead_id":       leadID,
				"company":       company,
				"stage_id":      stageID,
				"created_by_id": createdByID,
			},
		},
		LeadID:      leadID,
		Company:     company,
		StageID:     stageID,
		CreatedByID: createdByID,
	}
}

type LeadStageChangedEvent struct {
	BaseEvent
	LeadID      int64 `json:"lead_id"`
	FromStageID int   `json:"from_stage_id"`
	ToStageID   int   `json:"to_stage_id"`
	ChangedByID int64 `json:"changed_by_id"`
}

func NewLeadStageChangedEvent(leadID int64, fromStageID, toStageID int, changedByID int64) *LeadStageChangedEvent {
	return &LeadStageChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeLeadStageChanged,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"lead_id":       leadID,
				"from_stage_id": fromStageID,
				"to_stage_id":   toStageID,
				"changed_by_id": changedByID,
			},
		},
		LeadID:      leadID,
		FromStageID: fromStageID,
		ToStageID:   toStageID,
		ChangedByID: changedByID,
	}
}

type LeadAssignedEvent struct {
	BaseEvent
	LeadID         int64 `json:"lead_id"`
	AssignedUserID int64 `json:"assigned_user_id"`
	AssignedByID   int64 `json:"assigned_by_id"`
}

func NewLeadAssignedEvent(leadID, assignedUserID, assignedByID int64) *LeadAssignedEvent {
	return &LeadAssignedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeLeadAssigned,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"lead_id":          leadID,
				"assigned_user_id": assignedUserID,
				"assigned_by_id":   assignedByID,
			},
		},
		LeadID:         leadID,
		AssignedUserID: assignedUserID,
		AssignedByID:   assignedByID,
	}
}
