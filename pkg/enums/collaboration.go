package enums

import "fmt"

// CollaborationType is the kind of partnership being requested.
type CollaborationType string

const (
	CollaborationTypeJoint        CollaborationType = "joint"
	CollaborationTypeSponsorship  CollaborationType = "sponsorship"
	CollaborationTypeSpaceSharing CollaborationType = "space_sharing"
	CollaborationTypeEvent        CollaborationType = "event"
	CollaborationTypeOther        CollaborationType = "other"
)

var validCollaborationTypes = []CollaborationType{
	CollaborationTypeJoint,
	CollaborationTypeSponsorship,
	CollaborationTypeSpaceSharing,
	CollaborationTypeEvent,
	CollaborationTypeOther,
}

// IsValid reports whether the value is a known CollaborationType.
func (c CollaborationType) IsValid() bool {
	for _, candidate := range validCollaborationTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// CollaborationStatus tracks a request; only pending is written by this service.
type CollaborationStatus string

const (
	CollaborationStatusPending   CollaborationStatus = "pending"
	CollaborationStatusApproved  CollaborationStatus = "approved"
	CollaborationStatusRejected  CollaborationStatus = "rejected"
	CollaborationStatusCompleted CollaborationStatus = "completed"
)

var validCollaborationStatuses = []CollaborationStatus{
	CollaborationStatusPending,
	CollaborationStatusApproved,
	CollaborationStatusRejected,
	CollaborationStatusCompleted,
}

// ParseCollaborationStatus converts raw input into a CollaborationStatus.
func ParseCollaborationStatus(value string) (CollaborationStatus, error) {
	for _, candidate := range validCollaborationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid collaboration status %q", value)
}
