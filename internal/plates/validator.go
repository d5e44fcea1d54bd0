package plates

import (
	"strings"

	"github.com/google/uuid"

	"github.com/malikhaddad/gatewatch-backend/pkg/db/models"
	"github.com/malikhaddad/gatewatch-backend/pkg/enums"
)

// DecisionAction is the outcome of duplicate evaluation.
type DecisionAction string

const (
	DecisionAcceptNew DecisionAction = "accept_new"
	DecisionRevive    DecisionAction = "revive"
	DecisionReject    DecisionAction = "reject"
)

// Decision carries the validator verdict for a registration attempt.
type Decision struct {
	Action     DecisionAction
	ExistingID uuid.UUID
	Reason     string
}

// Candidate is the plate identity a requester is trying to register.
type Candidate struct {
	PlateCode   string
	PlateNumber string
	Country     string
	Emirate     *string
	Type        enums.PlateType
}

// NormalizeEmirate collapses empty or blank emirate values to nil so tuple
// comparison treats "" and NULL as the same thing.
func NormalizeEmirate(emirate *string) *string {
	if emirate == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*emirate)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// EvaluateDuplicate decides whether a registration should insert a new row,
// revive the requester's expired guest row, or be rejected as a duplicate.
// Only the requester's own plates participate; community-wide uniqueness for
// personal plates is enforced by the storage index and mapped by the engine.
//
// An expired match never blocks a guest registration: repeat visitors are
// common and their old row is reused instead of inserting a sibling with the
// same natural key. Personal registrations conflict with a match of any
// status. Revival applies only when the matched row is itself an expired
// guest plate and the request is for a guest plate.
func EvaluateDuplicate(candidate Candidate, existing []models.Plate) Decision {
	emirate := NormalizeEmirate(candidate.Emirate)

	var revivable *models.Plate
	for i := range existing {
		plate := &existing[i]
		if !tupleMatches(plate, candidate, emirate) {
			continue
		}
		if candidate.Type == enums.PlateTypeGuest {
			if plate.Status == enums.PlateStatusExpired {
				if plate.Type == enums.PlateTypeGuest && revivable == nil {
					revivable = plate
				}
				continue
			}
			return Decision{Action: DecisionReject, Reason: "duplicate plate in account"}
		}
		// Personal requests conflict with any status.
		return Decision{Action: DecisionReject, Reason: "duplicate plate in account"}
	}

	if revivable != nil {
		return Decision{Action: DecisionRevive, ExistingID: revivable.ID}
	}
	return Decision{Action: DecisionAcceptNew}
}

func tupleMatches(plate *models.Plate, candidate Candidate, emirate *string) bool {
	if plate.PlateCode != candidate.PlateCode ||
		plate.PlateNumber != candidate.PlateNumber ||
		plate.Country != candidate.Country {
		return false
	}
	existing := NormalizeEmirate(plate.Emirate)
	if existing == nil || emirate == nil {
		return existing == nil && emirate == nil
	}
	return *existing == *emirate
}
