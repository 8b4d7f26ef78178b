package notify

import "fmt"

// Draft is an unpersisted notification: everything except the recipient,
// id and timestamps. Template constructors below keep wording out of the
// domain services, so new kinds never touch lifecycle code.
type Draft struct {
	Type      Type
	Title     string
	Message   string
	RelatedID string
}

// MatchRequested is sent to the receiver of a new match request.
func MatchRequested(matchID, subject string) Draft {
	return Draft{
		Type:      TypeMatchRequestReceived,
		Title:     "New match request",
		Message:   fmt.Sprintf("Someone wants to exchange %s study material with you.", subject),
		RelatedID: matchID,
	}
}

// MatchAccepted is sent to the requester when the receiver accepts.
func MatchAccepted(matchID string) Draft {
	return Draft{
		Type:      TypeSystem,
		Title:     "Match accepted",
		Message:   "Your match request was accepted. You can now complete the exchange.",
		RelatedID: matchID,
	}
}

// MatchRejected is sent to the requester when the receiver rejects.
func MatchRejected(matchID string) Draft {
	return Draft{
		Type:      TypeSystem,
		Title:     "Match rejected",
		Message:   "Your match request was rejected.",
		RelatedID: matchID,
	}
}

// MatchCompleted is sent to the counterpart of the user who completed.
func MatchCompleted(matchID string) Draft {
	return Draft{
		Type:      TypeMatchCompleted,
		Title:     "Match completed",
		Message:   "Your exchange was marked as completed. Thanks for participating!",
		RelatedID: matchID,
	}
}

// MatchExpired is sent to both participants when a match times out.
func MatchExpired(matchID string) Draft {
	return Draft{
		Type:      TypeSystem,
		Title:     "Match expired",
		Message:   "A match expired before it was completed.",
		RelatedID: matchID,
	}
}

// MaterialReviewed is sent to the uploader after moderation.
func MaterialReviewed(materialID, title string, approved bool) Draft {
	if approved {
		return Draft{
			Type:      TypeMaterialApproved,
			Title:     "Material approved",
			Message:   fmt.Sprintf("Your material %q was approved and is now matchable.", title),
			RelatedID: materialID,
		}
	}
	return Draft{
		Type:      TypeMaterialRejected,
		Title:     "Material rejected",
		Message:   fmt.Sprintf("Your material %q was rejected by a moderator.", title),
		RelatedID: materialID,
	}
}

// UserPromoted is sent when a user regains match eligibility.
func UserPromoted() Draft {
	return Draft{
		Type:    TypeUserPromoted,
		Title:   "Welcome back",
		Message: "Your trust score qualifies you for matching again.",
	}
}
