package auth

// IssueTrigger selects how ClaimIssuer.Issue builds claims. The set of
// implementations is closed: FreshIssue and RefreshMerge.
type IssueTrigger interface {
	issueTrigger()
}

// FreshIssue builds claims from a freshly loaded user, used on login
type FreshIssue struct {
	User *User
}

// RefreshMerge merges a profile update over the claims of an existing
// session, keeping every registered claim as is.
type RefreshMerge struct {
	Session *Session
	Update  PartialClaims
}

func (FreshIssue) issueTrigger()   {}
func (RefreshMerge) issueTrigger() {}
