package audithook

// Action constants for audit events.
const (
	// Membership actions
	ActionMembershipPurchased = "membership.purchased"
	ActionMembershipRenewed   = "membership.renewed"
	ActionMembershipUpgraded  = "membership.upgraded"
	ActionDetailsChanged      = "membership.details_changed"
	ActionMembershipRevoked   = "membership.revoked"

	// Catalog actions
	ActionFeeChanged        = "tier.fee_changed"
	ActionTierStatusChanged = "tier.status_changed"

	// Treasury actions
	ActionFundsWithdrawn = "treasury.withdrawn"

	// Rejections
	ActionOperationRejected = "operation.rejected"
)

// Resource constants for audit events.
const (
	ResourceMember   = "member"
	ResourceTier     = "tier"
	ResourceTreasury = "treasury"
)

// Category constants for audit events.
const (
	CategoryMembership = "membership"
	CategoryCatalog    = "catalog"
	CategoryPayment    = "payment"
	CategoryAccess     = "access"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
