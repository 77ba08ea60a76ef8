package enum

// ── Order lifecycle (CHECK constrained in DB) ──

const (
	OrderStatusPending    = "Pending"
	OrderStatusProcessing = "Processing"
	OrderStatusCompleted  = "Completed"
	OrderStatusCancelled  = "Cancelled"
)

// ── Seeded roles (rows in the roles table) ──

const (
	RoleAdmin  = "Admin"
	RoleWaiter = "Waiter"
	RoleUser   = "User"
)

// ── Query options ──

const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

const (
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
)
