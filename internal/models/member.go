package models

// TeamMember follows the same two-tier reconciliation pattern as tasks but
// carries no derived fields, so one shape serves storage and display.
type TeamMember struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	OwnerID string `json:"owner_id"`
}
