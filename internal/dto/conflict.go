package dto

// ConflictQuery selects the range a conflict listing or scan covers.
type ConflictQuery struct {
	UserID string `form:"user_id" json:"user_id" validate:"omitempty,max=64"`
	From   string `form:"from" json:"from" validate:"required,datetime=2006-01-02"`
	To     string `form:"to" json:"to" validate:"required,datetime=2006-01-02"`
}

// RescanResult summarises an all-users rescan.
type RescanResult struct {
	Users   int `json:"users"`
	Flagged int `json:"flagged"`
	Pairs   int `json:"pairs"`
}
