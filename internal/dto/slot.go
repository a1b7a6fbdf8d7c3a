package dto

// SuggestTimesQuery asks for free windows on one date.
type SuggestTimesQuery struct {
	UserID    string `form:"user_id" validate:"omitempty,max=64"`
	Date      string `form:"date" validate:"required,datetime=2006-01-02"`
	Duration  int    `form:"duration" validate:"omitempty,gte=5,lte=540"`
	EventType string `form:"event_type" validate:"max=64"`
}
