package sync

type CreateSyncPayload struct {
	Shelf *string `json:"shelf,omitempty" validate:"omitempty,oneof=currently-reading read to-read"`
}

type ListSyncRunsQuery struct {
	Limit  int      `query:"limit" json:"limit,omitempty" default:"10" validate:"min=1,max=100"`
	Offset int      `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Shelf  *string  `query:"shelf" json:"shelf,omitempty" validate:"omitempty,oneof=currently-reading read to-read"`
	Status []string `query:"status" json:"status,omitempty" validate:"dive,oneof=in_progress completed failed"`
}
