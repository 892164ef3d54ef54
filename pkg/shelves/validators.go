package shelves

type GetShelfQuery struct {
	Page      int     `query:"page" json:"page,omitempty" validate:"min=0"`
	PageSize  int     `query:"page_size" json:"page_size,omitempty" default:"20" validate:"min=1,max=100"`
	SortBy    *string `query:"sort_by" json:"sort_by,omitempty" validate:"omitempty,oneof=title author date_added date_read"`
	SortOrder *string `query:"sort_order" json:"sort_order,omitempty" validate:"omitempty,oneof=asc desc"`
	Title     *string `query:"title" json:"title,omitempty"`
	Author    *string `query:"author" json:"author,omitempty"`
}

type RecentlyReadQuery struct {
	Limit  int  `query:"limit" json:"limit,omitempty" default:"20" validate:"min=1,max=100"`
	Offset *int `query:"offset" json:"offset,omitempty" validate:"omitempty,min=0"`
}
