package dto

// PrintHeader holds the values printed above transmitted grade sheets.
type PrintHeader struct {
	SchoolName  string `json:"school_name"`
	ManagerName string `json:"manager_name"`
}

// UpdatePrintHeaderRequest replaces the print header settings.
type UpdatePrintHeaderRequest struct {
	SchoolName  string `json:"school_name" validate:"required,max=200"`
	ManagerName string `json:"manager_name" validate:"max=200"`
}
