package employee

type CreateEmployeeRequest struct {
	Name         string `json:"name" binding:"required,max=80"`
	Email        string `json:"email" binding:"required,email,max=120"`
	Department   string `json:"department" binding:"required,max=60"`
	JoiningDate  string `json:"joining_date" binding:"required"`
	LeaveBalance *int   `json:"leave_balance" binding:"omitempty,min=0,max=365"`
}

type EmployeeResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Department   string `json:"department"`
	JoiningDate  string `json:"joining_date"`
	LeaveBalance int    `json:"leave_balance"`
	CreatedAt    string `json:"created_at"`
}

type BalanceResponse struct {
	EmployeeID   string `json:"employee_id"`
	Name         string `json:"name"`
	LeaveBalance int    `json:"leave_balance"`
}
