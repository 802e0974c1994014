package models

// Student defines the student model based on the 'students' table
type Student struct {
	ID            int64  `json:"id" db:"id" example:"1"`
	StudentNumber string `json:"studentNumber" db:"student_number" example:"20260001"`
	Name          string `json:"name" db:"name" example:"Ada Yilmaz"`
	DepartmentID  int64  `json:"departmentId" db:"department_id" example:"2"` // Home department, decides inner/outer

	Department *Department `json:"department,omitempty"`
}
