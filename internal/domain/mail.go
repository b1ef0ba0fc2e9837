package domain

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type ConfirmRegistrationMailData struct {
	FullName   string `json:"fullName"`
	Link       string `json:"link"`
	Expiration int    `json:"expiration"`
}

type ResetPasswordMailData struct {
	FullName   string `json:"fullName"`
	Link       string `json:"link"`
	Expiration int    `json:"expiration"`
}

type TempPasswordMailData struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type ChangeEmailMailData struct {
	FullName   string `json:"fullName"`
	Link       string `json:"link"`
	Expiration int    `json:"expiration"`
}

type TaskAssignedMailData struct {
	FullName    string `json:"fullName"`
	TaskName    string `json:"taskName"`
	ProjectName string `json:"projectName"`
	DueDate     string `json:"dueDate"`
}

type DeadlineReminderMailData struct {
	FullName string   `json:"fullName"`
	DueDate  string   `json:"dueDate"`
	Tasks    []string `json:"tasks"`
}
