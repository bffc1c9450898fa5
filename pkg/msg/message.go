package msg

// Request bodies.

type StudentRequest struct {
	Name string `json:"name" form:"name" query:"name"`
}

type TeacherCredentialRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type TeacherVerifyRequest struct {
	Username string `json:"username" form:"username"`
}

// Response is embedded in every reply.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`

	// Set on failures, e.g. "CooldownActive".
	Code string `json:"code,omitempty"`
}

func OK() *Response {
	return &Response{Success: true}
}

func Fail(code, message string) *Response {
	return &Response{Success: false, Code: code, Message: message}
}
