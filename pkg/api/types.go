package api

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TriggerRequest struct {
	Revision string `json:"revision"`
	Ref      string `json:"ref"`
}

type TriggerResponse struct {
	RunUUID string `json:"run_uuid"`
}

type PushPayload struct {
	Type     string `json:"type" binding:"required"`
	Revision string `json:"revision"`
	Ref      string `json:"ref"`
}
