package dto

type ChatRequestDTO struct {
	Message string `json:"message" binding:"required" example:"Where can I find the best Machboos?"`
}

type ChatResponseDTO struct {
	Reply string `json:"reply" example:"Head to Souq Waqif..."`
}

type HealthResponseDTO struct {
	Status string `json:"status" example:"ok"`
	Mongo  string `json:"mongo,omitempty" example:"up"`
	Error  string `json:"error,omitempty"`
}
