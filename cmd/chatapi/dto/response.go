package dto

// ErrorResponseDTO 는 공통 에러 응답 형식이다.
type ErrorResponseDTO struct {
	Error string `json:"error" example:"invalid_request"`
}
