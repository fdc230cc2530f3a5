package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"doha-explorer/cmd/chatapi/dto"
	"doha-explorer/cmd/chatapi/middleware"
	"doha-explorer/cmd/chatapi/services"
)

// ChatHandler godoc
// @Summary      Doha Explorer 에 질문
// @Description  메시지 하나를 받아 Doha 여행 가이드 답변을 돌려준다. 대화 히스토리는 클라이언트가 관리한다.
// @Tags         chat
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      dto.ChatRequestDTO  true  "chat request"
// @Success      200   {object}  dto.ChatResponseDTO
// @Failure      400   {object}  dto.ErrorResponseDTO
// @Failure      401   {object}  dto.ErrorResponseDTO
// @Failure      503   {object}  dto.ErrorResponseDTO
// @Failure      500   {object}  dto.ErrorResponseDTO
// @Router       /api/chat [post]
func ChatHandler(chatSvc *services.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.ChatRequestDTO
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: "invalid_request"})
			return
		}

		userID := c.GetString(middleware.ContextKeyUserID)
		reply, chatErr := chatSvc.Chat(c.Request.Context(), userID, req.Message)
		if chatErr != nil {
			c.JSON(chatErr.StatusCode, dto.ErrorResponseDTO{Error: chatErr.ErrorCode})
			return
		}

		c.JSON(http.StatusOK, dto.ChatResponseDTO{Reply: reply})
	}
}
