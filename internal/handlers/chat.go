package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"telehealth-server/internal/apperr"
	"telehealth-server/internal/config"
	"telehealth-server/internal/middleware"
	"telehealth-server/internal/models"
	"telehealth-server/internal/utils"
)

// ChatHandler handles doctor to patient messaging.
type ChatHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(db *gorm.DB, cfg *config.Config) *ChatHandler {
	return &ChatHandler{DB: db, Cfg: cfg}
}

// isParticipant reports whether caller is the doctor or the patient of chat.
func isParticipant(chat *models.Chat, caller middleware.Caller) bool {
	switch caller.Role {
	case models.RoleDoctor:
		return chat.DoctorID == caller.ID
	case models.RolePatient:
		return chat.PatientID == caller.ID
	}
	return false
}

func (h *ChatHandler) loadChat(c *gin.Context, db *gorm.DB, caller middleware.Caller) (*models.Chat, error) {
	var chat models.Chat
	if err := db.First(&chat, "id = ?", c.Param("id")).Error; err != nil {
		return nil, lookupError("load chat", err, "Chat not found")
	}
	if !isParticipant(&chat, caller) {
		return nil, apperr.Forbidden("Not allowed")
	}
	return &chat, nil
}

// CreateChatRequest names the doctor and patient of a conversation.
type CreateChatRequest struct {
	DoctorID  string `json:"doctorId" binding:"required"`
	PatientID string `json:"patientId" binding:"required"`
}

// CreateOrGetChat returns the pair's chat, creating it on first contact.
func (h *ChatHandler) CreateOrGetChat(c *gin.Context) {
	caller, err := middleware.ResolveCaller(c, models.RoleDoctor, models.RolePatient)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var req CreateChatRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if (caller.Role == models.RoleDoctor && caller.ID != req.DoctorID) ||
		(caller.Role == models.RolePatient && caller.ID != req.PatientID) {
		utils.RespondError(c, apperr.Forbidden("Unauthorized chat access"))
		return
	}

	ctx, cancel := storeContext(c, h.Cfg.StoreTimeout)
	defer cancel()
	db := h.DB.WithContext(ctx)

	var doctor, patient models.User
	errDoctor := db.Where("id = ? AND role = ?", req.DoctorID, models.RoleDoctor).First(&doctor).Error
	errPatient := db.Where("id = ? AND role = ?", req.PatientID, models.RolePatient).First(&patient).Error
	for _, err := range []error{errDoctor, errPatient} {
		if err != nil {
			utils.RespondError(c, lookupError("load chat members", err, "Doctor or Patient not found"))
			return
		}
	}

	chat := models.Chat{
		DoctorID:    doctor.ID,
		DoctorName:  doctor.DisplayName(),
		PatientID:   patient.ID,
		PatientName: patient.DisplayName(),
	}
	// The pair index makes a concurrent create a no-op; the lookup below
	// returns whichever row won.
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "doctor_id"}, {Name: "patient_id"}},
		DoNothing: true,
	}).Create(&chat).Error
	if err != nil {
		utils.RespondError(c, apperr.Dependency("create chat", err))
		return
	}

	var existing models.Chat
	if err := db.Where("doctor_id = ? AND patient_id = ?", doctor.ID, patient.ID).First(&existing).Error; err != nil {
		utils.RespondError(c, apperr.Dependency("load chat", err))
		return
	}
	utils.Success(c, "", gin.H{"chatId": existing.ID})
}

// SendMessageRequest is the body of a new message.
type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// SendMessage appends a message and bumps the counterpart's unread counter.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	caller, err := middleware.ResolveCaller(c, models.RoleDoctor, models.RolePatient)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var req SendMessageRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		utils.BadRequest(c, "Message text required")
		return
	}

	ctx, cancel := storeContext(c, h.Cfg.StoreTimeout)
	defer cancel()

	chat, err := h.loadChat(c, h.DB.WithContext(ctx), caller)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	msg := models.ChatMessage{
		ChatID:     chat.ID,
		SenderID:   caller.ID,
		SenderRole: caller.Role,
		Text:       text,
	}
	updates := map[string]any{
		"last_message":     text,
		"last_sender_role": caller.Role,
	}
	if caller.Role == models.RoleDoctor {
		updates["unread_for_patient"] = gorm.Expr("unread_for_patient + 1")
		updates["unread_for_doctor"] = 0
	} else {
		updates["unread_for_doctor"] = gorm.Expr("unread_for_doctor + 1")
		updates["unread_for_patient"] = 0
	}

	err = h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Chat{}).Where("id = ?", chat.ID).Updates(updates).Error
	})
	if err != nil {
		utils.RespondError(c, apperr.Dependency("send message", err))
		return
	}
	utils.Created(c, "", gin.H{"messageId": msg.ID})
}

// GetMessages returns a chat's messages oldest first.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	caller, err := middleware.ResolveCaller(c, models.RoleDoctor, models.RolePatient)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	ctx, cancel := storeContext(c, h.Cfg.StoreTimeout)
	defer cancel()
	db := h.DB.WithContext(ctx)

	chat, err := h.loadChat(c, db, caller)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	messages := []models.ChatMessage{}
	if err := db.Where("chat_id = ?", chat.ID).Order("created_at asc, id asc").Find(&messages).Error; err != nil {
		utils.RespondError(c, apperr.Dependency("list messages", err))
		return
	}
	utils.Success(c, "", gin.H{"messages": messages})
}

// GetDoctorChats lists the calling doctor's chats, most recent first.
func (h *ChatHandler) GetDoctorChats(c *gin.Context) {
	h.listChats(c, models.RoleDoctor, "doctor_id")
}

// GetPatientChats lists the calling patient's chats, most recent first.
func (h *ChatHandler) GetPatientChats(c *gin.Context) {
	h.listChats(c, models.RolePatient, "patient_id")
}

func (h *ChatHandler) listChats(c *gin.Context, role models.Role, column string) {
	caller, err := middleware.ResolveCaller(c, role)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	ctx, cancel := storeContext(c, h.Cfg.StoreTimeout)
	defer cancel()

	chats := []models.Chat{}
	err = h.DB.WithContext(ctx).
		Where(column+" = ?", caller.ID).
		Order("updated_at desc, id asc").
		Find(&chats).Error
	if err != nil {
		utils.RespondError(c, apperr.Dependency("list chats", err))
		return
	}
	utils.Success(c, "", gin.H{"chats": chats})
}

// MarkChatRead clears the caller's unread counter.
func (h *ChatHandler) MarkChatRead(c *gin.Context) {
	caller, err := middleware.ResolveCaller(c, models.RoleDoctor, models.RolePatient)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	ctx, cancel := storeContext(c, h.Cfg.StoreTimeout)
	defer cancel()
	db := h.DB.WithContext(ctx)

	chat, err := h.loadChat(c, db, caller)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	column := "unread_for_patient"
	if caller.Role == models.RoleDoctor {
		column = "unread_for_doctor"
	}
	// UpdateColumn leaves updated_at alone so reading does not reorder the list.
	if err := db.Model(&models.Chat{}).Where("id = ?", chat.ID).UpdateColumn(column, 0).Error; err != nil {
		utils.RespondError(c, apperr.Dependency("mark chat read", err))
		return
	}
	utils.Success(c, "", nil)
}
