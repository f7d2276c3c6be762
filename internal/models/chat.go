package models

// Chat is the single conversation between one doctor and one patient.
type Chat struct {
	BaseModel
	DoctorID         string `gorm:"size:36;not null;uniqueIndex:idx_chat_pair" json:"doctorId"`
	DoctorName       string `gorm:"size:200" json:"doctorName"`
	PatientID        string `gorm:"size:36;not null;uniqueIndex:idx_chat_pair" json:"patientId"`
	PatientName      string `gorm:"size:200" json:"patientName"`
	LastMessage      string `gorm:"type:text" json:"lastMessage"`
	LastSenderRole   *Role  `gorm:"size:20" json:"lastSenderRole"`
	UnreadForDoctor  int    `gorm:"default:0" json:"unreadForDoctor"`
	UnreadForPatient int    `gorm:"default:0" json:"unreadForPatient"`
}

// ChatMessage is one message inside a Chat.
type ChatMessage struct {
	BaseModel
	ChatID     string `gorm:"size:36;not null;index" json:"chatId"`
	SenderID   string `gorm:"size:36;not null" json:"senderId"`
	SenderRole Role   `gorm:"size:20;not null" json:"senderRole"`
	Text       string `gorm:"type:text;not null" json:"text"`
}
