package models

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusRequested   AppointmentStatus = "requested"
	StatusApproved    AppointmentStatus = "approved"
	StatusCompleted   AppointmentStatus = "completed"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusRescheduled AppointmentStatus = "rescheduled"
	StatusBlocked     AppointmentStatus = "blocked"
)

// RecurrenceType is the repeat rule of an appointment.
type RecurrenceType string

const (
	RecurrenceNone   RecurrenceType = "none"
	RecurrenceWeekly RecurrenceType = "weekly"
)

// Origin records how an appointment came to exist, which also tells what
// ParentAppointmentID refers to.
type Origin string

const (
	OriginDirect     Origin = "direct"     // patient request, no parent
	OriginReschedule Origin = "reschedule" // parent is the retired original
	OriginRecurrence Origin = "recurrence" // parent is the recurrence source
	OriginBlock      Origin = "block"      // doctor calendar block, no parent
)

// Appointment is a reservation of a doctor's time on one calendar date.
// Dates are YYYY-MM-DD and times HH:MM wall-clock values local to the clinic.
//
// PatientName and DoctorName are snapshots taken when the record is written;
// a later rename of either party is not reflected here.
type Appointment struct {
	BaseModel
	PatientID           *string           `gorm:"size:36;index" json:"patientId"`
	PatientName         string            `gorm:"size:200" json:"patientName,omitempty"`
	DoctorID            string            `gorm:"size:36;not null;index:idx_appt_doctor_date" json:"doctorId"`
	DoctorName          string            `gorm:"size:200" json:"doctorName,omitempty"`
	AppointmentDate     string            `gorm:"size:10;not null;index:idx_appt_doctor_date" json:"appointmentDate"`
	StartTime           string            `gorm:"size:5;not null" json:"startTime"`
	EndTime             string            `gorm:"size:5;not null" json:"endTime"`
	Status              AppointmentStatus `gorm:"size:20;not null;index" json:"status"`
	Reason              string            `gorm:"size:500" json:"reason"`
	IsRecurring         bool              `gorm:"default:false" json:"isRecurring"`
	RecurrenceType      RecurrenceType    `gorm:"size:10;default:'none'" json:"recurrenceType"`
	Origin              Origin            `gorm:"size:20;not null" json:"origin"`
	ParentAppointmentID *string           `gorm:"size:36;index" json:"parentAppointmentId"`
	RescheduledFrom     *string           `gorm:"size:36" json:"rescheduledFrom"`
	RescheduledTo       *string           `gorm:"size:36" json:"rescheduledTo"`
	Report              *string           `gorm:"type:text" json:"report"`
	CreatedBy           Role              `gorm:"size:20;not null" json:"createdBy"`
}

// ScheduleLock is a row per (doctor, date) that writers lock to serialize
// availability checks with the inserts that depend on them.
type ScheduleLock struct {
	DoctorID string `gorm:"primaryKey;size:36"`
	Date     string `gorm:"primaryKey;size:10"`
}
