package models

// DietDays are the keys every weekly diet plan must carry.
var DietDays = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// DietSlots are the meal windows of a day.
var DietSlots = []string{
	"6–9 AM", "9–12 PM", "12–3 PM", "3–6 PM", "6–9 PM", "9–12 AM",
}

// WeeklyDiet maps day -> slot -> free-text meal description.
type WeeklyDiet map[string]map[string]string

// WeeklyStatus maps day -> slot -> completed flag.
type WeeklyStatus map[string]map[string]bool

// DietPlan is the weekly plan a doctor writes for one patient. A patient has
// at most one plan; saving again replaces it.
type DietPlan struct {
	PatientID    string       `gorm:"primaryKey;size:36" json:"patientId"`
	DoctorID     string       `gorm:"size:36;not null;index" json:"doctorId"`
	WeeklyDiet   WeeklyDiet   `gorm:"serializer:json" json:"weeklyDiet"`
	WeeklyStatus WeeklyStatus `gorm:"serializer:json" json:"weeklyStatus"`
	BaseTimestamps
}

// BaseTimestamps is embedded by tables keyed by something other than a UUID.
type BaseTimestamps struct {
	CreatedAt int64 `gorm:"autoCreateTime:milli" json:"createdAt"`
	UpdatedAt int64 `gorm:"autoUpdateTime:milli" json:"updatedAt"`
}

// EmptyWeeklyStatus returns a status grid with every slot unchecked.
func EmptyWeeklyStatus() WeeklyStatus {
	status := make(WeeklyStatus, len(DietDays))
	for _, day := range DietDays {
		status[day] = make(map[string]bool, len(DietSlots))
		for _, slot := range DietSlots {
			status[day][slot] = false
		}
	}
	return status
}

// IsDietDay reports whether day is one of DietDays.
func IsDietDay(day string) bool {
	for _, d := range DietDays {
		if d == day {
			return true
		}
	}
	return false
}

// IsDietSlot reports whether slot is one of DietSlots.
func IsDietSlot(slot string) bool {
	for _, s := range DietSlots {
		if s == slot {
			return true
		}
	}
	return false
}
