package observations

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PhysicalObservation struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID       uuid.UUID `gorm:"type:uuid;not null;index" json:"student_id"`
	MeasurementDate time.Time `gorm:"column:measurement_date;not null;index" json:"measurement_date"`
	AcademicYear    string    `gorm:"column:academic_year;not null;index" json:"academic_year"`
	MeasurementType string    `gorm:"column:measurement_type;not null" json:"measurement_type"`

	HeightCM      *float64 `gorm:"column:height_cm" json:"height_cm,omitempty"`
	WeightKG      *float64 `gorm:"column:weight_kg" json:"weight_kg,omitempty"`
	BMI           *float64 `gorm:"column:bmi" json:"bmi,omitempty"`
	BMIPercentile *float64 `gorm:"column:bmi_percentile" json:"bmi_percentile,omitempty"`

	Cardio      *float64 `gorm:"column:cardio" json:"cardio,omitempty"`
	Strength    *float64 `gorm:"column:strength" json:"strength,omitempty"`
	Flexibility *float64 `gorm:"column:flexibility" json:"flexibility,omitempty"`
	Endurance   *float64 `gorm:"column:endurance" json:"endurance,omitempty"`

	PushUps        *int     `gorm:"column:push_ups" json:"push_ups,omitempty"`
	SitUps         *int     `gorm:"column:sit_ups" json:"sit_ups,omitempty"`
	RunTimeSeconds *float64 `gorm:"column:run_time_seconds" json:"run_time_seconds,omitempty"`

	RestingHeartRate *int `gorm:"column:resting_heart_rate" json:"resting_heart_rate,omitempty"`
	SystolicBP       *int `gorm:"column:systolic_bp" json:"systolic_bp,omitempty"`
	DiastolicBP      *int `gorm:"column:diastolic_bp" json:"diastolic_bp,omitempty"`

	DailyActivityHours *float64 `gorm:"column:daily_activity_hours" json:"daily_activity_hours,omitempty"`
	SleepHours         *float64 `gorm:"column:sleep_hours" json:"sleep_hours,omitempty"`
	SleepQuality       *float64 `gorm:"column:sleep_quality" json:"sleep_quality,omitempty"`
	ScreenTimeHours    *float64 `gorm:"column:screen_time_hours" json:"screen_time_hours,omitempty"`
	NutritionScore     *float64 `gorm:"column:nutrition_score" json:"nutrition_score,omitempty"`

	MedicalFlags datatypes.JSONSlice[string] `gorm:"column:medical_flags" json:"medical_flags"`

	BMIScore       *float64 `gorm:"column:bmi_score" json:"bmi_score,omitempty"`
	SleepScore     *float64 `gorm:"column:sleep_score" json:"sleep_score,omitempty"`
	CompositeScore *float64 `gorm:"column:composite_score" json:"composite_score,omitempty"`

	SourceTag      string     `gorm:"column:source_tag;not null" json:"source_tag"`
	SourceUploadID *uuid.UUID `gorm:"type:uuid;column:source_upload_id;index" json:"source_upload_id,omitempty"`
	CreatedAt      time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null" json:"updated_at"`
}

func (PhysicalObservation) TableName() string { return "physical_obs" }

func (o *PhysicalObservation) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.SourceTag == "" {
		o.SourceTag = SourceManual
	}
	if o.MeasurementType == "" {
		o.MeasurementType = "routine"
	}
	if o.MeasurementDate.IsZero() {
		o.MeasurementDate = time.Now().UTC()
	}
	return nil
}
