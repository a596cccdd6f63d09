package healthcheck

import "time"

type CampaignType string

const (
	CampaignAnnual    CampaignType = "Annual"
	CampaignQuarterly CampaignType = "Quarterly"
	CampaignSpecial   CampaignType = "Special"
)

type CampaignStatus string

const (
	CampaignPending    CampaignStatus = "pending"
	CampaignScheduled  CampaignStatus = "scheduled"
	CampaignInProgress CampaignStatus = "in_progress"
	CampaignCompleted  CampaignStatus = "completed"
	CampaignArchived   CampaignStatus = "archived"
)

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentChecked   AppointmentStatus = "checked"
	AppointmentMissed    AppointmentStatus = "missed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentChecked || s == AppointmentMissed || s == AppointmentCancelled
}

// HealthStatus is the fitness classification assigned by the examining doctor.
type HealthStatus string

const (
	HealthType1 HealthStatus = "Type_1"
	HealthType2 HealthStatus = "Type_2"
	HealthType3 HealthStatus = "Type_3"
	HealthType4 HealthStatus = "Type_4"
)

var healthStatuses = []HealthStatus{HealthType1, HealthType2, HealthType3, HealthType4}

func (h HealthStatus) Valid() bool {
	for _, s := range healthStatuses {
		if h == s {
			return true
		}
	}
	return false
}

type SyncType string

const (
	SyncHRMToHIS SyncType = "HRM_to_HIS"
	SyncHISToHRM SyncType = "HIS_to_HRM"
	SyncAuto     SyncType = "auto_sync"
)

type SyncDirection string

const (
	DirectionInbound  SyncDirection = "inbound"
	DirectionOutbound SyncDirection = "outbound"
)

type SyncStatus string

const (
	SyncPending    SyncStatus = "pending"
	SyncInProgress SyncStatus = "in_progress"
	SyncCompleted  SyncStatus = "completed"
	SyncFailed     SyncStatus = "failed"
)

// Aggregates are the denormalized counters kept on a campaign. They are always
// derived from the appointment list, never edited directly.
type Aggregates struct {
	TotalEmployees int `json:"total_employees" bson:"total_employees"`
	ScheduledCount int `json:"scheduled_count" bson:"scheduled_count"`
	PendingCount   int `json:"pending_count" bson:"pending_count"`
	CheckedCount   int `json:"checked_count" bson:"checked_count"`
	MissedCount    int `json:"missed_count" bson:"missed_count"`
}

// Campaign is an HR-initiated batch of employee health checks.
type Campaign struct {
	CampaignID   string         `json:"campaign_id" bson:"campaign_id"`
	Name         string         `json:"campaign_name" bson:"hrm_campaign_name"`
	Type         CampaignType   `json:"campaign_type" bson:"hrm_campaign_type"`
	Description  string         `json:"description,omitempty" bson:"description,omitempty"`
	StartDate    *time.Time     `json:"start_date" bson:"campaign_start_date"`
	EndDate      *time.Time     `json:"end_date" bson:"campaign_end_date"`
	Status       CampaignStatus `json:"status" bson:"status"`
	Appointments []Appointment  `json:"appointments" bson:"appointments"`
	Aggregates   `bson:",inline"`
	Version      int64     `json:"-" bson:"version"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

func (c *Campaign) appointment(appointmentID string) *Appointment {
	for i := range c.Appointments {
		if c.Appointments[i].AppointmentID == appointmentID {
			return &c.Appointments[i]
		}
	}
	return nil
}

// CampaignSummary is the list view of a campaign: counters without the
// appointment list.
type CampaignSummary struct {
	CampaignID string         `json:"campaign_id" bson:"campaign_id"`
	Name       string         `json:"campaign_name" bson:"hrm_campaign_name"`
	Type       CampaignType   `json:"campaign_type" bson:"hrm_campaign_type"`
	StartDate  *time.Time     `json:"start_date" bson:"campaign_start_date"`
	EndDate    *time.Time     `json:"end_date" bson:"campaign_end_date"`
	Status     CampaignStatus `json:"status" bson:"status"`
	Aggregates `bson:",inline"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

// Appointment is one employee's slot inside a campaign.
type Appointment struct {
	AppointmentID    string            `json:"appointment_id" bson:"appointment_id"`
	EmployeeID       string            `json:"employee_id" bson:"employee_id"`
	EmployeeName     string            `json:"employee_name" bson:"employee_name"`
	Department       string            `json:"department" bson:"department"`
	DoctorID         *string           `json:"doctor_id" bson:"doctor_id"`
	DoctorName       *string           `json:"doctor_name" bson:"doctor_name"`
	ScheduledDate    time.Time         `json:"scheduled_date" bson:"scheduled_date"`
	ScheduledTime    string            `json:"scheduled_time" bson:"scheduled_time"`
	Status           AppointmentStatus `json:"status" bson:"status"`
	SentToHRM        bool              `json:"sent_to_hrm" bson:"sent_to_hrm"`
	HRMSyncDate      *time.Time        `json:"hrm_sync_date,omitempty" bson:"hrm_sync_date,omitempty"`
	HealthStatus     HealthStatus      `json:"health_status,omitempty" bson:"health_status,omitempty"`
	Restrictions     []string          `json:"restrictions,omitempty" bson:"restrictions,omitempty"`
	DoctorConclusion string            `json:"doctor_conclusion,omitempty" bson:"doctor_conclusion,omitempty"`
}

// ScheduledAppointment is an appointment tagged with its owning campaign, as
// returned by the day schedule.
type ScheduledAppointment struct {
	CampaignID   string `json:"campaign_id"`
	CampaignName string `json:"campaign_name"`
	Appointment
}

// DueEmployee is an employee that has not yet been checked in a campaign.
type DueEmployee struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Department    string     `json:"department"`
	LastCheckDate *time.Time `json:"last_check_date"`
	DueDate       *time.Time `json:"due_date"`
}

type Vitals struct {
	Height           *float64 `json:"height,omitempty" bson:"height,omitempty"`
	Weight           *float64 `json:"weight,omitempty" bson:"weight,omitempty"`
	BMI              *float64 `json:"bmi,omitempty" bson:"bmi,omitempty"`
	BloodPressure    string   `json:"blood_pressure,omitempty" bson:"blood_pressure,omitempty"`
	HeartRate        *float64 `json:"heart_rate,omitempty" bson:"heart_rate,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty" bson:"temperature,omitempty"`
	RespiratoryRate  *float64 `json:"respiratory_rate,omitempty" bson:"respiratory_rate,omitempty"`
	OxygenSaturation *float64 `json:"oxygen_saturation,omitempty" bson:"oxygen_saturation,omitempty"`
}

type BloodTest struct {
	Hemoglobin *float64 `json:"hemoglobin,omitempty" bson:"hemoglobin,omitempty"`
	WBC        *float64 `json:"wbc,omitempty" bson:"wbc,omitempty"`
	RBC        *float64 `json:"rbc,omitempty" bson:"rbc,omitempty"`
	Platelets  *float64 `json:"platelets,omitempty" bson:"platelets,omitempty"`
	BloodSugar *float64 `json:"blood_sugar,omitempty" bson:"blood_sugar,omitempty"`
	Notes      string   `json:"notes,omitempty" bson:"notes,omitempty"`
}

type UrineTest struct {
	Protein  string `json:"protein,omitempty" bson:"protein,omitempty"`
	Glucose  string `json:"glucose,omitempty" bson:"glucose,omitempty"`
	PH       string `json:"ph,omitempty" bson:"ph,omitempty"`
	Bacteria string `json:"bacteria,omitempty" bson:"bacteria,omitempty"`
	Notes    string `json:"notes,omitempty" bson:"notes,omitempty"`
}

type Chemistry struct {
	Cholesterol   *float64 `json:"cholesterol,omitempty" bson:"cholesterol,omitempty"`
	Triglycerides *float64 `json:"triglycerides,omitempty" bson:"triglycerides,omitempty"`
	HDL           *float64 `json:"hdl,omitempty" bson:"hdl,omitempty"`
	LDL           *float64 `json:"ldl,omitempty" bson:"ldl,omitempty"`
	Creatinine    *float64 `json:"creatinine,omitempty" bson:"creatinine,omitempty"`
	ALT           *float64 `json:"alt,omitempty" bson:"alt,omitempty"`
	AST           *float64 `json:"ast,omitempty" bson:"ast,omitempty"`
}

type LabResults struct {
	BloodTest *BloodTest `json:"blood_test,omitempty" bson:"blood_test,omitempty"`
	UrineTest *UrineTest `json:"urine_test,omitempty" bson:"urine_test,omitempty"`
	Chemistry *Chemistry `json:"chemistry,omitempty" bson:"chemistry,omitempty"`
}

type ImagingStudy struct {
	Type     string     `json:"type" bson:"type"`
	Date     *time.Time `json:"date,omitempty" bson:"date,omitempty"`
	Findings string     `json:"findings,omitempty" bson:"findings,omitempty"`
	Result   string     `json:"result,omitempty" bson:"result,omitempty"`
}

type PhysicalExamination struct {
	GeneralAppearance string `json:"general_appearance,omitempty" bson:"general_appearance,omitempty"`
	Cardiovascular    string `json:"cardiovascular,omitempty" bson:"cardiovascular,omitempty"`
	Respiratory       string `json:"respiratory,omitempty" bson:"respiratory,omitempty"`
	Abdomen           string `json:"abdomen,omitempty" bson:"abdomen,omitempty"`
	Neurological      string `json:"neurological,omitempty" bson:"neurological,omitempty"`
	Musculoskeletal   string `json:"musculoskeletal,omitempty" bson:"musculoskeletal,omitempty"`
	Skin              string `json:"skin,omitempty" bson:"skin,omitempty"`
}

type DetailedDiagnosis struct {
	PrimaryDiagnosis    string   `json:"primary_diagnosis,omitempty" bson:"primary_diagnosis,omitempty"`
	SecondaryDiagnoses  []string `json:"secondary_diagnoses,omitempty" bson:"secondary_diagnoses,omitempty"`
	ICDCodes            []string `json:"icd_codes,omitempty" bson:"icd_codes,omitempty"`
	ClinicalAssessments string   `json:"clinical_assessments,omitempty" bson:"clinical_assessments,omitempty"`
}

type Medication struct {
	Name      string `json:"name" bson:"name"`
	Dosage    string `json:"dosage,omitempty" bson:"dosage,omitempty"`
	Frequency string `json:"frequency,omitempty" bson:"frequency,omitempty"`
	Duration  string `json:"duration,omitempty" bson:"duration,omitempty"`
}

type RecommendedTreatment struct {
	Medications            []Medication `json:"medications,omitempty" bson:"medications,omitempty"`
	LifestyleModifications []string     `json:"lifestyle_modifications,omitempty" bson:"lifestyle_modifications,omitempty"`
	FollowUpSchedule       string       `json:"follow_up_schedule,omitempty" bson:"follow_up_schedule,omitempty"`
	ReferralToSpecialist   string       `json:"referral_to_specialist,omitempty" bson:"referral_to_specialist,omitempty"`
}

// Result is a clinical health-check record as submitted by the hospital.
// Only the fields mirrored in ResultSummary may ever leave the hospital side.
type Result struct {
	HISRecordID   string    `json:"his_record_id" bson:"his_record_id"`
	AppointmentID string    `json:"appointment_id" bson:"appointment_id"`
	CampaignID    string    `json:"campaign_id" bson:"campaign_id"`
	EmployeeID    string    `json:"employee_id" bson:"employee_id"`
	EmployeeName  string    `json:"employee_name" bson:"employee_name"`
	Department    string    `json:"department,omitempty" bson:"department,omitempty"`
	DoctorID      string    `json:"doctor_id,omitempty" bson:"doctor_id,omitempty"`
	DoctorName    string    `json:"doctor_name,omitempty" bson:"doctor_name,omitempty"`
	CheckDate     time.Time `json:"check_date" bson:"check_date"`
	CheckTime     string    `json:"check_time,omitempty" bson:"check_time,omitempty"`

	Vitals               *Vitals               `json:"vitals,omitempty" bson:"vitals,omitempty"`
	LabResults           *LabResults           `json:"lab_results,omitempty" bson:"lab_results,omitempty"`
	Imaging              []ImagingStudy        `json:"imaging,omitempty" bson:"imaging,omitempty"`
	PhysicalExamination  *PhysicalExamination  `json:"physical_examination,omitempty" bson:"physical_examination,omitempty"`
	DetailedDiagnosis    *DetailedDiagnosis    `json:"detailed_diagnosis,omitempty" bson:"detailed_diagnosis,omitempty"`
	RecommendedTreatment *RecommendedTreatment `json:"recommended_treatment,omitempty" bson:"recommended_treatment,omitempty"`
	DoctorPrivateNotes   string                `json:"doctor_private_notes,omitempty" bson:"doctor_private_notes,omitempty"`
	FollowUpNotes        string                `json:"follow_up_notes,omitempty" bson:"follow_up_notes,omitempty"`

	HealthStatus     HealthStatus `json:"health_status" bson:"health_status"`
	Restrictions     []string     `json:"restrictions" bson:"restrictions"`
	DoctorConclusion string       `json:"doctor_conclusion" bson:"doctor_conclusion"`
	SummaryForHR     string       `json:"summary_for_hr,omitempty" bson:"summary_for_hr,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// ResultSummary is the HR-visible projection of a Result. It carries no
// clinical detail and is the only shape the results listing can produce.
type ResultSummary struct {
	HISRecordID      string       `json:"his_record_id" bson:"his_record_id"`
	CampaignID       string       `json:"campaign_id" bson:"campaign_id"`
	AppointmentID    string       `json:"appointment_id" bson:"appointment_id"`
	EmployeeID       string       `json:"employee_id" bson:"employee_id"`
	EmployeeName     string       `json:"employee_name" bson:"employee_name"`
	CheckDate        time.Time    `json:"check_date" bson:"check_date"`
	HealthStatus     HealthStatus `json:"health_status" bson:"health_status"`
	Restrictions     []string     `json:"restrictions" bson:"restrictions"`
	DoctorConclusion string       `json:"doctor_conclusion" bson:"doctor_conclusion"`
}

// Summary projects the HR-visible subset of r.
func (r *Result) Summary() ResultLink {
	return ResultLink{
		HealthStatus:     r.HealthStatus,
		Restrictions:     r.Restrictions,
		DoctorConclusion: r.DoctorConclusion,
	}
}

// ResultLink is the part of a result copied onto the matching appointment.
type ResultLink struct {
	HealthStatus     HealthStatus
	Restrictions     []string
	DoctorConclusion string
}

// Report is the campaign completion report.
type Report struct {
	CampaignID     string `json:"campaign_id"`
	CampaignName   string `json:"campaign_name"`
	TotalEmployees int    `json:"total_employees"`
	CheckedCount   int    `json:"checked_count"`
	PendingCount   int    `json:"pending_count"`
	Type1Count     int    `json:"type_1_count"`
	Type2Count     int    `json:"type_2_count"`
	Type3Count     int    `json:"type_3_count"`
	Type4Count     int    `json:"type_4_count"`
	CompletionRate string `json:"completion_rate"`
}

// SyncLogEntry is one attempted synchronization between HR and the hospital.
type SyncLogEntry struct {
	ID              string         `json:"id" bson:"log_id"`
	CampaignID      string         `json:"campaign_id" bson:"campaign_id"`
	SyncType        SyncType       `json:"sync_type" bson:"sync_type"`
	Direction       SyncDirection  `json:"direction" bson:"direction"`
	Status          SyncStatus     `json:"status" bson:"status"`
	RecordsCount    int            `json:"records_count" bson:"records_count"`
	SuccessfulCount int            `json:"successful_count" bson:"successful_count"`
	FailedCount     int            `json:"failed_count" bson:"failed_count"`
	Message         string         `json:"message,omitempty" bson:"message,omitempty"`
	ErrorMessage    string         `json:"error_message,omitempty" bson:"error_message,omitempty"`
	Details         map[string]any `json:"details,omitempty" bson:"details,omitempty"`
	InitiatedBy     string         `json:"initiated_by" bson:"initiated_by"`
	InitiatedAt     time.Time      `json:"initiated_at" bson:"initiated_at"`
	CompletedAt     *time.Time     `json:"completed_at" bson:"completed_at"`
	DurationMS      int64          `json:"duration_ms" bson:"duration_ms"`
}

// Finished reports whether the entry has reached a terminal status.
func (e *SyncLogEntry) Finished() bool {
	return e.CompletedAt != nil
}

// LedgerFilter narrows a sync log listing.
type LedgerFilter struct {
	CampaignID string
	Status     SyncStatus
	SyncType   SyncType
}
