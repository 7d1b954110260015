// Package apitypes holds the canonical wire types shared by every service:
// enumerations, the response envelope, and date/time encodings.
//
// Every enum here is decode-tolerant: an unrecognized wire value never fails
// JSON decoding. It maps to the enum's documented fallback member and is
// reported through OnUnknown so the gateway can log it. Clients have shipped
// with enum sets that lag the backend (a missing "cardiovascular" category
// once broke report decoding); the tolerance rule exists so that mismatch can
// never take a request down again.
package apitypes

import "encoding/json"

// OnUnknown is invoked whenever an unrecognized wire value is mapped to an
// enum fallback. The server wires this to its logger at startup. It must be
// set before any concurrent decoding begins and never replaced afterwards.
var OnUnknown = func(enum, value string) {}

func reportUnknown(enum, value string) {
	if OnUnknown != nil {
		OnUnknown(enum, value)
	}
}

// BiomarkerStatus classifies a single extracted lab measurement.
type BiomarkerStatus string

const (
	BiomarkerOptimal    BiomarkerStatus = "optimal"
	BiomarkerNormal     BiomarkerStatus = "normal"
	BiomarkerBorderline BiomarkerStatus = "borderline"
	BiomarkerAbnormal   BiomarkerStatus = "abnormal"
	BiomarkerHigh       BiomarkerStatus = "high"
	BiomarkerLow        BiomarkerStatus = "low"
	BiomarkerCritical   BiomarkerStatus = "critical"
	// BiomarkerUnknown is the fallback for unrecognized wire values.
	BiomarkerUnknown BiomarkerStatus = "unknown"
)

var biomarkerStatuses = map[BiomarkerStatus]bool{
	BiomarkerOptimal: true, BiomarkerNormal: true, BiomarkerBorderline: true,
	BiomarkerAbnormal: true, BiomarkerHigh: true, BiomarkerLow: true,
	BiomarkerCritical: true, BiomarkerUnknown: true,
}

// Known reports whether s is a recognized member.
func (s BiomarkerStatus) Known() bool { return biomarkerStatuses[s] }

// ParseBiomarkerStatus maps a wire value to a BiomarkerStatus. Unknown values
// yield the fallback and ok=false.
func ParseBiomarkerStatus(v string) (BiomarkerStatus, bool) {
	if s := BiomarkerStatus(v); s.Known() {
		return s, true
	}
	reportUnknown("biomarker_status", v)
	return BiomarkerUnknown, false
}

func (s *BiomarkerStatus) UnmarshalJSON(b []byte) error {
	v, err := unquote(b)
	if err != nil {
		return err
	}
	*s, _ = ParseBiomarkerStatus(v)
	return nil
}

// ProcessingStatus tracks a lab report document through the OCR/analysis
// pipeline. The unknown member is a decode-only guard; it is never persisted.
type ProcessingStatus string

const (
	ProcessingPending       ProcessingStatus = "pending"
	ProcessingUploading     ProcessingStatus = "uploading"
	ProcessingPreprocessing ProcessingStatus = "preprocessing"
	ProcessingProcessing    ProcessingStatus = "processing"
	ProcessingAnalyzing     ProcessingStatus = "analyzing"
	ProcessingExtracting    ProcessingStatus = "extracting"
	ProcessingValidating    ProcessingStatus = "validating"
	ProcessingCompleted     ProcessingStatus = "completed"
	ProcessingRetrying      ProcessingStatus = "retrying"
	ProcessingPaused        ProcessingStatus = "paused"
	ProcessingFailed        ProcessingStatus = "failed"
	ProcessingCancelled     ProcessingStatus = "cancelled"
	// ProcessingUnknown is the fallback for unrecognized wire values.
	ProcessingUnknown ProcessingStatus = "unknown"
)

var processingStatuses = map[ProcessingStatus]bool{
	ProcessingPending: true, ProcessingUploading: true, ProcessingPreprocessing: true,
	ProcessingProcessing: true, ProcessingAnalyzing: true, ProcessingExtracting: true,
	ProcessingValidating: true, ProcessingCompleted: true, ProcessingRetrying: true,
	ProcessingPaused: true, ProcessingFailed: true, ProcessingCancelled: true,
	ProcessingUnknown: true,
}

func (s ProcessingStatus) Known() bool { return processingStatuses[s] }

// Terminal reports whether no further pipeline transitions are possible.
func (s ProcessingStatus) Terminal() bool {
	return s == ProcessingCompleted || s == ProcessingFailed || s == ProcessingCancelled
}

// Progress returns the nominal completion fraction for the status.
func (s ProcessingStatus) Progress() float64 {
	switch s {
	case ProcessingPending:
		return 0.0
	case ProcessingUploading:
		return 0.1
	case ProcessingPreprocessing:
		return 0.25
	case ProcessingProcessing:
		return 0.4
	case ProcessingAnalyzing:
		return 0.6
	case ProcessingExtracting:
		return 0.75
	case ProcessingValidating:
		return 0.9
	case ProcessingCompleted:
		return 1.0
	default:
		return 0.0
	}
}

func ParseProcessingStatus(v string) (ProcessingStatus, bool) {
	if s := ProcessingStatus(v); s.Known() {
		return s, true
	}
	reportUnknown("processing_status", v)
	return ProcessingUnknown, false
}

func (s *ProcessingStatus) UnmarshalJSON(b []byte) error {
	v, err := unquote(b)
	if err != nil {
		return err
	}
	*s, _ = ParseProcessingStatus(v)
	return nil
}

// AppointmentStatus is the appointment lifecycle state.
type AppointmentStatus string

const (
	AppointmentPending     AppointmentStatus = "pending"
	AppointmentScheduled   AppointmentStatus = "scheduled"
	AppointmentConfirmed   AppointmentStatus = "confirmed"
	AppointmentCheckedIn   AppointmentStatus = "checked_in"
	AppointmentInProgress  AppointmentStatus = "in_progress"
	AppointmentCompleted   AppointmentStatus = "completed"
	AppointmentCancelled   AppointmentStatus = "cancelled"
	AppointmentNoShow      AppointmentStatus = "no_show"
	AppointmentRescheduled AppointmentStatus = "rescheduled"
	// AppointmentUnknown is the fallback for unrecognized wire values.
	AppointmentUnknown AppointmentStatus = "unknown"
)

var appointmentStatuses = map[AppointmentStatus]bool{
	AppointmentPending: true, AppointmentScheduled: true, AppointmentConfirmed: true,
	AppointmentCheckedIn: true, AppointmentInProgress: true, AppointmentCompleted: true,
	AppointmentCancelled: true, AppointmentNoShow: true, AppointmentRescheduled: true,
	AppointmentUnknown: true,
}

func (s AppointmentStatus) Known() bool { return appointmentStatuses[s] }

// CanCancel reports whether an appointment in this state may be cancelled.
func (s AppointmentStatus) CanCancel() bool {
	return s == AppointmentPending || s == AppointmentScheduled || s == AppointmentConfirmed
}

// CanReschedule reports whether an appointment in this state may be
// rescheduled. The new slot must still pass the reservation check.
func (s AppointmentStatus) CanReschedule() bool {
	return s == AppointmentScheduled || s == AppointmentConfirmed
}

func ParseAppointmentStatus(v string) (AppointmentStatus, bool) {
	if s := AppointmentStatus(v); s.Known() {
		return s, true
	}
	reportUnknown("appointment_status", v)
	return AppointmentUnknown, false
}

func (s *AppointmentStatus) UnmarshalJSON(b []byte) error {
	v, err := unquote(b)
	if err != nil {
		return err
	}
	*s, _ = ParseAppointmentStatus(v)
	return nil
}

// ServiceType is how a test sample is collected.
type ServiceType string

const (
	ServiceHomeCollection    ServiceType = "home_collection"
	ServiceVisitLab          ServiceType = "visit_lab"
	ServiceVideoConsultation ServiceType = "video_consultation"
	// ServiceOther is the fallback for unrecognized wire values.
	ServiceOther ServiceType = "other"
)

var serviceTypes = map[ServiceType]bool{
	ServiceHomeCollection: true, ServiceVisitLab: true,
	ServiceVideoConsultation: true, ServiceOther: true,
}

func (s ServiceType) Known() bool { return serviceTypes[s] }

func ParseServiceType(v string) (ServiceType, bool) {
	if s := ServiceType(v); s.Known() {
		return s, true
	}
	reportUnknown("service_type", v)
	return ServiceOther, false
}

func (s *ServiceType) UnmarshalJSON(b []byte) error {
	v, err := unquote(b)
	if err != nil {
		return err
	}
	*s, _ = ParseServiceType(v)
	return nil
}

// HealthCategory groups tests, reports, and biomarkers by body system.
type HealthCategory string

const (
	CategoryCardiovascular HealthCategory = "cardiovascular"
	CategoryMetabolic      HealthCategory = "metabolic"
	CategoryHematology     HealthCategory = "hematology"
	CategoryHormonal       HealthCategory = "hormonal"
	CategoryLiver          HealthCategory = "liver"
	CategoryKidney         HealthCategory = "kidney"
	CategoryThyroid        HealthCategory = "thyroid"
	CategoryVitamins       HealthCategory = "vitamins"
	CategoryImmunity       HealthCategory = "immunity"
	CategoryGeneral        HealthCategory = "general"
	// CategoryOther is the fallback for unrecognized wire values.
	CategoryOther HealthCategory = "other"
)

var healthCategories = map[HealthCategory]bool{
	CategoryCardiovascular: true, CategoryMetabolic: true, CategoryHematology: true,
	CategoryHormonal: true, CategoryLiver: true, CategoryKidney: true,
	CategoryThyroid: true, CategoryVitamins: true, CategoryImmunity: true,
	CategoryGeneral: true, CategoryOther: true,
}

func (c HealthCategory) Known() bool { return healthCategories[c] }

func ParseHealthCategory(v string) (HealthCategory, bool) {
	if c := HealthCategory(v); c.Known() {
		return c, true
	}
	reportUnknown("health_category", v)
	return CategoryOther, false
}

func (c *HealthCategory) UnmarshalJSON(b []byte) error {
	v, err := unquote(b)
	if err != nil {
		return err
	}
	*c, _ = ParseHealthCategory(v)
	return nil
}

// FastingRequirement is the fasting window a test requires.
type FastingRequirement string

const (
	FastingNone    FastingRequirement = "none"
	FastingHours8  FastingRequirement = "8_hours"
	FastingHours10 FastingRequirement = "10_hours"
	FastingHours12 FastingRequirement = "12_hours"
	FastingHours14 FastingRequirement = "14_hours"
	// FastingUnknown is the fallback for unrecognized wire values.
	FastingUnknown FastingRequirement = "unknown"
)

var fastingRequirements = map[FastingRequirement]bool{
	FastingNone: true, FastingHours8: true, FastingHours10: true,
	FastingHours12: true, FastingHours14: true, FastingUnknown: true,
}

// fastingAliases maps wire spellings seen from older catalog feeds onto the
// canonical members.
var fastingAliases = map[string]FastingRequirement{
	"no_fasting":     FastingNone,
	"not_required":   FastingNone,
	"8h":             FastingHours8,
	"eight_hours":    FastingHours8,
	"hours8":         FastingHours8,
	"10h":            FastingHours10,
	"ten_hours":      FastingHours10,
	"hours10":        FastingHours10,
	"12h":            FastingHours12,
	"twelve_hours":   FastingHours12,
	"hours12":        FastingHours12,
	"14h":            FastingHours14,
	"fourteen_hours": FastingHours14,
	"hours14":        FastingHours14,
}

func (f FastingRequirement) Known() bool { return fastingRequirements[f] }

// ParseFastingRequirement normalizes a wire value, accepting the alias
// spellings used by older catalog feeds.
func ParseFastingRequirement(v string) (FastingRequirement, bool) {
	if f := FastingRequirement(v); f.Known() {
		return f, true
	}
	if f, ok := fastingAliases[v]; ok {
		return f, true
	}
	reportUnknown("fasting_requirement", v)
	return FastingUnknown, false
}

func (f *FastingRequirement) UnmarshalJSON(b []byte) error {
	v, err := unquote(b)
	if err != nil {
		return err
	}
	*f, _ = ParseFastingRequirement(v)
	return nil
}

// SampleType is the specimen a test requires.
type SampleType string

const (
	SampleBlood  SampleType = "blood"
	SampleUrine  SampleType = "urine"
	SampleSaliva SampleType = "saliva"
	SampleStool  SampleType = "stool"
	SampleSwab   SampleType = "swab"
	SampleTissue SampleType = "tissue"
	// SampleOther is the fallback for unrecognized wire values.
	SampleOther SampleType = "other"
)

var sampleTypes = map[SampleType]bool{
	SampleBlood: true, SampleUrine: true, SampleSaliva: true,
	SampleStool: true, SampleSwab: true, SampleTissue: true, SampleOther: true,
}

func (s SampleType) Known() bool { return sampleTypes[s] }

func ParseSampleType(v string) (SampleType, bool) {
	if s := SampleType(v); s.Known() {
		return s, true
	}
	reportUnknown("sample_type", v)
	return SampleOther, false
}

func (s *SampleType) UnmarshalJSON(b []byte) error {
	v, err := unquote(b)
	if err != nil {
		return err
	}
	*s, _ = ParseSampleType(v)
	return nil
}

// NotificationCategory buckets in-app notifications.
type NotificationCategory string

const (
	NotificationHealth      NotificationCategory = "health"
	NotificationAppointment NotificationCategory = "appointment"
	NotificationReport      NotificationCategory = "report"
	NotificationSystem      NotificationCategory = "system"
	NotificationPromotional NotificationCategory = "promotional"
)

var notificationCategories = map[NotificationCategory]bool{
	NotificationHealth: true, NotificationAppointment: true,
	NotificationReport: true, NotificationSystem: true, NotificationPromotional: true,
}

func (c NotificationCategory) Known() bool { return notificationCategories[c] }

// ParseNotificationCategory falls back to the system bucket for unknown
// wire values.
func ParseNotificationCategory(v string) (NotificationCategory, bool) {
	if c := NotificationCategory(v); c.Known() {
		return c, true
	}
	reportUnknown("notification_category", v)
	return NotificationSystem, false
}

func (c *NotificationCategory) UnmarshalJSON(b []byte) error {
	v, err := unquote(b)
	if err != nil {
		return err
	}
	*c, _ = ParseNotificationCategory(v)
	return nil
}

// NotificationPriority orders notification display and delivery.
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityMedium NotificationPriority = "medium"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

var notificationPriorities = map[NotificationPriority]bool{
	PriorityLow: true, PriorityMedium: true, PriorityHigh: true, PriorityUrgent: true,
}

func (p NotificationPriority) Known() bool { return notificationPriorities[p] }

// ParseNotificationPriority falls back to medium for unknown wire values.
func ParseNotificationPriority(v string) (NotificationPriority, bool) {
	if p := NotificationPriority(v); p.Known() {
		return p, true
	}
	reportUnknown("notification_priority", v)
	return PriorityMedium, false
}

func (p *NotificationPriority) UnmarshalJSON(b []byte) error {
	v, err := unquote(b)
	if err != nil {
		return err
	}
	*p, _ = ParseNotificationPriority(v)
	return nil
}

// HealthTrend is the direction of a user's overall health score.
type HealthTrend string

const (
	TrendImproving HealthTrend = "improving"
	TrendStable    HealthTrend = "stable"
	TrendDeclining HealthTrend = "declining"
)

var healthTrends = map[HealthTrend]bool{
	TrendImproving: true, TrendStable: true, TrendDeclining: true,
}

func (t HealthTrend) Known() bool { return healthTrends[t] }

// ParseHealthTrend falls back to stable for unknown wire values.
func ParseHealthTrend(v string) (HealthTrend, bool) {
	if t := HealthTrend(v); t.Known() {
		return t, true
	}
	reportUnknown("health_trend", v)
	return TrendStable, false
}

func (t *HealthTrend) UnmarshalJSON(b []byte) error {
	v, err := unquote(b)
	if err != nil {
		return err
	}
	*t, _ = ParseHealthTrend(v)
	return nil
}

// RiskLevel is the overall risk classification of a health analysis.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskSevere   RiskLevel = "severe"
)

var riskLevels = map[RiskLevel]bool{
	RiskLow: true, RiskModerate: true, RiskHigh: true, RiskSevere: true,
}

func (r RiskLevel) Known() bool { return riskLevels[r] }

// ParseRiskLevel falls back to moderate for unknown wire values.
func ParseRiskLevel(v string) (RiskLevel, bool) {
	if r := RiskLevel(v); r.Known() {
		return r, true
	}
	reportUnknown("risk_level", v)
	return RiskModerate, false
}

func (r *RiskLevel) UnmarshalJSON(b []byte) error {
	v, err := unquote(b)
	if err != nil {
		return err
	}
	*r, _ = ParseRiskLevel(v)
	return nil
}

// FacilityType classifies a bookable facility.
type FacilityType string

const (
	FacilityHospital         FacilityType = "hospital"
	FacilityLab              FacilityType = "lab"
	FacilityCollectionCenter FacilityType = "collection_center"
)

var facilityTypes = map[FacilityType]bool{
	FacilityHospital: true, FacilityLab: true, FacilityCollectionCenter: true,
}

func (f FacilityType) Known() bool { return facilityTypes[f] }

// ParseFacilityType falls back to lab for unknown wire values.
func ParseFacilityType(v string) (FacilityType, bool) {
	if f := FacilityType(v); f.Known() {
		return f, true
	}
	reportUnknown("facility_type", v)
	return FacilityLab, false
}

func (f *FacilityType) UnmarshalJSON(b []byte) error {
	v, err := unquote(b)
	if err != nil {
		return err
	}
	*f, _ = ParseFacilityType(v)
	return nil
}

// PriceRange is the coarse facility pricing tier.
type PriceRange string

const (
	PriceBudget   PriceRange = "$"
	PriceModerate PriceRange = "$$"
	PricePremium  PriceRange = "$$$"
)

var priceRanges = map[PriceRange]bool{
	PriceBudget: true, PriceModerate: true, PricePremium: true,
}

func (p PriceRange) Known() bool { return priceRanges[p] }

// ParsePriceRange falls back to the moderate tier for unknown wire values.
func ParsePriceRange(v string) (PriceRange, bool) {
	if p := PriceRange(v); p.Known() {
		return p, true
	}
	reportUnknown("price_range", v)
	return PriceModerate, false
}

func (p *PriceRange) UnmarshalJSON(b []byte) error {
	v, err := unquote(b)
	if err != nil {
		return err
	}
	*p, _ = ParsePriceRange(v)
	return nil
}

// DocumentType classifies an uploaded medical document.
type DocumentType string

const (
	DocumentLabReport        DocumentType = "lab_report"
	DocumentPrescription     DocumentType = "prescription"
	DocumentImaging          DocumentType = "imaging"
	DocumentDischargeSummary DocumentType = "discharge_summary"
	// DocumentOther is the fallback for unrecognized wire values.
	DocumentOther DocumentType = "other"
)

var documentTypes = map[DocumentType]bool{
	DocumentLabReport: true, DocumentPrescription: true,
	DocumentImaging: true, DocumentDischargeSummary: true, DocumentOther: true,
}

func (d DocumentType) Known() bool { return documentTypes[d] }

func ParseDocumentType(v string) (DocumentType, bool) {
	if d := DocumentType(v); d.Known() {
		return d, true
	}
	reportUnknown("document_type", v)
	return DocumentOther, false
}

func (d *DocumentType) UnmarshalJSON(b []byte) error {
	v, err := unquote(b)
	if err != nil {
		return err
	}
	*d, _ = ParseDocumentType(v)
	return nil
}

func unquote(b []byte) (string, error) {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return "", err
	}
	return s, nil
}
