// Package models defines the plain data types shared across the smart upload
// pipeline. They are intentionally free of persistence annotations: the
// relational store is an external collaborator reached through
// internal/store, not an ORM-managed entity set.
package models

import "time"

// BatchStatus is the lifecycle state of a Batch.
type BatchStatus string

const (
	BatchCreated     BatchStatus = "CREATED"
	BatchProcessing  BatchStatus = "PROCESSING"
	BatchNeedsReview BatchStatus = "NEEDS_REVIEW"
	BatchComplete    BatchStatus = "COMPLETE"
	BatchFailed      BatchStatus = "FAILED"
	BatchCancelled   BatchStatus = "CANCELLED"
)

// Batch is a user-initiated grouping of uploaded items.
type Batch struct {
	ID             string
	UserID         string
	Status         BatchStatus
	TotalFiles     int
	ProcessedFiles int
	SuccessFiles   int
	FailedFiles    int
	ErrorSummary   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Valid reports whether the batch's counters satisfy spec invariants.
func (b *Batch) Valid() bool {
	if b.SuccessFiles+b.FailedFiles > b.TotalFiles {
		return false
	}
	if b.Status == BatchComplete && b.ProcessedFiles != b.TotalFiles {
		return false
	}
	return true
}

// ItemStatus is the lifecycle state of an Item.
type ItemStatus string

const (
	ItemCreated     ItemStatus = "CREATED"
	ItemProcessing  ItemStatus = "PROCESSING"
	ItemNeedsReview ItemStatus = "NEEDS_REVIEW"
	ItemApproved    ItemStatus = "APPROVED"
	ItemComplete    ItemStatus = "COMPLETE"
	ItemFailed      ItemStatus = "FAILED"
	ItemCancelled   ItemStatus = "CANCELLED"
)

// ItemStep tracks the finest-grained progress within the pipeline, distinct
// from Status which is the coarse state-machine position.
type ItemStep string

const (
	StepTextExtracted     ItemStep = "TEXT_EXTRACTED"
	StepMetadataExtracted ItemStep = "METADATA_EXTRACTED"
	StepSplitPlanned      ItemStep = "SPLIT_PLANNED"
	StepSplitComplete     ItemStep = "SPLIT_COMPLETE"
	StepIngested          ItemStep = "INGESTED"
)

// SecondPassStatus tracks the verification sub-stage.
type SecondPassStatus string

const (
	SecondPassNone       SecondPassStatus = ""
	SecondPassQueued     SecondPassStatus = "QUEUED"
	SecondPassInProgress SecondPassStatus = "IN_PROGRESS"
	SecondPassComplete   SecondPassStatus = "COMPLETE"
	SecondPassFailed     SecondPassStatus = "FAILED"
)

// AdjudicatorStatus tracks the adjudication sub-stage.
type AdjudicatorStatus string

const (
	AdjudicatorNone       AdjudicatorStatus = ""
	AdjudicatorQueued     AdjudicatorStatus = "QUEUED"
	AdjudicatorInProgress AdjudicatorStatus = "IN_PROGRESS"
	AdjudicatorComplete   AdjudicatorStatus = "COMPLETE"
	AdjudicatorFailed     AdjudicatorStatus = "FAILED"
)

// Item is one uploaded file within a Batch.
type Item struct {
	ID                  string
	BatchID             string
	FileName            string
	MimeType            string
	StorageKey          string
	Status              ItemStatus
	CurrentStep         ItemStep
	OCRText             string
	ExtractedMetadata   *ExtractedMetadata
	CuttingInstructions []CuttingInstruction
	ParsedParts         []ParsedPart
	IsPacket            bool
	SecondPassStatus    SecondPassStatus
	SecondPassResult    *ExtractedMetadata
	AdjudicatorStatus   AdjudicatorStatus
	AdjudicationNotes    string
	FinalConfidence     *float64
	AutoApproved        bool
	RequiresHumanReview bool
	ErrorMessage        string
	ErrorDetails        string
	TempFiles           []string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Valid reports whether the item satisfies spec invariants.
func (i *Item) Valid() bool {
	if (i.Status == ItemApproved || i.Status == ItemComplete) && len(i.ParsedParts) == 0 {
		return false
	}
	if i.AutoApproved && i.RequiresHumanReview {
		return false
	}
	return true
}

// FileType classifies the uploaded document.
type FileType string

const (
	FileTypeFullScore      FileType = "FULL_SCORE"
	FileTypeConductorScore FileType = "CONDUCTOR_SCORE"
	FileTypeCondensedScore FileType = "CONDENSED_SCORE"
	FileTypePart           FileType = "PART"
	FileTypeOther          FileType = "OTHER"
)

// ExtractedMetadata is the structured result of an LLM metadata extraction
// pass (first pass, second pass, or adjudicated).
type ExtractedMetadata struct {
	Title                   string
	Composer                string
	FileType                FileType
	IsMultiPart             bool
	ConfidenceScore         float64
	SegmentationConfidence  *float64
	CuttingInstructions     []CuttingInstruction
	VerificationConfidence  *float64
}

// CuttingInstruction tells the splitter which page range becomes which part.
// PageRange is inclusive and, once validated by internal/cutting, zero-indexed.
type CuttingInstruction struct {
	PartName       string
	Instrument     string
	Section        string
	Transposition  string
	PartNumber     *int
	PageRange      [2]int
}

// ParsedPart is an emitted per-instrument PDF produced by the split stage.
type ParsedPart struct {
	PartName      string
	Instrument    string
	Section       string
	Transposition string
	PartNumber    *int
	StorageKey    string
	FileName      string
	FileSize      int64
	PageCount     int
	PageRange     [2]int
}

// AssignmentHistoryEntry mirrors the audit-record shape emitted by the
// librarian sidecar; the pipeline writes records of this shape but does not
// own the sidecar's aggregate.
type AssignmentHistoryEntry struct {
	AssignmentID string
	Action       string
	FromStatus   string
	ToStatus     string
	Notes        string
	PerformedBy  string
	PerformedAt  time.Time
}
