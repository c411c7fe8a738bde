package pipeline

// Stage keys, in normal-flow order. CLEANUP is a branch reachable from any
// stage on cancellation/fatal failure, not part of the linear sequence.
const (
	StageExtractText        = "EXTRACT_TEXT"
	StageLLMExtractMetadata = "LLM_EXTRACT_METADATA"
	StageClassifyAndPlan    = "CLASSIFY_AND_PLAN"
	StageSplitPDF           = "SPLIT_PDF"
	StageSecondPassVerify   = "SECOND_PASS_VERIFY"
	StageAdjudicate         = "ADJUDICATE"
	StageFinalize           = "FINALIZE"
	StageIngest             = "INGEST"
	StageCleanup            = "CLEANUP"
)

// JobName maps a stage key onto spec.md §6's wire format.
func JobName(stage string) string {
	switch stage {
	case StageExtractText:
		return "smartupload.extractText"
	case StageLLMExtractMetadata:
		return "smartupload.llmExtractMetadata"
	case StageClassifyAndPlan:
		return "smartupload.classifyAndPlanSplit"
	case StageSplitPDF:
		return "smartupload.splitPdf"
	case StageSecondPassVerify:
		return "smartupload.secondPass"
	case StageAdjudicate:
		return "smartupload.adjudicate"
	case StageFinalize:
		return "smartupload.finalize"
	case StageIngest:
		return "smartupload.ingest"
	case StageCleanup:
		return "smartupload.cleanup"
	default:
		return ""
	}
}

// StageFromJobName is the inverse of JobName, used by the worker pool to
// dispatch a claimed queue job back onto a stage handler. Every stage key
// needs a distinct wire name here, or the queue will re-dispatch the wrong
// handler on replay and can loop forever.
func StageFromJobName(jobName string) string {
	switch jobName {
	case "smartupload.extractText":
		return StageExtractText
	case "smartupload.llmExtractMetadata":
		return StageLLMExtractMetadata
	case "smartupload.classifyAndPlanSplit":
		return StageClassifyAndPlan
	case "smartupload.splitPdf":
		return StageSplitPDF
	case "smartupload.secondPass":
		return StageSecondPassVerify
	case "smartupload.adjudicate":
		return StageAdjudicate
	case "smartupload.finalize":
		return StageFinalize
	case "smartupload.ingest":
		return StageIngest
	case "smartupload.cleanup":
		return StageCleanup
	default:
		return ""
	}
}
