package stages

import "github.com/artisanclarinets/smartupload/internal/pipeline"

// RegisterAll wires every stage handler against the engine's dispatch
// table. Every stage, ADJUDICATE included, has its own job name on the wire
// (see pipeline.JobName and pipeline.StageFromJobName); SecondPassVerify's
// routing decides when an item hops to ADJUDICATE.
func RegisterAll(engine *pipeline.Engine, h *Handlers) {
	engine.Register(pipeline.StageExtractText, h.ExtractText)
	engine.Register(pipeline.StageLLMExtractMetadata, h.ExtractMetadata)
	engine.Register(pipeline.StageClassifyAndPlan, h.ClassifyAndPlan)
	engine.Register(pipeline.StageSplitPDF, h.SplitPDF)
	engine.Register(pipeline.StageSecondPassVerify, h.SecondPassVerify)
	engine.Register(pipeline.StageAdjudicate, h.Adjudicate)
	engine.Register(pipeline.StageFinalize, h.Finalize)
	engine.Register(pipeline.StageIngest, h.Ingest)
	engine.Register(pipeline.StageCleanup, h.Cleanup)
}
