package metadata

// Project.ProjectType 的取值，创建后不可修改
const (
	ProjectTypeTextClassification         = "Text Classification"
	ProjectTypeMachineTranslationAdequacy = "Machine Translation Adequacy"
	ProjectTypeMachineTranslationFluency  = "Machine Translation Fluency"
	ProjectTypeNamedEntityRecognition     = "Named Entity Recognition"
)

const (
	AnnotatorTypePublic  = "public"
	AnnotatorTypePrivate = "private"
)

// TextHighlight.Side
const (
	HighlightSideSource = "source"
	HighlightSideTarget = "target"
)

const (
	HighlightCategoryMistranslation       = "Mistranslation"
	HighlightCategoryMistranslationSource = "Mistranslation Source"
)

// ProjectEntryHistory.HistoryType
const (
	HistoryTypeCreated = "+"
	HistoryTypeUpdated = "~"
	HistoryTypeDeleted = "-"
)
