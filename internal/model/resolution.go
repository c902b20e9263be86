package model

// StrategyName identifies one resolver strategy.
type StrategyName string

const (
	// StrategyDirectAttributes reads the annotator's data attributes.
	StrategyDirectAttributes StrategyName = "direct-attributes"
	// StrategyAncestorScan looks for the application root marker.
	StrategyAncestorScan StrategyName = "ancestor-scan"
	// StrategyInternalRecord locates the framework-internal record.
	StrategyInternalRecord StrategyName = "internal-record"
	// StrategyOwnerChain walks the record chain for debug sources.
	StrategyOwnerChain StrategyName = "owner-chain"
)

// FailureReason explains a NotFound resolution.
type FailureReason string

const (
	// ReasonNone is used for successful resolutions.
	ReasonNone FailureReason = ""
	// ReasonNoInternalRecord means no framework record is attached to the element.
	ReasonNoInternalRecord FailureReason = "no-internal-record"
	// ReasonNoSourceInChain means the bounded chain walk found no debug source.
	ReasonNoSourceInChain FailureReason = "no-source-in-chain"
)

// StepOutcome is the result of running a single strategy.
type StepOutcome string

const (
	// OutcomeFound stops resolution with a location.
	OutcomeFound StepOutcome = "found"
	// OutcomeContinue hands over to the next strategy.
	OutcomeContinue StepOutcome = "continue"
	// OutcomeFailed ends resolution when the strategy is terminal, otherwise falls through.
	OutcomeFailed StepOutcome = "failed"
)

// StrategyTrace records what a strategy did during one resolution.
type StrategyTrace struct {
	Strategy  StrategyName `json:"strategy"`
	Outcome   StepOutcome  `json:"outcome"`
	Detail    string       `json:"detail,omitempty"`
	Recovered bool         `json:"recovered,omitempty"`
}

// Resolution is the terminal outcome of a lookup: Found or NotFound.
type Resolution struct {
	Found    bool            `json:"found"`
	Location SourceLocation  `json:"location"`
	Strategy StrategyName    `json:"strategy,omitempty"`
	Reason   FailureReason   `json:"reason,omitempty"`
	Steps    int             `json:"steps"`
	Trace    []StrategyTrace `json:"trace,omitempty"`
}

// Message is the user-facing text for a NotFound resolution.
func (r Resolution) Message() string {
	if r.Found {
		return r.Location.String()
	}

	switch r.Reason {
	case ReasonNoInternalRecord:
		return "Could not find React fiber node for this element"
	default:
		return "No source info found for this element"
	}
}

// ResolutionReport pairs a snapshot element with its resolution.
type ResolutionReport struct {
	Path       string      `json:"path"`
	Label      string      `json:"label"`
	Resolution Resolution  `json:"resolution"`
	Link       *EditorLink `json:"link,omitempty"`
}
