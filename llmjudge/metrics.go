package llmjudge

// MetricDefinition tells the judge what a metric measures and which request fields it reads
type MetricDefinition struct {
	// Name is the key the metric is reported under
	Name string
	// Description is inserted into the prompt as the grading criterion
	Description string
	// RequiresContext rejects requests without EvalRequest.Context
	RequiresContext bool
	// RequiresReference rejects requests without EvalRequest.Reference
	RequiresReference bool
}

// DefaultMetrics are the metric definitions every Judge knows about
var DefaultMetrics = []MetricDefinition{
	{
		Name:              "recall",
		Description:       "How completely the response covers the information in the reference answer. 5 means every fact in the reference is present; 1 means none are.",
		RequiresReference: true,
	},
	{
		Name:              "precision",
		Description:       "How much of the response is supported by the reference answer. 5 means no unsupported or extraneous claims; 1 means the response is mostly unsupported.",
		RequiresReference: true,
	},
	{
		Name:        "hallucination",
		Description: "Whether the response invents facts not supported by the input, context or reference. 5 means no fabricated content; 1 means the response is largely fabricated.",
	},
	{
		Name:        "relevance",
		Description: "How directly the response addresses the input. 5 means fully on topic; 1 means it ignores the question.",
	},
	{
		Name:            "groundedness",
		Description:     "How well every claim in the response is supported by the provided context. 5 means fully grounded; 1 means it contradicts or ignores the context.",
		RequiresContext: true,
	},
	{
		Name:        "logical_coherence",
		Description: "Whether the reasoning in the response is consistent and free of contradictions. 5 means fully coherent; 1 means self-contradictory.",
	},
	{
		Name:            "context_relevance",
		Description:     "How relevant the provided context is to answering the input. 5 means the context contains what is needed; 1 means it is unrelated.",
		RequiresContext: true,
	},
	{
		Name:        "helpfulness",
		Description: "How useful and actionable the response is for the person asking. 5 means it fully resolves their need; 1 means it is of no use.",
	},
}
