// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Event names understood by the progress/result channel.
const (
	EventStatusUpdate        = "status_update"
	EventTaskError           = "task_error"
	EventGenerationCancelled = "generation_cancelled"
	EventDeepResearchResult  = "deep_research_result"
)

// Message roles used when persisting run artifacts.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
