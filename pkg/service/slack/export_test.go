package slack

// Export internal functions and types for testing
var (
	BuildPlanBlocks    = buildPlanBlocks
	TruncateToMaxBytes = truncateToMaxBytes
)
