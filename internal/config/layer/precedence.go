package layer

// Priorities of the standard layers.
const (
	PriorityBuiltin  = 0
	PrioritySystem   = 50
	PriorityUser     = 100
	PriorityEnv      = 500
	PriorityDocument = 1000
)

// DefaultPriority returns the standard priority for a source.
func DefaultPriority(source Source) int {
	switch source {
	case SourceSystem:
		return PrioritySystem
	case SourceUser:
		return PriorityUser
	case SourceEnv:
		return PriorityEnv
	case SourceDocument:
		return PriorityDocument
	default:
		return PriorityBuiltin
	}
}

// StandardLayerName returns the conventional layer name for a source.
func StandardLayerName(source Source) string {
	if source == SourceBuiltin {
		return "defaults"
	}
	return source.String()
}
