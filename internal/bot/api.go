package bot

// Requester submits roll requests through the authority's normal gate.
type Requester interface {
	RequestRoll(participantID string, forced int) error
}
