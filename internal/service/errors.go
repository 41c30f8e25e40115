package service

type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid points: " + e.Reason
}
