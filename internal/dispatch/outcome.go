package dispatch

// Outcome is the terminal result of one dispatched job.
type Outcome struct {
	Success         bool
	Cancelled       bool
	OutputPaths     []string
	ErrorMessage    string
	OutputSizeBytes int64
	Delivered       string
	DeliveryURLs    []string
}

func failure(message string) Outcome {
	return Outcome{ErrorMessage: message}
}
