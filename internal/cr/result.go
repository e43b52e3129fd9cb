package cr

// Result is the outward-facing outcome of one provisioning request: the
// physical identifier to report back and the derived attribute map exposed
// to the rest of the stack.
type Result struct {
	PhysicalID string
	Data       map[string]any
}

func newResult(physicalID string) *Result {
	return &Result{PhysicalID: physicalID, Data: map[string]any{}}
}
