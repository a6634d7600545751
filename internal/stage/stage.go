package stage

// Stage is one step of the sales pipeline. The registry is defined once at
// process start and never mutated; any change means redeploying.
type Stage struct {
	ID     int      `json:"id"`
	Name   string   `json:"name"`
	Order  int      `json:"order"`
	Fields []string `json:"fields"`
}

// Stage identifiers. IDs are stable because leads reference them in the database.
const (
	Sourcing = iota + 1
	DataEnrichment
	ProductQualification
	Telecalling
	InitialConnect
	Demo
	Discovery
	POC
	Proposal
	Pilot
	ClosedWon
	ClosedLost
)

var baseFields = []string{"company", "contact_name", "email", "phone", "source"}

var pipeline = []Stage{
	{ID: Sourcing, Name: "Sourcing", Order: 1, Fields: []string{"company", "source"}},
	{ID: DataEnrichment, Name: "Data Enrichment", Order: 2, Fields: append(baseFields, "industry", "company_size")},
	{ID: ProductQualification, Name: "Product Qualification", Order: 3, Fields: append(baseFields, "fit_score")},
	{ID: Telecalling, Name: "Telecalling", Order: 4, Fields: append(baseFields, "call_outcome", "callback_at")},
	{ID: InitialConnect, Name: "Initial Connect", Order: 5, Fields: append(baseFields, "meeting_at")},
	{ID: Demo, Name: "Demo", Order: 6, Fields: append(baseFields, "demo_at", "attendees")},
	{ID: Discovery, Name: "Discovery", Order: 7, Fields: append(baseFields, "pain_points", "budget")},
	{ID: POC, Name: "POC", Order: 8, Fields: append(baseFields, "poc_start", "poc_end", "success_criteria")},
	{ID: Proposal, Name: "Proposal", Order: 9, Fields: append(baseFields, "proposal_sent_at", "deal_value")},
	{ID: Pilot, Name: "Pilot", Order: 10, Fields: append(baseFields, "pilot_start", "deal_value")},
	{ID: ClosedWon, Name: "Closed Won", Order: 11, Fields: append(baseFields, "deal_value", "closed_at")},
	{ID: ClosedLost, Name: "Closed Lost", Order: 12, Fields: append(baseFields, "lost_reason", "closed_at")},
}

var byID = func() map[int]Stage {
	m := make(map[int]Stage, len(pipeline))
	for _, s := range pipeline {
		m[s.ID] = s
	}
	return m
}()

// Stages returns the pipeline in order. Callers get a copy so the registry
// stays immutable.
func Stages() []Stage {
	out := make([]Stage, len(pipeline))
	copy(out, pipeline)
	return out
}

// ByID resolves a stage by its identifier.
func ByID(id int) (Stage, bool) {
	s, ok := byID[id]
	return s, ok
}

// Exists reports whether id is a known stage.
func Exists(id int) bool {
	_, ok := byID[id]
	return ok
}

// IDs returns all stage identifiers in pipeline order.
func IDs() []int {
	ids := make([]int, len(pipeline))
	for i, s := range pipeline {
		ids[i] = s.ID
	}
	return ids
}

// After reports whether the lead has progressed past the given stage, using
// the registry ordering. Closed Won/Lost count as past everything before them.
func After(stageID, pastID int) bool {
	a, ok1 := byID[stageID]
	b, ok2 := byID[pastID]
	if !ok1 || !ok2 {
		return false
	}
	return a.Order > b.Order
}
