package template

// SectionRule maps a course id pattern to an assignment section list.
// Pattern characters match the start of the course id one by one; x and X match any character.
type SectionRule struct {
	Pattern  string
	Kind     string
	Sections []string
}

// AssignmentRules is evaluated top to bottom and the first match wins
var AssignmentRules = []SectionRule{
	{
		Pattern:  "01xxx",
		Kind:     "mathematics",
		Sections: []string{"Problem Statement", "Proof", "Analysis", "Conclusion"},
	},
	{
		Pattern:  "02xxx",
		Kind:     "programming",
		Sections: []string{"Problem Description", "Implementation", "Testing", "Complexity Analysis"},
	},
	{
		Pattern:  "25xxx",
		Kind:     "physics",
		Sections: []string{"Theory", "Experimental Setup", "Measurements", "Error Analysis", "Conclusion"},
	},
	{
		Pattern:  "22xxx",
		Kind:     "electronics",
		Sections: []string{"Circuit Description", "Calculations", "Simulation", "Measurements"},
	},
}

// Matches reports whether courseID matches the rule's pattern
func (r SectionRule) Matches(courseID string) bool {
	if len(courseID) < len(r.Pattern) {
		return false
	}
	for i := 0; i < len(r.Pattern); i++ {
		p := r.Pattern[i]
		if p != 'x' && p != 'X' && p != courseID[i] {
			return false
		}
	}
	return true
}

// MatchRule returns the first rule matching courseID
func MatchRule(rules []SectionRule, courseID string) (SectionRule, bool) {
	for _, r := range rules {
		if r.Matches(courseID) {
			return r, true
		}
	}
	return SectionRule{}, false
}
