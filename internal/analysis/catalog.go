package analysis

// Result is one canned diagnosis shown after a photo or questionnaire analysis.
type Result struct {
	HairLossType    string   `json:"hair_loss_type"`
	Severity        string   `json:"severity"`
	Coverage        string   `json:"coverage"`
	Recommendations []string `json:"recommendations"`
}

func (r Result) clone() Result {
	r.Recommendations = append([]string(nil), r.Recommendations...)
	return r
}

// Question is a fixed questionnaire step.
type Question struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// HasOption reports whether answer is one of the question's options.
func (q Question) HasOption(answer string) bool {
	for _, opt := range q.Options {
		if opt == answer {
			return true
		}
	}
	return false
}

var catalog = []Result{
	{
		HairLossType: "Early Stage Androgenetic Alopecia",
		Severity:     "Mild",
		Coverage:     "85%",
		Recommendations: []string{
			"HairLoss Doctor Serum 2.5 Neo - Apply twice daily",
			"HairLoss Doctor Biotin Complex Plus - 1 tablet daily",
			"HairLoss Doctor Scalp Therapy Foam - Use during evening routine",
			"Consider our Micro-Needling Treatment Package",
		},
	},
	{
		HairLossType: "Progressive Pattern Thinning",
		Severity:     "Moderate",
		Coverage:     "70%",
		Recommendations: []string{
			"HairLoss Doctor Advanced Formula 5.0 - Morning application",
			"HairLoss Doctor DHT Blocker Elite - 2 capsules daily",
			"HairLoss Doctor Revitalizing Shampoo Pro - Use 3x weekly",
			"Book consultation for our PRP Treatment Program",
		},
	},
	{
		HairLossType: "Diffuse Hair Thinning",
		Severity:     "Moderate to Severe",
		Coverage:     "60%",
		Recommendations: []string{
			"HairLoss Doctor Maximum Strength Solution 7.5 - Twice daily",
			"HairLoss Doctor Nutrient Fusion Tablets - Morning supplement",
			"HairLoss Doctor Scalp Energizing Serum - Evening routine",
			"Evaluate eligibility for our Laser Therapy Program",
		},
	},
}

var questions = []Question{
	{ID: "age", Question: "What is your age?", Options: []string{"18-25", "26-35", "36-45", "46+"}},
	{ID: "pattern", Question: "What pattern of hair loss are you experiencing?", Options: []string{"Receding hairline", "Crown thinning", "Overall thinning", "Patchy hair loss"}},
	{ID: "duration", Question: "How long have you been experiencing hair loss?", Options: []string{"Less than 6 months", "6-12 months", "1-2 years", "More than 2 years"}},
	{ID: "family", Question: "Is there a family history of hair loss?", Options: []string{"Yes", "No", "Not sure"}},
	{ID: "lifestyle", Question: "Which best describes your lifestyle?", Options: []string{"High stress", "Moderate stress", "Low stress", "Varies significantly"}},
}

// Catalog returns a copy of the canned results in bucket order.
func Catalog() []Result {
	out := make([]Result, len(catalog))
	for i, r := range catalog {
		out[i] = r.clone()
	}
	return out
}

// CatalogSize is the number of canned results.
func CatalogSize() int { return len(catalog) }

// ResultAt returns a copy of the result for bucket i. Out-of-range indices
// fall back to bucket 0.
func ResultAt(i int) Result {
	if i < 0 || i >= len(catalog) {
		i = 0
	}
	return catalog[i].clone()
}

// Questions returns a copy of the questionnaire in presentation order.
func Questions() []Question {
	out := make([]Question, len(questions))
	for i, q := range questions {
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out
}
