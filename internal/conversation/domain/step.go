package domain

// Step is a state of the quoting conversation.
type Step string

const (
	StepStart             Step = "start"
	StepGreetingResponse  Step = "greeting_response"
	StepCategorySelection Step = "category_selection"
	StepProductSelection  Step = "product_selection"
	StepDimensionInput    Step = "dimension_input"
	StepMaterialSelection Step = "material_selection"
	StepFinishSelection   Step = "finish_selection"
	StepQuantityInput     Step = "quantity_input"
	StepQuoteGeneration   Step = "quote_generation"
	StepCompleted         Step = "completed"
)

// Steps lists every step in flow order.
var Steps = []Step{
	StepStart,
	StepGreetingResponse,
	StepCategorySelection,
	StepProductSelection,
	StepDimensionInput,
	StepMaterialSelection,
	StepFinishSelection,
	StepQuantityInput,
	StepQuoteGeneration,
	StepCompleted,
}

// dataSteps are the steps that collect order data, in flow order.
var dataSteps = []Step{
	StepCategorySelection,
	StepProductSelection,
	StepDimensionInput,
	StepMaterialSelection,
	StepFinishSelection,
	StepQuantityInput,
}

// Valid reports whether s is a known step.
func (s Step) Valid() bool {
	for _, known := range Steps {
		if s == known {
			return true
		}
	}
	return false
}

// IsDataStep reports whether s collects order data.
func (s Step) IsDataStep() bool {
	for _, d := range dataSteps {
		if s == d {
			return true
		}
	}
	return false
}

// NextDataStep returns the step after a data step. The last data step is
// followed by quote generation; non-data steps return themselves.
func (s Step) NextDataStep() Step {
	for i, d := range dataSteps {
		if s != d {
			continue
		}
		if i+1 < len(dataSteps) {
			return dataSteps[i+1]
		}
		return StepQuoteGeneration
	}
	return s
}

func (s Step) String() string { return string(s) }
