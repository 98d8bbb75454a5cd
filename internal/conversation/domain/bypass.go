package domain

// IsStepSatisfied reports whether the data a step collects is already known.
// Dimension input counts only when every required dimension of the selected
// product has a value. An unmatched category request satisfies category
// selection only until a product is chosen. Non-data steps are never
// satisfied.
func IsStepSatisfied(step Step, od *OrderData) bool {
	switch step {
	case StepCategorySelection:
		return od.SelectedCategory != nil || (od.RequestedCategory != "" && od.SelectedProduct == nil)
	case StepProductSelection:
		return od.SelectedProduct != nil || od.RequestedProductName != ""
	case StepDimensionInput:
		return od.DimensionsComplete()
	case StepMaterialSelection:
		return od.SelectedMaterial != nil
	case StepFinishSelection:
		return len(od.SelectedFinishes) > 0
	case StepQuantityInput:
		return len(od.Quantities) > 0
	default:
		return false
	}
}

// AllSatisfied reports whether everything needed for a quote is present. It
// agrees with Validate.
func AllSatisfied(od *OrderData) bool {
	return od.SelectedCategory != nil &&
		od.SelectedProduct != nil &&
		od.DimensionsComplete() &&
		od.SelectedMaterial != nil &&
		len(od.SelectedFinishes) > 0 &&
		len(od.Quantities) > 0
}

// NextStepAfterBypass skips data steps whose data is already known. A
// complete order always lands on quote generation.
func NextStepAfterBypass(step Step, od *OrderData) Step {
	if AllSatisfied(od) {
		return StepQuoteGeneration
	}
	for step.IsDataStep() && IsStepSatisfied(step, od) {
		step = step.NextDataStep()
	}
	return step
}
