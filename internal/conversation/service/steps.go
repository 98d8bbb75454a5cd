package service

import (
	"context"

	"quote_assistant_backend/internal/conversation/domain"
	"quote_assistant_backend/internal/conversation/ports"
	"quote_assistant_backend/internal/nlu"
)

func (s *Service) handleStart(ctx context.Context, t *turn) error {
	od := t.od()
	if od.WantsQuote || t.nlu.HasIntent(nlu.IntentRequestQuote, minEntityConfidence) {
		od.WantsQuote = true
		t.moveTo(domain.StepCategorySelection)
		return nil
	}

	if err := t.reply.SendButtons(ctx, withNotice(t.notice, welcomeMessage(s.cfg.CompanyName, t.msg.Name)), yesNoButtons); err != nil {
		return err
	}
	od.LastPrompt = domain.StepStart
	t.moveTo(domain.StepGreetingResponse)
	return nil
}

func (s *Service) handleGreetingResponse(ctx context.Context, t *turn) error {
	switch {
	case !t.arrived && (t.affirmative() || t.nlu.HasIntent(nlu.IntentRequestQuote, minEntityConfidence)):
		t.od().WantsQuote = true
		t.moveTo(domain.StepCategorySelection)
		return nil
	case !t.arrived && t.negative():
		t.moveTo(domain.StepCompleted)
		return t.reply.SendText(ctx, msgFarewell)
	}
	return t.reply.SendButtons(ctx, withNotice(t.notice, msgYesNoReprompt), yesNoButtons)
}

func (s *Service) handleCategorySelection(ctx context.Context, t *turn) error {
	od := t.od()
	if !t.arrived {
		category, err := s.catalog.FindCategory(ctx, t.msg.input())
		if err != nil {
			return err
		}
		if category != nil {
			selectCategory(od, *category)
			t.moveTo(domain.StepProductSelection)
			return nil
		}
		t.notice = notFoundNotice("category", t.msg.Text)
	}
	if od.RequestedCategory != "" {
		if t.notice == "" {
			t.notice = notFoundNotice("category", od.RequestedCategory)
		}
		od.RequestedCategory = ""
	}
	return s.promptCategories(ctx, t)
}

func (s *Service) promptCategories(ctx context.Context, t *turn) error {
	categories, err := s.catalog.ListCategories(ctx)
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		return t.reply.SendText(ctx, msgCatalogEmpty)
	}

	rows := make([]ports.ListRow, 0, min(len(categories), maxListRows))
	for _, c := range categories {
		if len(rows) == maxListRows {
			break
		}
		rows = append(rows, ports.ListRow{ID: ports.CategoryReplyPrefix + c.ID.String(), Title: c.Name})
	}
	t.od().LastPrompt = domain.StepCategorySelection
	return t.reply.SendList(ctx, withNotice(t.notice, categoryPrompt()), msgChooseButton, []ports.ListSection{{Title: "Categories", Rows: rows}})
}

func (s *Service) handleProductSelection(ctx context.Context, t *turn) error {
	od := t.od()
	if od.SelectedCategory == nil {
		// Products are offered per category; go back and ask for one.
		if t.notice == "" {
			t.notice = notFoundNotice("category", od.RequestedCategory)
		}
		od.RequestedCategory = ""
		t.moveTo(domain.StepCategorySelection)
		return nil
	}

	if !t.arrived {
		product, err := s.catalog.FindProduct(ctx, t.msg.input(), od.CategoryID())
		if err != nil {
			return err
		}
		if product != nil {
			if err := s.reconciler.selectProduct(ctx, od, *product); err != nil {
				return err
			}
			t.moveTo(domain.StepDimensionInput)
			return nil
		}
		t.notice = notFoundNotice("product", t.msg.Text)
	}
	if od.RequestedProductName != "" {
		if t.notice == "" {
			t.notice = notFoundNotice("product", od.RequestedProductName)
		}
		od.RequestedProductName = ""
	}

	products, err := s.catalog.ListProducts(ctx, od.CategoryID())
	if err != nil {
		return err
	}
	if len(products) == 0 {
		return t.reply.SendText(ctx, msgCatalogEmpty)
	}
	rows := make([]ports.ListRow, 0, min(len(products), maxListRows))
	for _, p := range products {
		if len(rows) == maxListRows {
			break
		}
		rows = append(rows, ports.ListRow{ID: ports.ProductReplyPrefix + p.ID.String(), Title: p.Name})
	}
	od.LastPrompt = domain.StepProductSelection
	return t.reply.SendList(ctx, withNotice(t.notice, productPrompt(od.SelectedCategory.Name)), msgChooseButton,
		[]ports.ListSection{{Title: od.SelectedCategory.Name, Rows: rows}})
}

func (s *Service) handleDimensionInput(ctx context.Context, t *turn) error {
	od := t.od()
	if od.SelectedProduct == nil {
		if t.notice == "" {
			t.notice = notFoundNotice("product", od.RequestedProductName)
		}
		od.RequestedProductName = ""
		if od.SelectedCategory != nil {
			t.moveTo(domain.StepProductSelection)
		} else {
			t.moveTo(domain.StepCategorySelection)
		}
		return nil
	}

	if !t.arrived && !t.changes[nlu.EntityDimensions] {
		_, rejected := applyDimensions(od, parseNumbers(t.msg.Text))
		t.notice = rangeNotice(od.SelectedProduct, rejected)
	}
	if od.DimensionsComplete() {
		t.moveTo(domain.StepMaterialSelection)
		return nil
	}

	od.LastPrompt = domain.StepDimensionInput
	return t.reply.SendText(ctx, withNotice(t.notice, dimensionPrompt(od)))
}

func (s *Service) handleMaterialSelection(ctx context.Context, t *turn) error {
	od := t.od()
	if !t.arrived {
		material, err := s.catalog.FindMaterial(ctx, t.msg.input(), od.CategoryID())
		if err != nil {
			return err
		}
		if material != nil {
			od.SelectedMaterial = material
			t.moveTo(domain.StepFinishSelection)
			return nil
		}
		t.notice = notFoundNotice("material", t.msg.Text)
	}
	if od.SelectedMaterial != nil {
		t.moveTo(domain.StepFinishSelection)
		return nil
	}

	materials, err := s.catalog.ListMaterials(ctx, od.CategoryID())
	if err != nil {
		return err
	}
	if len(materials) == 0 {
		return t.reply.SendText(ctx, msgCatalogEmpty)
	}
	productName := "order"
	if od.SelectedProduct != nil {
		productName = od.SelectedProduct.Name
	}
	od.LastPrompt = domain.StepMaterialSelection
	return t.reply.SendList(ctx, withNotice(t.notice, materialPrompt(productName)), msgChooseButton,
		[]ports.ListSection{{Title: "Materials", Rows: optionRows(ports.MaterialReplyPrefix, materials)}})
}

func (s *Service) handleFinishSelection(ctx context.Context, t *turn) error {
	od := t.od()
	if !t.arrived {
		finish, err := s.catalog.FindFinish(ctx, t.msg.input(), od.CategoryID())
		if err != nil {
			return err
		}
		if finish != nil {
			od.AddFinish(*finish)
			t.moveTo(domain.StepQuantityInput)
			return nil
		}
		t.notice = notFoundNotice("finish", t.msg.Text)
	}
	if len(od.SelectedFinishes) > 0 {
		t.moveTo(domain.StepQuantityInput)
		return nil
	}

	finishes, err := s.catalog.ListFinishes(ctx, od.CategoryID())
	if err != nil {
		return err
	}
	if len(finishes) == 0 {
		return t.reply.SendText(ctx, msgCatalogEmpty)
	}
	od.LastPrompt = domain.StepFinishSelection
	return t.reply.SendList(ctx, withNotice(t.notice, finishPrompt()), msgChooseButton,
		[]ports.ListSection{{Title: "Finishes", Rows: optionRows(ports.FinishReplyPrefix, finishes)}})
}

func (s *Service) handleQuantityInput(ctx context.Context, t *turn) error {
	od := t.od()
	if !t.arrived && !t.changes[nlu.EntityQuantities] {
		added := false
		for _, q := range nlu.ParseQuantities(t.msg.Text) {
			if od.AddQuantity(q) {
				added = true
			}
		}
		if !added && len(od.Quantities) == 0 {
			t.notice = msgQuantityInvalid
		}
	}

	if len(od.Quantities) > 0 {
		if domain.AllSatisfied(od) {
			t.moveTo(domain.StepQuoteGeneration)
			return nil
		}
		result := domain.Validate(od)
		t.notice = missingNotice(result.MissingFields)
		t.moveTo(result.OwningStep())
		return nil
	}

	od.LastPrompt = domain.StepQuantityInput
	return t.reply.SendText(ctx, withNotice(t.notice, msgQuantityPrompt))
}

// handleCompleted starts over; completed conversations are normally
// deactivated before another message arrives.
func (s *Service) handleCompleted(ctx context.Context, t *turn) error {
	t.state.Restart()
	return nil
}
