package reconcile

import (
	"context"
	"log/slog"

	"cartsync/internal/model"
	"cartsync/internal/session"
)

// ApplyPromotion validates code against the current cart and keeps the
// result for the rest of the session. It is never persisted.
func (e *Engine) ApplyPromotion(ctx context.Context, code string) (*model.AppliedPromotion, error) {
	if code == "" {
		return nil, model.NewValidationError("code", "required")
	}
	if e.promotions == nil {
		return nil, model.NewNotSupportedError("Promotion codes")
	}

	var applied *model.AppliedPromotion
	err := e.doInSession(ctx, "applyPromotion", func(ctx context.Context, snap session.Snapshot) error {
		view := e.Snapshot().Cart
		if len(view.Lines) == 0 {
			return model.NewValidationError("cart", "is empty")
		}

		promo, err := e.promotions.Validate(ctx, code, view)
		if err != nil {
			e.logger.Info("promotion rejected",
				slog.String("code", code),
				slog.String("error", err.Error()),
			)
			return err
		}
		if !e.sessions.IsCurrent(snap.Generation) {
			return model.NewSessionChangedError()
		}

		cp := *promo
		e.update(func(s *state) { s.promotion = &cp })
		applied = promo
		return nil
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}

// RemovePromotion drops the applied promotion, if any.
func (e *Engine) RemovePromotion(ctx context.Context) error {
	return e.doInSession(ctx, "removePromotion", func(context.Context, session.Snapshot) error {
		if read(e, func(s *state) bool { return s.promotion == nil }) {
			return nil
		}
		e.update(func(s *state) { s.promotion = nil })
		return nil
	})
}
