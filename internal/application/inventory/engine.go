package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-movimientos/internal/domain"
	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
	rules "github.com/jhoicas/inventario-movimientos/internal/domain/inventory"
	"github.com/jhoicas/inventario-movimientos/internal/domain/repository"
)

// MovementEngine es la máquina de estados DRAFT -> FINALIZED para entregas y traslados.
// Crear no toca el libro; finalizar revalida el disponible y aplica los deltas en una sola
// transacción, con bloqueo exclusivo sobre cada (producto, bodega) involucrado.
type MovementEngine struct {
	txRunner  TxRunner
	documents repository.DocumentRepository
	available *AvailabilityCalculator
	directory Directory
	publisher EventPublisher
	log       zerolog.Logger
	now       func() time.Time
}

// NewMovementEngine construye el motor. publisher puede ser nil (sin eventos).
func NewMovementEngine(
	txRunner TxRunner,
	documents repository.DocumentRepository,
	available *AvailabilityCalculator,
	directory Directory,
	publisher EventPublisher,
	log zerolog.Logger,
) *MovementEngine {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &MovementEngine{
		txRunner:  txRunner,
		documents: documents,
		available: available,
		directory: directory,
		publisher: publisher,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// DraftLineInput línea solicitada al crear. WarehouseID solo aplica a entregas.
type DraftLineInput struct {
	ProductID   string
	WarehouseID string
	Quantity    decimal.Decimal
}

// CreateDeliveryInput entrada para crear una entrega.
type CreateDeliveryInput struct {
	UserID   string
	Customer string
	Lines    []DraftLineInput
}

// CreateTransferInput entrada para crear un traslado.
type CreateTransferInput struct {
	UserID          string
	FromWarehouseID string
	ToWarehouseID   string
	Lines           []DraftLineInput
}

// FinalizeInput cantidades reales por línea. Debe traer exactamente una por línea.
type FinalizeInput struct {
	UserID     string
	DocumentID string
	Actuals    []entity.LineActual
}

// CreateDelivery crea una entrega en DRAFT.
func (e *MovementEngine) CreateDelivery(ctx context.Context, in CreateDeliveryInput) (*entity.MovementDocument, error) {
	doc := &entity.MovementDocument{
		Kind:     entity.DocumentKindDelivery,
		Customer: in.Customer,
		Lines:    toDraftLines(in.Lines, true),
	}
	return e.create(ctx, in.UserID, doc)
}

// CreateTransfer crea un traslado en DRAFT.
func (e *MovementEngine) CreateTransfer(ctx context.Context, in CreateTransferInput) (*entity.MovementDocument, error) {
	doc := &entity.MovementDocument{
		Kind:                   entity.DocumentKindTransfer,
		SourceWarehouseID:      in.FromWarehouseID,
		DestinationWarehouseID: in.ToWarehouseID,
		Lines:                  toDraftLines(in.Lines, false),
	}
	return e.create(ctx, in.UserID, doc)
}

// FinalizeDelivery aplica una entrega: descuenta la bodega origen de cada línea.
func (e *MovementEngine) FinalizeDelivery(ctx context.Context, in FinalizeInput) (*entity.MovementDocument, error) {
	return e.finalize(ctx, entity.DocumentKindDelivery, in)
}

// FinalizeTransfer aplica un traslado: descuenta origen y suma destino.
func (e *MovementEngine) FinalizeTransfer(ctx context.Context, in FinalizeInput) (*entity.MovementDocument, error) {
	return e.finalize(ctx, entity.DocumentKindTransfer, in)
}

// GetDocument devuelve el documento del tipo indicado con sus líneas.
func (e *MovementEngine) GetDocument(ctx context.Context, kind entity.DocumentKind, id string) (*entity.MovementDocument, error) {
	doc, err := e.documents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.Kind != kind {
		return nil, documentNotFound(id)
	}
	return doc, nil
}

// ListDocuments lista documentos con filtro y paginación.
func (e *MovementEngine) ListDocuments(ctx context.Context, filter entity.DocumentFilter) ([]*entity.MovementDocument, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return e.documents.List(ctx, filter)
}

func (e *MovementEngine) create(ctx context.Context, userID string, doc *entity.MovementDocument) (*entity.MovementDocument, error) {
	doc.ID = uuid.New().String()
	rule, err := rules.PrepareDraft(doc)
	if err != nil {
		return nil, err
	}
	if err := e.checkDirectory(ctx, rule, doc); err != nil {
		return nil, err
	}

	// Chequeo no vinculante: evita borradores imposibles pero no reserva stock.
	requested := func(l entity.MovementLine) decimal.Decimal { return l.RequestedQuantity }
	required := rules.RequiredBySource(rule, doc, requested)
	keys := make([]entity.StockKey, 0, len(required))
	for k := range required {
		keys = append(keys, k)
	}
	available, err := e.available.AvailableFor(ctx, entity.SortedUniqueKeys(keys))
	if err != nil {
		return nil, err
	}
	if err := rules.CheckAvailability(rule, doc, requested, available); err != nil {
		e.log.Info().Err(err).Str("kind", string(doc.Kind)).Msg("borrador rechazado por disponible")
		return nil, err
	}

	doc.CreatedAt = e.now()
	doc.CreatedBy = userID
	if err := e.txRunner.Run(ctx, func(r Repos) error {
		return r.Documents.Create(ctx, doc)
	}); err != nil {
		return nil, err
	}

	e.log.Info().
		Str("document_id", doc.ID).
		Str("kind", string(doc.Kind)).
		Int("lines", len(doc.Lines)).
		Msg("documento creado en borrador")
	return doc, nil
}

func (e *MovementEngine) checkDirectory(ctx context.Context, rule rules.KindRule, doc *entity.MovementDocument) error {
	products := make(map[string]struct{}, len(doc.Lines))
	warehouses := make(map[string]struct{}, 2)
	if doc.DestinationWarehouseID != "" {
		warehouses[doc.DestinationWarehouseID] = struct{}{}
	}
	for _, l := range doc.Lines {
		if _, ok := products[l.ProductID]; !ok {
			products[l.ProductID] = struct{}{}
			p, err := e.directory.GetProduct(ctx, l.ProductID)
			if err != nil {
				return err
			}
			if p == nil {
				return &domain.MovementError{Kind: domain.ErrNotFound, LineNumber: l.LineNumber, ProductID: l.ProductID, Reason: "producto no encontrado"}
			}
		}
		warehouses[rule.SourceOf(doc, l)] = struct{}{}
	}
	for id := range warehouses {
		w, err := e.directory.GetWarehouse(ctx, id)
		if err != nil {
			return err
		}
		if w == nil {
			return &domain.MovementError{Kind: domain.ErrNotFound, WarehouseID: id, Reason: "bodega no encontrada"}
		}
	}
	return nil
}

func (e *MovementEngine) finalize(ctx context.Context, kind entity.DocumentKind, in FinalizeInput) (*entity.MovementDocument, error) {
	if in.DocumentID == "" {
		return nil, domain.Validation("id de documento requerido")
	}
	logger := e.log.With().Str("document_id", in.DocumentID).Str("kind", string(kind)).Logger()

	var out *entity.MovementDocument
	// Recheck + deltas + cambio de estado: una sola unidad atómica. Sin reintentos internos.
	err := e.txRunner.Run(ctx, func(r Repos) error {
		doc, err := r.Documents.GetForUpdate(ctx, in.DocumentID)
		if err != nil {
			return err
		}
		if doc == nil || doc.Kind != kind {
			return documentNotFound(in.DocumentID)
		}
		plan, err := rules.PlanFinalize(doc, in.Actuals)
		if err != nil {
			return err
		}

		keys := plan.LockKeys()
		if err := r.Stock.Lock(ctx, keys); err != nil {
			return err
		}
		available, err := NewAvailabilityCalculator(r.Stock).AvailableFor(ctx, keys)
		if err != nil {
			return err
		}
		if err := plan.CheckAvailability(available); err != nil {
			return err
		}

		now := e.now()
		for _, d := range plan.Deltas {
			s, err := r.Stock.ApplyDelta(ctx, d.Key, d.Quantity)
			if err != nil {
				if me, ok := domain.AsMovementError(err); ok {
					me.DocumentID = doc.ID
					me.LineNumber = d.LineNumber
				}
				return err
			}
			if err := r.Movements.Create(ctx, &entity.StockMovement{
				ID:           uuid.New().String(),
				DocumentID:   doc.ID,
				DocumentKind: doc.Kind,
				ProductID:    d.Key.ProductID,
				WarehouseID:  d.Key.WarehouseID,
				Type:         d.Type,
				Quantity:     d.Quantity,
				BalanceAfter: s.Quantity,
				CreatedAt:    now,
				CreatedBy:    in.UserID,
			}); err != nil {
				return err
			}
		}

		fin := entity.Finalization{
			Status:      entity.DocumentStatusFinalized,
			Actuals:     plan.Actuals,
			FinalizedAt: now,
			FinalizedBy: in.UserID,
		}
		if err := r.Documents.UpdateOnFinalize(ctx, doc.ID, fin); err != nil {
			return err
		}
		applyFinalization(doc, fin)
		out = doc
		return nil
	})
	if err != nil {
		ev := logger.Warn()
		if !isExpected(err) {
			ev = logger.Error()
		}
		ev.Err(err).Msg("finalización abortada")
		return nil, err
	}

	logger.Info().Int("lines", len(out.Lines)).Msg("documento finalizado")
	if err := e.publisher.DocumentFinalized(ctx, out); err != nil {
		// El documento ya está confirmado; el evento es de mejor esfuerzo.
		logger.Error().Err(err).Msg("publicar evento de finalización")
	}
	return out, nil
}

func applyFinalization(doc *entity.MovementDocument, fin entity.Finalization) {
	doc.Status = fin.Status
	t := fin.FinalizedAt
	doc.FinalizedAt = &t
	doc.FinalizedBy = fin.FinalizedBy
	for _, a := range fin.Actuals {
		if l, ok := doc.Line(a.LineNumber); ok {
			q := a.Quantity
			l.ActualQuantity = &q
		}
	}
}

func toDraftLines(in []DraftLineInput, perLineWarehouse bool) []entity.MovementLine {
	lines := make([]entity.MovementLine, 0, len(in))
	for _, l := range in {
		line := entity.MovementLine{ProductID: l.ProductID, RequestedQuantity: l.Quantity}
		if perLineWarehouse {
			line.SourceWarehouseID = l.WarehouseID
		}
		lines = append(lines, line)
	}
	return lines
}

func documentNotFound(id string) error {
	return &domain.MovementError{Kind: domain.ErrNotFound, DocumentID: id, Reason: "documento no encontrado"}
}

// isExpected distingue errores de negocio (warn) de fallas de infraestructura (error).
func isExpected(err error) bool {
	for _, target := range []error{
		domain.ErrValidation, domain.ErrNotFound, domain.ErrInsufficientStock,
		domain.ErrAlreadyFinalized, domain.ErrBusy,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
