package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-movimientos/internal/domain"
	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
	"github.com/jhoicas/inventario-movimientos/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo persiste entregas y traslados (movement_documents + movement_lines).
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

const documentColumns = `id, kind, status, customer, source_warehouse_id, destination_warehouse_id,
	created_at, created_by, finalized_at, finalized_by`

// Create inserta el documento y sus líneas. Llamar dentro de una tx.
func (r *DocumentRepo) Create(ctx context.Context, doc *entity.MovementDocument) error {
	query := `
		INSERT INTO movement_documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		doc.ID, doc.Kind, doc.Status, nullableString(doc.Customer),
		nullableString(doc.SourceWarehouseID), nullableString(doc.DestinationWarehouseID),
		doc.CreatedAt, nullableString(doc.CreatedBy), doc.FinalizedAt, nullableString(doc.FinalizedBy),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return wrapErr("insert movement document", err)
	}
	lineQuery := `
		INSERT INTO movement_lines (document_id, line_number, product_id, source_warehouse_id, requested_quantity, actual_quantity)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, l := range doc.Lines {
		if _, err := r.q.Exec(ctx, lineQuery,
			doc.ID, l.LineNumber, l.ProductID, l.SourceWarehouseID, l.RequestedQuantity, l.ActualQuantity,
		); err != nil {
			return wrapErr(fmt.Sprintf("insert movement line %d", l.LineNumber), err)
		}
	}
	return nil
}

// GetByID obtiene el documento con sus líneas; nil, nil si no existe.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*entity.MovementDocument, error) {
	return r.get(ctx, `SELECT `+documentColumns+` FROM movement_documents WHERE id = $1`, id)
}

// GetForUpdate igual que GetByID pero bloquea la fila del documento (SELECT FOR UPDATE).
// Dos finalizaciones del mismo documento quedan serializadas aquí.
func (r *DocumentRepo) GetForUpdate(ctx context.Context, id string) (*entity.MovementDocument, error) {
	return r.get(ctx, `SELECT `+documentColumns+` FROM movement_documents WHERE id = $1 FOR UPDATE`, id)
}

func (r *DocumentRepo) get(ctx context.Context, query, id string) (*entity.MovementDocument, error) {
	doc, err := scanDocument(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get movement document", err)
	}
	byDoc, err := r.loadLines(ctx, []string{doc.ID})
	if err != nil {
		return nil, err
	}
	doc.Lines = byDoc[doc.ID]
	return doc, nil
}

// List lista documentos (más recientes primero) con sus líneas.
func (r *DocumentRepo) List(ctx context.Context, filter entity.DocumentFilter) ([]*entity.MovementDocument, error) {
	var (
		where []string
		args  []any
	)
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.WarehouseID != "" {
		args = append(args, filter.WarehouseID)
		n := len(args)
		where = append(where, fmt.Sprintf(`(source_warehouse_id = $%d OR destination_warehouse_id = $%d
			OR EXISTS (SELECT 1 FROM movement_lines ml WHERE ml.document_id = movement_documents.id AND ml.source_warehouse_id = $%d))`, n, n, n))
	}
	query := `SELECT ` + documentColumns + ` FROM movement_documents`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list movement documents", err)
	}
	var (
		docs []*entity.MovementDocument
		ids  []string
	)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan movement document: %w", err)
		}
		docs = append(docs, doc)
		ids = append(ids, doc.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list movement documents", err)
	}
	if len(ids) == 0 {
		return docs, nil
	}
	byDoc, err := r.loadLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		d.Lines = byDoc[d.ID]
	}
	return docs, nil
}

// UpdateOnFinalize marca el documento FINALIZED y escribe las cantidades reales.
// Si el documento ya no está en DRAFT devuelve domain.ErrAlreadyFinalized.
func (r *DocumentRepo) UpdateOnFinalize(ctx context.Context, id string, fin entity.Finalization) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE movement_documents
		SET status = $2, finalized_at = $3, finalized_by = $4
		WHERE id = $1 AND status = 'DRAFT'`,
		id, fin.Status, fin.FinalizedAt, nullableString(fin.FinalizedBy),
	)
	if err != nil {
		return wrapErr("finalize movement document", err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.MovementError{Kind: domain.ErrAlreadyFinalized, DocumentID: id}
	}
	for _, a := range fin.Actuals {
		if _, err := r.q.Exec(ctx, `
			UPDATE movement_lines SET actual_quantity = $3
			WHERE document_id = $1 AND line_number = $2`,
			id, a.LineNumber, a.Quantity,
		); err != nil {
			return wrapErr(fmt.Sprintf("update movement line %d", a.LineNumber), err)
		}
	}
	return nil
}

// DeleteLinesByProduct elimina las líneas que referencian al producto.
func (r *DocumentRepo) DeleteLinesByProduct(ctx context.Context, productID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM movement_lines WHERE product_id = $1`, productID); err != nil {
		return wrapErr("delete movement lines by product", err)
	}
	return nil
}

func (r *DocumentRepo) loadLines(ctx context.Context, ids []string) (map[string][]entity.MovementLine, error) {
	rows, err := r.q.Query(ctx, `
		SELECT document_id, line_number, product_id, source_warehouse_id, requested_quantity, actual_quantity
		FROM movement_lines WHERE document_id = ANY($1)
		ORDER BY document_id, line_number`, ids)
	if err != nil {
		return nil, wrapErr("list movement lines", err)
	}
	defer rows.Close()
	out := make(map[string][]entity.MovementLine, len(ids))
	for rows.Next() {
		var (
			l      entity.MovementLine
			actual decimal.NullDecimal
		)
		if err := rows.Scan(&l.DocumentID, &l.LineNumber, &l.ProductID, &l.SourceWarehouseID, &l.RequestedQuantity, &actual); err != nil {
			return nil, fmt.Errorf("scan movement line: %w", err)
		}
		if actual.Valid {
			q := actual.Decimal
			l.ActualQuantity = &q
		}
		out[l.DocumentID] = append(out[l.DocumentID], l)
	}
	return out, rows.Err()
}

func scanDocument(row pgx.Row) (*entity.MovementDocument, error) {
	var (
		d                             entity.MovementDocument
		customer, src, dst, by, finBy *string
		finalizedAt                   *time.Time
	)
	if err := row.Scan(&d.ID, &d.Kind, &d.Status, &customer, &src, &dst, &d.CreatedAt, &by, &finalizedAt, &finBy); err != nil {
		return nil, err
	}
	d.Customer = derefString(customer)
	d.SourceWarehouseID = derefString(src)
	d.DestinationWarehouseID = derefString(dst)
	d.CreatedBy = derefString(by)
	d.FinalizedAt = finalizedAt
	d.FinalizedBy = derefString(finBy)
	return &d, nil
}
