package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
)

// DocumentLineForPDF línea enriquecida con datos del directorio para el PDF.
type DocumentLineForPDF struct {
	entity.MovementLine
	SKU           string
	ProductName   string
	WarehouseName string
}

// DocumentForPDF documento con nombres de bodegas resueltos.
type DocumentForPDF struct {
	Document        *entity.MovementDocument
	SourceName      string
	DestinationName string
	Lines           []DocumentLineForPDF
}

// DocumentPDFGenerator genera la representación imprimible (remisión / traslado).
type DocumentPDFGenerator interface {
	GenerateDocumentPDF(ctx context.Context, doc DocumentForPDF) ([]byte, error)
}

// PDFUseCase arma el PDF de una entrega o traslado, en borrador o finalizado.
type PDFUseCase struct {
	engine    *MovementEngine
	directory Directory
	generator DocumentPDFGenerator
}

// NewPDFUseCase construye el caso de uso.
func NewPDFUseCase(engine *MovementEngine, directory Directory, generator DocumentPDFGenerator) *PDFUseCase {
	return &PDFUseCase{engine: engine, directory: directory, generator: generator}
}

// DownloadPDF devuelve los bytes y el nombre de archivo sugerido.
func (uc *PDFUseCase) DownloadPDF(ctx context.Context, kind entity.DocumentKind, id string) ([]byte, string, error) {
	doc, err := uc.engine.GetDocument(ctx, kind, id)
	if err != nil {
		return nil, "", err
	}
	data := DocumentForPDF{Document: doc, Lines: make([]DocumentLineForPDF, 0, len(doc.Lines))}
	if doc.Kind == entity.DocumentKindTransfer {
		data.SourceName = uc.warehouseName(ctx, doc.SourceWarehouseID)
		data.DestinationName = uc.warehouseName(ctx, doc.DestinationWarehouseID)
	}
	for _, l := range doc.Lines {
		line := DocumentLineForPDF{MovementLine: l, ProductName: l.ProductID, WarehouseName: uc.warehouseName(ctx, l.SourceWarehouseID)}
		if p, err := uc.directory.GetProduct(ctx, l.ProductID); err == nil && p != nil {
			line.SKU = p.SKU
			line.ProductName = p.Name
		}
		data.Lines = append(data.Lines, line)
	}

	pdf, err := uc.generator.GenerateDocumentPDF(ctx, data)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generar documento: %w", err)
	}
	filename := fmt.Sprintf("%s-%s.pdf", strings.ToLower(string(doc.Kind)), shortID(doc.ID))
	return pdf, filename, nil
}

// warehouseName resuelve el nombre; si el directorio falla se usa el id.
func (uc *PDFUseCase) warehouseName(ctx context.Context, id string) string {
	if w, err := uc.directory.GetWarehouse(ctx, id); err == nil && w != nil {
		return w.Name
	}
	return id
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
