// Package pdf genera la representación imprimible de entregas (remisión) y traslados.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Tipo de documento + estado  │  N° + Fecha          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  ENTREGA: Cliente        TRASLADO: Bodega origen → destino   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: # | SKU | Producto | Bodega | Solicitado | Real      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: QR con el id + firmas                               │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/inventario-movimientos/internal/application/inventory"
	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
)

var _ inventory.DocumentPDFGenerator = (*MarotoNoteGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorDraft   = &props.Color{Red: 180, Green: 90, Blue: 0}
)

// MarotoNoteGenerator implementa inventory.DocumentPDFGenerator usando Maroto v2.
type MarotoNoteGenerator struct {
	company string
}

// NewMarotoNoteGenerator construye el generador; company aparece como autor del PDF.
func NewMarotoNoteGenerator(company string) *MarotoNoteGenerator {
	return &MarotoNoteGenerator{company: company}
}

// GenerateDocumentPDF genera el PDF y devuelve sus bytes.
func (g *MarotoNoteGenerator) GenerateDocumentPDF(_ context.Context, data inventory.DocumentForPDF) ([]byte, error) {
	doc := data.Document
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(title(doc.Kind), true).
		WithAuthor(nonEmpty(g.company, "Inventario"), true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(doc))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(partiesRow(data))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableLineRows(data.Lines, doc.IsFinalized())...)

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRows(doc)...)

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return out.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func title(kind entity.DocumentKind) string {
	if kind == entity.DocumentKindTransfer {
		return "TRASLADO ENTRE BODEGAS"
	}
	return "REMISIÓN DE ENTREGA"
}

// headerRow: tipo de documento y estado (izq), número y fechas (der).
func headerRow(doc *entity.MovementDocument) core.Row {
	status, statusColor := "BORRADOR", colorDraft
	dates := "Creado: " + doc.CreatedAt.Format("02/01/2006 15:04")
	if doc.IsFinalized() {
		status, statusColor = "FINALIZADO", colorPrimary
		if doc.FinalizedAt != nil {
			dates = "Finalizado: " + doc.FinalizedAt.Format("02/01/2006 15:04")
		}
	}

	return row.New(18).Add(
		col.New(7).Add(
			text.New(title(doc.Kind), props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New(status, props.Text{
				Style: fontstyle.Bold, Size: 9, Top: 9, Color: statusColor,
			}),
		),
		col.New(5).Add(
			text.New("N° "+strings.ToUpper(shortID(doc.ID)), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 3,
			}),
			text.New(dates, props.Text{
				Size: 8, Align: align.Right, Top: 11, Color: colorGray,
			}),
		),
	)
}

// partiesRow: cliente (entrega) o bodegas origen/destino (traslado).
func partiesRow(data inventory.DocumentForPDF) core.Row {
	doc := data.Document
	if doc.Kind == entity.DocumentKindTransfer {
		return row.New(14).Add(
			col.New(6).Add(
				text.New("BODEGA ORIGEN", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
				text.New(nonEmpty(data.SourceName, doc.SourceWarehouseID), props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
			),
			col.New(6).Add(
				text.New("BODEGA DESTINO", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
				text.New(nonEmpty(data.DestinationName, doc.DestinationWarehouseID), props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
			),
		)
	}
	return row.New(14).Add(
		col.New(12).Add(
			text.New("CLIENTE", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(nonEmpty(doc.Customer, "—"), props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de líneas.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("#", 1, align.Center),
		h("SKU", 2, align.Left),
		h("Producto", 4, align.Left),
		h("Bodega", 2, align.Left),
		h("Solicitado", 2, align.Right),
		h("Real", 1, align.Right),
	)
}

// tableLineRows: una fila por línea. En borrador la columna Real queda vacía.
func tableLineRows(lines []inventory.DocumentLineForPDF, finalized bool) []core.Row {
	result := make([]core.Row, 0, len(lines))
	for _, l := range lines {
		actual := ""
		if finalized && l.ActualQuantity != nil {
			actual = formatQuantity(l.ActualQuantity.StringFixed(0))
		}
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(fmt.Sprintf("%d", l.LineNumber), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(nonEmpty(l.SKU, "—"), props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(4).Add(text.New(l.ProductName, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New(l.WarehouseName, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New(formatQuantity(l.RequestedQuantity.StringFixed(0)), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(1).Add(text.New(actual, props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return result
}

// footerRows: QR con el id del documento + espacio de firmas.
func footerRows(doc *entity.MovementDocument) []core.Row {
	qr := strings.ToLower(string(doc.Kind)) + ":" + doc.ID
	return []core.Row{
		row.New(40).Add(
			col.New(3).Add(code.NewQr(qr, props.Rect{Percent: 95, Center: true})),
			col.New(9).Add(
				text.New("Documento: "+doc.ID, props.Text{Size: 7, Top: 4, Left: 3, Color: colorGray}),
				text.New("Entregado por: ______________________", props.Text{Size: 9, Top: 16, Left: 3}),
				text.New("Recibido por:  ______________________", props.Text{Size: 9, Top: 28, Left: 3}),
			),
		),
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatQuantity inserta puntos de miles en un entero. Ej: "1000000" → "1.000.000".
func formatQuantity(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	n := len(s)
	if n <= 3 {
		return sign + s
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return sign + string(buf)
}
