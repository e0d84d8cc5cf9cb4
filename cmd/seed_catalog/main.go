// seed_catalog genera un script SQL para cargar el catálogo de productos
// desde un CSV exportado por el ERP (separador ';', UTF-8 o ISO-8859-1).
//
// Uso: go run ./cmd/seed_catalog catalogo.csv [salida.sql]
// Columnas: sku;nombre;descripcion. La primera fila se toma como encabezado.
package main

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type catalogRow struct {
	SKU         string
	Name        string
	Description string
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Uso: seed_catalog catalogo.csv [salida.sql]")
		os.Exit(2)
	}
	outPath := "seed_catalog.sql"
	if len(os.Args) > 2 {
		outPath = os.Args[2]
	}

	raw, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer CSV: %v\n", err)
		os.Exit(1)
	}
	rows, skipped, err := readCatalog(bytes.NewReader(raw), !utf8.Valid(raw))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Decodificar CSV: %v\n", err)
		os.Exit(1)
	}

	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	writeSeed(w, rows, uuid.NewString)
	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generado %s: %d productos, %d filas omitidas\n", outPath, len(rows), skipped)
}

// readCatalog decodifica el CSV; latin1 convierte desde ISO-8859-1.
// Filas sin SKU o nombre se omiten; un SKU repetido conserva la última fila.
func readCatalog(r io.Reader, latin1 bool) ([]catalogRow, int, error) {
	if latin1 {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, 0, err
	}
	if len(records) > 0 {
		records = records[1:]
	}

	bySKU := make(map[string]catalogRow, len(records))
	skipped := 0
	for _, rec := range records {
		if len(rec) < 2 {
			skipped++
			continue
		}
		row := catalogRow{SKU: clean(rec[0]), Name: clean(rec[1])}
		if len(rec) > 2 {
			row.Description = clean(rec[2])
		}
		if row.SKU == "" || row.Name == "" {
			skipped++
			continue
		}
		bySKU[row.SKU] = row
	}

	rows := make([]catalogRow, 0, len(bySKU))
	for _, row := range bySKU {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].SKU < rows[j].SKU })
	return rows, skipped, nil
}

func writeSeed(w io.Writer, rows []catalogRow, newID func() string) {
	io.WriteString(w, "-- Catálogo de productos\n")
	io.WriteString(w, "-- Generado por cmd/seed_catalog\n\n")
	for _, row := range rows {
		fmt.Fprintf(w, "INSERT INTO products (id, sku, name, description)\n")
		fmt.Fprintf(w, "VALUES ('%s', '%s', '%s', '%s')\n", newID(), escapeSQL(row.SKU), escapeSQL(row.Name), escapeSQL(row.Description))
		io.WriteString(w, "ON CONFLICT (sku) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description, updated_at = now();\n")
	}
}

func clean(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
